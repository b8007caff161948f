package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/tyemirov/folio/internal/store"
)

const configCodeAddUserInput = "config.adduser_invalid_input"

// newAddUserCommand provisions accounts from the command line. The site has
// no self-service signup, so this is the only way password users get created.
func newAddUserCommand() *cobra.Command {
	addUserCmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user account in the content database",
		RunE:  runAddUser,
	}

	addUserCmd.Flags().String("email", "", "Account email (required)")
	addUserCmd.Flags().String("password", "", "Account password (required)")
	addUserCmd.Flags().String("role", "USER", "Account role: USER or ADMIN")
	addUserCmd.Flags().String("name", "", "Display name")
	addUserCmd.Flags().Int("bcrypt_cost", bcrypt.DefaultCost, "bcrypt cost for the password hash")

	return addUserCmd
}

func runAddUser(command *cobra.Command, arguments []string) error {
	email, _ := command.Flags().GetString("email")
	password, _ := command.Flags().GetString("password")
	role, _ := command.Flags().GetString("role")
	name, _ := command.Flags().GetString("name")
	bcryptCost, _ := command.Flags().GetInt("bcrypt_cost")

	if email == "" || password == "" {
		return configError(configCodeAddUserInput, "email and password must be provided")
	}

	databaseURL := viper.GetString("database_url")
	if databaseURL == "" {
		return configError(configCodeMissingDatabaseURL, "database_url must be provided")
	}

	database, databaseErr := store.Open(command.Context(), databaseURL)
	if databaseErr != nil {
		return databaseErr
	}

	account, createErr := store.NewUsers(database).Create(command.Context(), email, password, role, name, bcryptCost)
	if createErr != nil {
		return createErr
	}

	command.Printf("created user %s (%s) with role %s\n", account.Email, account.ID, account.Role)
	return nil
}
