package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tyemirov/folio/internal/authgate"
)

// ErrEmailExists indicates a user with the email is already registered.
var ErrEmailExists = errors.New("store.users.email_exists")

// Users is the GORM-backed credential store consumed by the auth gate.
type Users struct {
	database *DB
}

// NewUsers wraps the shared database handle.
func NewUsers(database *DB) *Users {
	return &Users{database: database}
}

// FindByEmail looks a user up by normalized email.
func (users *Users) FindByEmail(ctx context.Context, email string) (authgate.UserAccount, error) {
	var record UserRecord
	err := users.database.gorm.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authgate.UserAccount{}, fmt.Errorf("store.users.find_by_email: %w", authgate.ErrUserNotFound)
		}
		return authgate.UserAccount{}, fmt.Errorf("store.users.find_by_email: %w", err)
	}
	return accountOf(record), nil
}

// FindByID looks a user up by id.
func (users *Users) FindByID(ctx context.Context, userID string) (authgate.UserAccount, error) {
	var record UserRecord
	err := users.database.gorm.WithContext(ctx).
		Where("id = ?", userID).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authgate.UserAccount{}, fmt.Errorf("store.users.find_by_id: %w", authgate.ErrUserNotFound)
		}
		return authgate.UserAccount{}, fmt.Errorf("store.users.find_by_id: %w", err)
	}
	return accountOf(record), nil
}

// UpsertGoogleUser inserts or refreshes a Google-backed user. The id is
// derived from the Google subject so repeated sign-ins hit the same row.
func (users *Users) UpsertGoogleUser(ctx context.Context, googleSub string, email string, name string, avatarURL string) (authgate.UserAccount, error) {
	now := time.Now().UTC().Unix()
	record := UserRecord{
		ID:            "google:" + googleSub,
		Email:         strings.ToLower(strings.TrimSpace(email)),
		Role:          authgate.RoleUser,
		Name:          name,
		AvatarURL:     avatarURL,
		CreatedAtUnix: now,
		UpdatedAtUnix: now,
	}
	var existing UserRecord
	err := users.database.gorm.WithContext(ctx).Where("id = ?", record.ID).Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if createErr := users.database.gorm.WithContext(ctx).Create(&record).Error; createErr != nil {
			return authgate.UserAccount{}, fmt.Errorf("store.users.upsert_google: %w", createErr)
		}
		return accountOf(record), nil
	case err != nil:
		return authgate.UserAccount{}, fmt.Errorf("store.users.upsert_google: %w", err)
	}
	// Keep the stored role; only profile fields follow the Google payload.
	existing.Email = record.Email
	existing.Name = name
	existing.AvatarURL = avatarURL
	existing.UpdatedAtUnix = now
	if saveErr := users.database.gorm.WithContext(ctx).Save(&existing).Error; saveErr != nil {
		return authgate.UserAccount{}, fmt.Errorf("store.users.upsert_google: %w", saveErr)
	}
	return accountOf(existing), nil
}

// Create registers a password user. The role defaults to USER unless an
// admin role is requested explicitly.
func (users *Users) Create(ctx context.Context, email string, password string, role string, name string, bcryptCost int) (authgate.UserAccount, error) {
	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	if normalizedEmail == "" || password == "" {
		return authgate.UserAccount{}, fmt.Errorf("store.users.create: %w", errors.New("email and password are required"))
	}
	normalizedRole := strings.ToUpper(strings.TrimSpace(role))
	if normalizedRole != authgate.RoleAdmin {
		normalizedRole = authgate.RoleUser
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	hash, hashErr := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if hashErr != nil {
		return authgate.UserAccount{}, fmt.Errorf("store.users.create: %w", hashErr)
	}
	var existing UserRecord
	findErr := users.database.gorm.WithContext(ctx).Where("email = ?", normalizedEmail).Take(&existing).Error
	if findErr == nil {
		return authgate.UserAccount{}, fmt.Errorf("store.users.create: %w", ErrEmailExists)
	}
	if !errors.Is(findErr, gorm.ErrRecordNotFound) {
		return authgate.UserAccount{}, fmt.Errorf("store.users.create: %w", findErr)
	}
	now := time.Now().UTC()
	record := UserRecord{
		ID:            newUserID(now),
		Email:         normalizedEmail,
		PasswordHash:  string(hash),
		Role:          normalizedRole,
		Name:          name,
		CreatedAtUnix: now.Unix(),
		UpdatedAtUnix: now.Unix(),
	}
	if createErr := users.database.gorm.WithContext(ctx).Create(&record).Error; createErr != nil {
		return authgate.UserAccount{}, fmt.Errorf("store.users.create: %w", createErr)
	}
	return accountOf(record), nil
}

func accountOf(record UserRecord) authgate.UserAccount {
	return authgate.UserAccount{
		ID:           record.ID,
		Email:        record.Email,
		PasswordHash: record.PasswordHash,
		Role:         record.Role,
		Name:         record.Name,
		AvatarURL:    record.AvatarURL,
	}
}

func newUserID(now time.Time) string {
	nowString := now.UTC().Format(time.RFC3339Nano)
	return "u-" + base64.RawURLEncoding.EncodeToString([]byte(nowString))
}
