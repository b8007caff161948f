package authgate

import "context"

// UserAccount is the gate's view of a stored user record. The gate never
// mutates accounts; creation and updates belong to the store's own surface.
type UserAccount struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	Name         string
	AvatarURL    string
}

// UserStore looks up application users. Implementations return
// ErrUserNotFound when no record matches; any other failure is treated as
// an upstream fault.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (UserAccount, error)
	FindByID(ctx context.Context, userID string) (UserAccount, error)
	UpsertGoogleUser(ctx context.Context, googleSub string, email string, name string, avatarURL string) (UserAccount, error)
}
