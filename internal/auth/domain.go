package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Domain errors surfaced by the service layer. Credential and token failures
// deliberately collapse into single generic errors so responses never
// disclose which part of the input was wrong.
var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrUsernameTaken      = errors.New("username is already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
)

// User represents a registered account. Password holds an irreversible bcrypt
// hash, never plaintext.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	ProfileImage string
	IsVerified   bool
	FirstName    string
	LastName     string
	DateOfBirth  *time.Time
	Bio          string
	Location     string
	Website      string
	PhoneNumber  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    *time.Time
}

// PublicUser is the sanitized projection returned by signup and verify-email.
type PublicUser struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	IsVerified bool      `json:"isVerified"`
}

// Profile is the full projection returned by signin.
type Profile struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	FirstName    string     `json:"firstName,omitempty"`
	LastName     string     `json:"lastName,omitempty"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`
	ProfileImage string     `json:"profileImage,omitempty"`
	Bio          string     `json:"bio,omitempty"`
	Location     string     `json:"location,omitempty"`
	Website      string     `json:"website,omitempty"`
	PhoneNumber  string     `json:"phoneNumber,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// Public returns the sanitized projection.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		IsVerified: u.IsVerified,
	}
}

// Profile returns the full profile projection.
func (u *User) Profile() Profile {
	return Profile{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		DateOfBirth:  u.DateOfBirth,
		ProfileImage: u.ProfileImage,
		Bio:          u.Bio,
		Location:     u.Location,
		Website:      u.Website,
		PhoneNumber:  u.PhoneNumber,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLogin:    u.LastLogin,
	}
}
