package model

import (
	"time"

	"github.com/google/uuid"
)

// VerifyStatus is the verification state of an account.
// Banned is terminal for every token flow.
type VerifyStatus int

const (
	Unverified VerifyStatus = iota
	Verified
	Banned
)

func (s VerifyStatus) String() string {
	switch s {
	case Unverified:
		return "unverified"
	case Verified:
		return "verified"
	case Banned:
		return "banned"
	default:
		return "unknown"
	}
}

// TokenPurpose is the purpose tag embedded in every signed token.
type TokenPurpose string

const (
	PurposeAccess         TokenPurpose = "access_token"
	PurposeRefresh        TokenPurpose = "refresh_token"
	PurposeEmailVerify    TokenPurpose = "email_verify_token"
	PurposeForgotPassword TokenPurpose = "forgot_password_token"
)

// PendingToken is a single-use token stored on the user record.
// A nil *PendingToken means no token is outstanding for that slot.
type PendingToken struct {
	Purpose  TokenPurpose
	Value    string
	IssuedAt time.Time
}

// Matches reports whether p is outstanding and equal to value.
func (p *PendingToken) Matches(value string) bool {
	return p != nil && value != "" && p.Value == value
}

type Profile struct {
	Bio         string
	Location    string
	Website     string
	Username    string
	Avatar      string
	CoverPhoto  string
	DateOfBirth time.Time
}

type User struct {
	ID                  uuid.UUID
	Email               string
	PasswordDigest      string
	Name                string
	Verify              VerifyStatus
	EmailVerifyToken    *PendingToken
	ForgotPasswordToken *PendingToken
	Profile
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PendingToken returns the slot for purpose, nil for non pending purposes.
func (u *User) PendingToken(purpose TokenPurpose) *PendingToken {
	switch purpose {
	case PurposeEmailVerify:
		return u.EmailVerifyToken
	case PurposeForgotPassword:
		return u.ForgotPasswordToken
	default:
		return nil
	}
}

// UserUpdate is the field set applied when a pending token is consumed.
type UserUpdate struct {
	Verify         *VerifyStatus
	PasswordDigest *string
	UpdatedAt      time.Time
}

// RefreshToken is a persisted session. UserID is a lookup key, deleting the
// user does not remove its sessions.
type RefreshToken struct {
	Token     string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// TokenPayload is rebuilt from a token on every verification.
type TokenPayload struct {
	ID        string
	UserID    uuid.UUID
	Purpose   TokenPurpose
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// VerifyEmailResult distinguishes the first verification from a repeat.
type VerifyEmailResult struct {
	Message         string
	AlreadyVerified bool
	Tokens          *TokenPair
}
