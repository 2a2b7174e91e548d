package dto

import (
	"time"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/google/uuid"
)

type RegisterDTO struct {
	Name            string `json:"name"             validate:"required,min=1,max=100"`
	Email           string `json:"email"            validate:"required,email"`
	Password        string `json:"password"         validate:"required,min=8,max=50,strongpwd"`
	ConfirmPassword string `json:"confirm_password" validate:"required,min=8,max=50,strongpwd,eqfield=Password"`
	DateOfBirth     string `json:"date_of_birth"    validate:"iso8601"`
}

type LoginDTO struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=50"`
}

type RefreshDTO struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutDTO struct {
	RefreshToken string `json:"refresh_token"`
}

type VerifyEmailDTO struct {
	EmailVerifyToken string `json:"email_verify_token"`
}

type ForgotPasswordDTO struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyForgotPasswordDTO struct {
	ForgotPasswordToken string `json:"forgot_password_token"`
}

type ResetPasswordDTO struct {
	ForgotPasswordToken string `json:"forgot_password_token"`
	Password            string `json:"password"         validate:"required,min=8,max=50,strongpwd"`
	ConfirmPassword     string `json:"confirm_password" validate:"required,min=8,max=50,strongpwd,eqfield=Password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type TokensResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type TokensResponse struct {
	Message string       `json:"message"`
	Result  TokensResult `json:"result"`
}

func NewTokensResponse(msg string, pair model.TokenPair) TokensResponse {
	return TokensResponse{
		Message: msg,
		Result:  TokensResult{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
	}
}

// UserResponse is the public projection of a user. The password digest and
// pending tokens never leave the service.
type UserResponse struct {
	ID          uuid.UUID `json:"_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Verify      int       `json:"verify"`
	Bio         string    `json:"bio"`
	Location    string    `json:"location"`
	Website     string    `json:"website"`
	Username    string    `json:"username"`
	Avatar      string    `json:"avatar"`
	CoverPhoto  string    `json:"cover_photo"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewUserResponse(u model.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		DateOfBirth: u.DateOfBirth,
		Verify:      int(u.Verify),
		Bio:         u.Bio,
		Location:    u.Location,
		Website:     u.Website,
		Username:    u.Username,
		Avatar:      u.Avatar,
		CoverPhoto:  u.CoverPhoto,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

type UserResponseEnvelope struct {
	Message string       `json:"message"`
	Result  UserResponse `json:"result"`
}
