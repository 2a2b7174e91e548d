package model

const (
	MsgValidationError = "Validation error"

	MsgNameRequired             = "Name is required"
	MsgNameLength               = "Name length must be from 1 to 100"
	MsgEmailRequired            = "Email is required"
	MsgEmailInvalid             = "Email is invalid"
	MsgEmailAlreadyExists       = "Email already exists"
	MsgEmailOrPasswordIncorrect = "Email or password is incorrect"
	MsgPasswordRequired         = "Password is required"
	MsgPasswordLength           = "Password length must be from 8 to 50"
	MsgPasswordStrong           = "Password must be at least 8 characters long and contain at least 1 lowercase letter, 1 uppercase letter, 1 number, and 1 symbol"
	MsgConfirmPasswordRequired  = "Confirm password is required"
	MsgConfirmPasswordLength    = "Confirm password length must be from 8 to 50"
	MsgConfirmPasswordStrong    = "Confirm password must be at least 8 characters long and contain at least 1 lowercase letter, 1 uppercase letter, 1 number, and 1 symbol"
	MsgConfirmPasswordSame      = "Confirm password must be the same as password"
	MsgDateOfBirthISO8601       = "Date of birth must be ISO8601"

	MsgAccessTokenRequired         = "Access token is required"
	MsgRefreshTokenRequired        = "Refresh token is required"
	MsgRefreshTokenUsedOrNotExist  = "Used refresh token or not exist"
	MsgEmailVerifyTokenRequired    = "Email verify token is required"
	MsgEmailVerifyTokenMismatch    = "Email verify token does not match"
	MsgForgotPasswordTokenRequired = "Forgot password token is required"
	MsgForgotPasswordTokenMismatch = "Forgot password token does not match"
	MsgUserNotFound                = "User not found"
	MsgUserBanned                  = "User is banned"

	MsgRegisterSuccess             = "Register success"
	MsgLoginSuccess                = "Login success"
	MsgLogoutSuccess               = "Logout success"
	MsgRefreshTokenSuccess         = "Refresh token success"
	MsgEmailVerifySuccess          = "Email verify success"
	MsgEmailAlreadyVerified        = "Email already verified before"
	MsgResendEmailVerifySuccess    = "Resend email verify success"
	MsgCheckEmailToResetPassword   = "Check email to reset password"
	MsgVerifyForgotPasswordSuccess = "Verify forgot password token success"
	MsgResetPasswordSuccess        = "Reset password success"
	MsgGetMeSuccess                = "Get my profile success"
)
