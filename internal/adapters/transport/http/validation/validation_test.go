package validation

import (
	"errors"
	"testing"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/adapters/transport/http/dto"
	customErrors "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/stretchr/testify/require"
)

func validRegister() dto.RegisterDTO {
	return dto.RegisterDTO{
		Name:            "Alice",
		Email:           "alice@example.com",
		Password:        "Passw0rd!",
		ConfirmPassword: "Passw0rd!",
		DateOfBirth:     "1990-01-01T00:00:00.000Z",
	}
}

func entityErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var ee *customErrors.EntityError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, model.MsgValidationError, ee.Message)
	return ee.Errors
}

func TestStrongPassword(t *testing.T) {
	cases := map[string]bool{
		"Passw0rd!": true,
		"passw0rd!": false,
		"PASSW0RD!": false,
		"Password!": false,
		"Passw0rdd": false,
		"Pa0!":      false,
		"Pässw0rd ": true,
	}
	for pwd, want := range cases {
		require.Equal(t, want, StrongPassword(pwd), pwd)
	}
}

func TestParseISO8601(t *testing.T) {
	for _, s := range []string{"1990-01-01", "1990-01-01T10:00:00Z", "1990-01-01T10:00:00.123+02:00", "1990-01-01T10:00"} {
		_, err := ParseISO8601(s)
		require.NoError(t, err, s)
	}
	for _, s := range []string{"", "01/02/1990", "1990-13-01", "yesterday"} {
		_, err := ParseISO8601(s)
		require.Error(t, err, s)
	}
}

func TestCollector_ValidStruct(t *testing.T) {
	col := New().Collect()
	in := validRegister()
	col.Struct(&in)
	require.NoError(t, col.Err())
}

func TestCollector_AggregatesFieldErrors(t *testing.T) {
	col := New().Collect()
	in := dto.RegisterDTO{
		Email:           "not-an-email",
		Password:        "short",
		ConfirmPassword: "Passw0rd!x",
		DateOfBirth:     "someday",
	}
	col.Struct(&in)

	errs := entityErrors(t, col.Err())
	require.Equal(t, map[string]string{
		"name":             model.MsgNameRequired,
		"email":            model.MsgEmailInvalid,
		"password":         model.MsgPasswordLength,
		"confirm_password": model.MsgConfirmPasswordSame,
		"date_of_birth":    model.MsgDateOfBirthISO8601,
	}, errs)
}

func TestCollector_WeakPassword(t *testing.T) {
	col := New().Collect()
	in := validRegister()
	in.Password = "password1"
	in.ConfirmPassword = "password1"
	col.Struct(&in)

	errs := entityErrors(t, col.Err())
	require.Equal(t, model.MsgPasswordStrong, errs["password"])
	require.Equal(t, model.MsgConfirmPasswordStrong, errs["confirm_password"])
}

func TestCollector_CheckSkipsFailedField(t *testing.T) {
	col := New().Collect()
	in := dto.ForgotPasswordDTO{Email: "bad"}
	col.Struct(&in)

	called := false
	col.Check("email", func() error {
		called = true
		return nil
	})
	require.False(t, called)
	require.True(t, col.failed("email"))
	require.Equal(t, model.MsgEmailInvalid, entityErrors(t, col.Err())["email"])
}

func TestCollector_CheckPlainErrorBecomesFieldMessage(t *testing.T) {
	col := New().Collect()
	col.Check("email", func() error { return errors.New(model.MsgEmailAlreadyExists) })

	errs := entityErrors(t, col.Err())
	require.Equal(t, model.MsgEmailAlreadyExists, errs["email"])
}

func TestCollector_ClassifiedErrorShortCircuits(t *testing.T) {
	col := New().Collect()
	in := dto.LoginDTO{Email: "a@x.com"}
	col.Struct(&in)

	notFound := customErrors.NotFound(model.MsgUserNotFound)
	col.Check("email", func() error { return notFound })
	col.Check("other", func() error {
		t.Fatal("check after a short-circuit must not run")
		return nil
	})

	require.Same(t, notFound, col.Err())
}

func TestCollector_InternalErrorShortCircuits(t *testing.T) {
	col := New().Collect()
	boom := customErrors.WrapInternal(errors.New("db down"), "GetUserByEmail")
	col.Check("email", func() error { return boom })
	require.True(t, customErrors.IsInternal(col.Err()))
}
