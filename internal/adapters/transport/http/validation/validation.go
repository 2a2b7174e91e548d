// Package validation checks request bodies and reports every failing field at
// once, except when a check fails with an error that carries its own status.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	customErrors "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/go-playground/validator/v10"
)

// messages maps "<json field>.<tag>" to the message reported for it.
var messages = map[string]string{
	"name.required": model.MsgNameRequired,
	"name.min":      model.MsgNameLength,
	"name.max":      model.MsgNameLength,

	"email.required": model.MsgEmailRequired,
	"email.email":    model.MsgEmailInvalid,

	"password.required":  model.MsgPasswordRequired,
	"password.min":       model.MsgPasswordLength,
	"password.max":       model.MsgPasswordLength,
	"password.strongpwd": model.MsgPasswordStrong,

	"confirm_password.required":  model.MsgConfirmPasswordRequired,
	"confirm_password.min":       model.MsgConfirmPasswordLength,
	"confirm_password.max":       model.MsgConfirmPasswordLength,
	"confirm_password.strongpwd": model.MsgConfirmPasswordStrong,
	"confirm_password.eqfield":   model.MsgConfirmPasswordSame,

	"date_of_birth.iso8601": model.MsgDateOfBirthISO8601,
}

var iso8601Layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseISO8601 accepts a calendar date with an optional time and zone.
func ParseISO8601(s string) (time.Time, error) {
	for _, layout := range iso8601Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO8601 date", s)
}

// StrongPassword requires at least 8 characters with a lowercase letter, an
// uppercase letter, a digit and a symbol.
func StrongPassword(pwd string) bool {
	if utf8.RuneCountInString(pwd) < 8 {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range pwd {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r), r == ' ':
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("strongpwd", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
		_, err := ParseISO8601(fl.Field().String())
		return err == nil
	})
	return &Validator{v: v}
}

// Collect starts a validation run for one request.
func (v *Validator) Collect() *Collector {
	return &Collector{v: v.v, errs: map[string]string{}}
}

// Collector accumulates field errors. The first error that already carries
// its own status (or an internal failure) wins and stops further checks.
type Collector struct {
	v     *validator.Validate
	errs  map[string]string
	fatal error
}

// Struct runs the validate tags of s, a pointer to a struct.
func (c *Collector) Struct(s any) {
	if c.fatal != nil {
		return
	}
	err := c.v.Struct(s)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		c.fatal = customErrors.WrapInternal(err, "ValidateStruct")
		return
	}
	for _, fe := range fieldErrs {
		if c.failed(fe.Field()) {
			continue
		}
		c.errs[fe.Field()] = message(fe)
	}
}

// Check runs fn for field unless field has already failed.
func (c *Collector) Check(field string, fn func() error) {
	if c.fatal != nil {
		return
	}
	if c.failed(field) {
		return
	}
	err := fn()
	switch {
	case err == nil:
	case customErrors.IsClassified(err), customErrors.IsInternal(err):
		c.fatal = err
	default:
		c.errs[field] = err.Error()
	}
}

func (c *Collector) failed(field string) bool {
	_, ok := c.errs[field]
	return ok
}

// Err returns nil, the short-circuiting error, or an EntityError holding every
// field message.
func (c *Collector) Err() error {
	if c.fatal != nil {
		return c.fatal
	}
	if len(c.errs) == 0 {
		return nil
	}
	return &customErrors.EntityError{Message: model.MsgValidationError, Errors: c.errs}
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	return fmt.Sprintf("Field '%s' is invalid: %s", fe.Field(), fe.Tag())
}
