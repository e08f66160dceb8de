package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

const (
	UsernameMaxLength = 22
	EmailMaxLength    = 100
)

// usernames never contain '@': a login names a username or an email, never both
var usernameRegexp = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var emailValidator = validator.New()

// * New returns a validator with the "username" tag registered
func New() *validator.Validate {
	v := validator.New()

	// only fails for an empty tag name or a nil func
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return ValidUsername(fl.Field().String())
	})

	return v
}

func ValidUsername(username string) bool {
	return len(username) <= UsernameMaxLength && usernameRegexp.MatchString(username)
}

func ValidEmail(email string) bool {
	return len(email) <= EmailMaxLength && emailValidator.Var(email, "required,email") == nil
}
