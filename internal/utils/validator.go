package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

const OTPLength = 6

var validate = validator.New()

// RegisterCustomValidations adds the project's tags to a validator (gin's binding engine included).
func RegisterCustomValidations(v *validator.Validate) {
	_ = v.RegisterValidation("otpcode", func(fl validator.FieldLevel) bool {
		return IsOTPCode(fl.Field().String())
	})
	_ = v.RegisterValidation("localpath", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || IsLocalPath(s)
	})
}

// IsOTPCode reports whether s is exactly six ASCII digits.
func IsOTPCode(s string) bool {
	if len(s) != OTPLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func IsEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsLocalPath accepts same-origin absolute paths only, so redirects can't leave the site.
func IsLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}
