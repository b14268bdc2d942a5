package config

import (
	"fmt"
	"strings"

	"emperror.dev/errors"
	"github.com/go-playground/validator/v10"

	"github.com/srodi/procscore/pkg/types"
)

// ErrInvalidConfig wraps every validation failure.
const ErrInvalidConfig = errors.Sentinel("invalid configuration")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("tier", func(fl validator.FieldLevel) bool {
		_, ok := types.ParseTier(fl.Field().String())
		return ok
	})
	return v
}

// Validate checks cfg against its field rules.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return errors.WrapIf(err, "validating config")
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := fmt.Sprintf("%s: rule '%s'", e.Namespace(), e.Tag())
		if e.Param() != "" {
			msg += fmt.Sprintf(" (expected: %s)", e.Param())
		}
		msg += fmt.Sprintf(", actual: '%v'", e.Value())
		msgs = append(msgs, msg)
	}
	return errors.Wrap(ErrInvalidConfig, strings.Join(msgs, "; "))
}
