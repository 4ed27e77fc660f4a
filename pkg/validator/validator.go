// Package validator wraps struct tag validation behind a single helper
// so callers do not depend on the library API directly.
package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct checks the `validate` tags of s and returns a single
// error listing every failed field.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("field %s failed rule %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (param %s)", fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("config validation: %s", strings.Join(msgs, "; "))
}
