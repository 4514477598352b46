package engine

import (
	"errors"
	"fmt"
	"strconv"

	apperrors "github.com/JLTC3111/Quyenhair/pkg/errors"
	"github.com/JLTC3111/Quyenhair/pkg/validator"
)

// ErrNotFound matches errors for an unknown review id.
var ErrNotFound = apperrors.ErrNotFound

// ValidationError reports the first invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// validate runs struct tag validation and reduces the result to a single
// ValidationError, picking fields in declaration order.
func validate(input any) error {
	err := validator.Validate(input)
	if err == nil {
		return nil
	}
	var verr *validator.ValidationError
	if !errors.As(err, &verr) || len(verr.Errors) == 0 {
		return err
	}
	first := verr.Errors[0]
	return &ValidationError{Field: first.Field(), Message: verr.Fields()[first.Field()]}
}

func notFound(id int64) error {
	return apperrors.NotFound("review", strconv.FormatInt(id, 10))
}
