package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/text/unicode/norm"

	"github.com/dtroode/chatdata-server/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// invalid turns a validator failure into a ValidationError carrying message.
// The detail lists every offending field.
func invalid(message string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
			return fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
		})
		return model.NewValidationError(message, errors.New(strings.Join(fields, "; ")))
	}
	return model.NewValidationError(message, err)
}

// missingRequired reports whether err contains a failed "required" rule.
func missingRequired(err error) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	return lo.ContainsBy(verrs, func(fe validator.FieldError) bool { return fe.Tag() == "required" })
}

// storeError classifies a store failure. notFound is the message used when the
// store reports a missing entity.
func storeError(notFound string, err error) error {
	switch {
	case errors.Is(err, model.ErrMessageNotFound):
		return model.NewNotFoundError("message not found", err)
	case errors.Is(err, model.ErrNotFound):
		return model.NewNotFoundError(notFound, err)
	case errors.Is(err, model.ErrConflict):
		return model.NewConflictError("already exists", err)
	default:
		return model.NewStorageError("storage failure", err)
	}
}

func parseProfileID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, model.NewValidationError("Invalid ID format", err)
	}
	return parsed, nil
}

// normalizeNickname trims and NFC-normalizes a nickname so that visually equal
// names compare equal.
func normalizeNickname(nickname string) string {
	return norm.NFC.String(strings.TrimSpace(nickname))
}
