package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

// ValidationError rejects a request before any mutation. Field is empty for
// errors that do not concern a single input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func notFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// fromValidation converts ozzo-validation output into a ValidationError
// reporting the first failing field in name order.
func fromValidation(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		fields := make([]string, 0, len(errs))
		for field, fieldErr := range errs {
			if fieldErr != nil {
				fields = append(fields, field)
			}
		}
		sort.Strings(fields)
		if len(fields) > 0 {
			return invalid(fields[0], errs[fields[0]].Error())
		}
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}
	return invalid("", err.Error())
}

// notFoundOr maps gorm.ErrRecordNotFound to a NotFoundError for resource.
func notFoundOr(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(resource)
	}
	return err
}

// isUniqueConstraintError detects uniqueness violations on postgres and sqlite.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") || strings.Contains(lower, "duplicate")
}
