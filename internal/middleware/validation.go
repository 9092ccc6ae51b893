package middleware

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "adpulse/internal/errors"
	"adpulse/pkg/contracts/domain"
)

// Validator validates request payloads with struct tags. Custom tags cover
// the domain vocabulary: merge policies, aggregation buckets and ISO dates.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a request validator.
func NewValidator() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("mergepolicy", isMergePolicy)
	_ = v.RegisterValidation("bucket", isBucket)
	_ = v.RegisterValidation("isodate", isISODate)

	// Use JSON tag names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Struct validates a request struct, mapping the first violation to a
// validation error suitable for an RFC 7807 response.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var violations validator.ValidationErrors
	if ok := asValidationErrors(err, &violations); ok && len(violations) > 0 {
		f := violations[0]
		return apperrors.ErrValidation(f.Field(), describeViolation(f))
	}
	return apperrors.NewValidationError("invalid request payload", err)
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}

func describeViolation(f validator.FieldError) string {
	switch f.Tag() {
	case "required":
		return "is required"
	case "mergepolicy":
		return fmt.Sprintf("must be %q or %q", domain.SkipDuplicates, domain.OverwriteDuplicates)
	case "bucket":
		return fmt.Sprintf("must be one of %q, %q, %q",
			domain.BucketDaily, domain.BucketWeekly, domain.BucketMonthly)
	case "isodate":
		return "must be a YYYY-MM-DD date"
	case "min":
		return fmt.Sprintf("must be at least %s", f.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", f.Param())
	default:
		return fmt.Sprintf("failed %s validation", f.Tag())
	}
}

// isMergePolicy accepts the known merge policies; empty means the default.
func isMergePolicy(fl validator.FieldLevel) bool {
	_, err := domain.ParseMergePolicy(fl.Field().String())
	return err == nil
}

// isBucket accepts the known aggregation buckets; empty means the default.
func isBucket(fl validator.FieldLevel) bool {
	_, err := domain.ParseBucket(fl.Field().String())
	return err == nil
}

// isISODate accepts empty or a YYYY-MM-DD date.
func isISODate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := time.Parse(domain.DateFormat, s)
	return err == nil
}
