package artifact

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

// ErrSchemaViolation is returned when an artifact does not match the schema.
var ErrSchemaViolation = errors.New("artifact violates schema")

// Violation is one schema error: the offending field and what is wrong.
type Violation struct {
	Field       string
	Description string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Description
}

// Schema returns the embedded JSON Schema for JSON artifacts.
func Schema() []byte {
	return schemaJSON
}

// Validate checks a JSON artifact against the embedded schema. It returns the
// violations found; err is non-nil when data cannot be validated at all.
func Validate(data []byte) ([]Violation, error) {
	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("validate artifact: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		violations = append(violations, Violation{Field: resultErr.Field(), Description: resultErr.Description()})
	}

	return violations, nil
}

// ValidationError joins schema violations into one error matching
// ErrSchemaViolation, or returns nil when there are none.
func ValidationError(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}

	errs := make([]error, 0, len(violations)+1)
	errs = append(errs, ErrSchemaViolation)

	for _, violation := range violations {
		errs = append(errs, errors.New(violation.String())) //nolint:err113 // message-only detail
	}

	return errors.Join(errs...)
}
