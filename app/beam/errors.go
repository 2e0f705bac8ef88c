package beam

import (
	"fmt"
	"strings"
)

type ErrorCode string

const (
	CodeMalformedJSON      ErrorCode = "malformed_json"
	CodeUnsupportedVersion ErrorCode = "unsupported_version"
	CodeMissingField       ErrorCode = "missing_field"
	CodeInvalidField       ErrorCode = "invalid_field"
	CodeDuplicateEntryID   ErrorCode = "duplicate_entry_id"
)

// ValidationError is a single structural violation. Field is the path of
// the offending field; entry-level violations are prefixed "items[i].".
type ValidationError struct {
	Code  ErrorCode `json:"code"`
	Field string    `json:"field,omitempty"`
	Value string    `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	switch e.Code {
	case CodeUnsupportedVersion:
		if e.Value == "" {
			return "unsupported version: missing"
		}
		return fmt.Sprintf("unsupported version: %q", e.Value)
	case CodeMissingField:
		return fmt.Sprintf("missing required field %q", e.Field)
	case CodeInvalidField:
		if e.Value != "" {
			return fmt.Sprintf("invalid field %q: %s", e.Field, e.Value)
		}
		return fmt.Sprintf("invalid field %q", e.Field)
	case CodeDuplicateEntryID:
		return fmt.Sprintf("duplicate entry id %q at %s", e.Value, e.Field)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Field)
	}
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		msgs = append(msgs, v.Error())
	}
	return strings.Join(msgs, "; ")
}

func missingField(field string) ValidationError {
	return ValidationError{Code: CodeMissingField, Field: field}
}

func invalidField(field, value string) ValidationError {
	return ValidationError{Code: CodeInvalidField, Field: field, Value: value}
}

func duplicateEntryID(field, id string) ValidationError {
	return ValidationError{Code: CodeDuplicateEntryID, Field: field, Value: id}
}

func unsupportedVersion(got string) ValidationError {
	return ValidationError{Code: CodeUnsupportedVersion, Field: "version", Value: got}
}

// DecodeError is returned by Decode and DecodeLenient. Either Err holds
// the underlying JSON parse error (the input was not valid JSON), or
// Violations holds the accumulated structural violations.
type DecodeError struct {
	Violations ValidationErrors
	Err        error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed JSON: %s", e.Err)
	}
	return fmt.Sprintf("invalid feed: %s", e.Violations.Error())
}

func (e *DecodeError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if len(e.Violations) > 0 {
		return e.Violations
	}
	return nil
}

// Malformed reports whether the input failed JSON parsing, as opposed to
// parsing fine but violating feed structure.
func (e *DecodeError) Malformed() bool {
	return e.Err != nil
}
