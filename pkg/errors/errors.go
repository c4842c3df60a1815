// Package errors provides the structured error taxonomy for resultstore with error codes, categories, and context.
package errors

import (
	"encoding/json"
	"fmt"
	"time"
)

// ErrorCode represents a structured error code for result storage operations.
type ErrorCode string

const (
	// Configuration errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig ErrorCode = "MISSING_CONFIG"
	ErrCodeConfigLoad    ErrorCode = "CONFIG_LOAD"

	// Connection errors
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	ErrCodeNotInitialized   ErrorCode = "NOT_INITIALIZED"

	// Storage errors
	ErrCodeObjectNotFound ErrorCode = "OBJECT_NOT_FOUND"
	ErrCodeBucketNotFound ErrorCode = "BUCKET_NOT_FOUND"
	ErrCodeStorageWrite   ErrorCode = "STORAGE_WRITE"
	ErrCodeStorageRead    ErrorCode = "STORAGE_READ"
	ErrCodeStorageList    ErrorCode = "STORAGE_LIST"

	// Document errors
	ErrCodeDocumentKeyMissing ErrorCode = "DOCUMENT_KEY_MISSING"
	ErrCodeDocumentDecode     ErrorCode = "DOCUMENT_DECODE"
	ErrCodeDocumentEncode     ErrorCode = "DOCUMENT_ENCODE"
	ErrCodeInvalidDocumentID  ErrorCode = "INVALID_DOCUMENT_ID"

	// Schema errors
	ErrCodeSchemaValidation ErrorCode = "SCHEMA_VALIDATION"
	ErrCodeSchemaInvalid    ErrorCode = "SCHEMA_INVALID"

	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryConnection    ErrorCategory = "connection"
	CategoryStorage       ErrorCategory = "storage"
	CategoryDocument      ErrorCategory = "document"
	CategorySchema        ErrorCategory = "schema"
	CategoryInternal      ErrorCategory = "internal"
)

// Sentinel errors for errors.Is matching. Matching compares codes only.
var (
	ErrConfiguration     = &ResultStoreError{Code: ErrCodeMissingConfig}
	ErrSchema            = &ResultStoreError{Code: ErrCodeSchemaValidation}
	ErrKeyMissing        = &ResultStoreError{Code: ErrCodeDocumentKeyMissing}
	ErrNotFound          = &ResultStoreError{Code: ErrCodeObjectNotFound}
	ErrDeserialization   = &ResultStoreError{Code: ErrCodeDocumentDecode}
	ErrNotConnected      = &ResultStoreError{Code: ErrCodeNotInitialized}
	ErrInvalidDocumentID = &ResultStoreError{Code: ErrCodeInvalidDocumentID}
)

// ResultStoreError represents a structured error with context and metadata.
type ResultStoreError struct {
	Code     ErrorCode     `json:"code"`
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`

	Context   map[string]string `json:"context,omitempty"`
	Cause     error             `json:"-"`
	Timestamp time.Time         `json:"timestamp"`

	Component string `json:"component"`
	Operation string `json:"operation,omitempty"`
}

// Error implements the error interface.
func (e *ResultStoreError) Error() string {
	var msg string
	if e.Component != "" {
		if e.Operation != "" {
			msg = fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
		} else {
			msg = fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, e.Message)
		}
	} else {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause error for error wrapping compatibility.
func (e *ResultStoreError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error (for errors.Is compatibility).
// Configuration codes all match ErrConfiguration.
func (e *ResultStoreError) Is(target error) bool {
	t, ok := target.(*ResultStoreError)
	if !ok {
		return false
	}
	if t == ErrConfiguration {
		return GetCategory(e.Code) == CategoryConfiguration
	}
	return e.Code == t.Code
}

// JSON returns the error as a JSON string, with the cause message and the
// recommendation included.
func (e *ResultStoreError) JSON() string {
	type plain ResultStoreError
	out := struct {
		*plain
		Cause          string `json:"cause,omitempty"`
		Recommendation string `json:"recommendation"`
	}{plain: (*plain)(e), Recommendation: e.GetRecommendation()}
	if e.Cause != nil {
		out.Cause = e.Cause.Error()
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal error: %s"}`, err.Error())
	}
	return string(data)
}

// NewError creates a new error with default values.
func NewError(code ErrorCode, message string) *ResultStoreError {
	return &ResultStoreError{
		Code:      code,
		Category:  GetCategory(code),
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]string),
	}
}

// Wrap creates a new error with the given cause.
func Wrap(code ErrorCode, message string, cause error) *ResultStoreError {
	return NewError(code, message).WithCause(cause)
}

// GetCategory determines the category based on the error code.
func GetCategory(code ErrorCode) ErrorCategory {
	switch code {
	case ErrCodeInvalidConfig, ErrCodeMissingConfig, ErrCodeConfigLoad:
		return CategoryConfiguration
	case ErrCodeConnectionFailed, ErrCodeNotInitialized:
		return CategoryConnection
	case ErrCodeObjectNotFound, ErrCodeBucketNotFound, ErrCodeStorageWrite,
		ErrCodeStorageRead, ErrCodeStorageList:
		return CategoryStorage
	case ErrCodeDocumentKeyMissing, ErrCodeDocumentDecode, ErrCodeDocumentEncode,
		ErrCodeInvalidDocumentID:
		return CategoryDocument
	case ErrCodeSchemaValidation, ErrCodeSchemaInvalid:
		return CategorySchema
	default:
		return CategoryInternal
	}
}

// CodeOf returns the code of the first ResultStoreError in err's chain,
// or an empty code when there is none.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if e, ok := err.(*ResultStoreError); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// WithContext adds contextual information to an error
func (e *ResultStoreError) WithContext(key, value string) *ResultStoreError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithComponent sets the component for an error
func (e *ResultStoreError) WithComponent(component string) *ResultStoreError {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error
func (e *ResultStoreError) WithOperation(operation string) *ResultStoreError {
	e.Operation = operation
	return e
}

// WithCause sets the underlying cause
func (e *ResultStoreError) WithCause(cause error) *ResultStoreError {
	e.Cause = cause
	return e
}

// GetRecommendation returns a short hint for fixing the error
func (e *ResultStoreError) GetRecommendation() string {
	switch e.Code {
	case ErrCodeMissingConfig:
		return "Pass the value explicitly or set THOTH_DEPLOYMENT_NAME and " +
			"THOTH_CEPH_BUCKET_PREFIX in the environment."
	case ErrCodeConnectionFailed:
		return "Verify the S3 endpoint, bucket and credentials " +
			"(THOTH_S3_ENDPOINT_URL, THOTH_CEPH_BUCKET, THOTH_CEPH_KEY_ID, THOTH_CEPH_SECRET_KEY)."
	case ErrCodeNotInitialized:
		return "Call Connect before issuing storage operations."
	case ErrCodeObjectNotFound:
		return "No document is stored under this id in the adapter namespace. " +
			"Check the deployment name and result type."
	case ErrCodeBucketNotFound:
		return "The configured bucket does not exist or is not accessible."
	case ErrCodeSchemaValidation:
		return "The document does not satisfy the result schema; see the cause for the violation."
	case ErrCodeDocumentKeyMissing:
		return "Documents must carry metadata.hostname; it is used as the document id."
	case ErrCodeInvalidDocumentID:
		return "Document ids must be non-empty and must not contain '/'."
	default:
		return "Please check the error message for details."
	}
}
