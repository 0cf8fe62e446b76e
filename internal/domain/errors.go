package domain

import (
	"errors"
	"fmt"
	"time"
)

// MCPError represents a standardized error response
type MCPError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *MCPError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput        = "INVALID_INPUT"
	ErrValidation          = "VALIDATION_ERROR"
	ErrNotFound            = "NOT_FOUND"
	ErrIncompleteAnswers   = "INCOMPLETE_ANSWERS"
	ErrCalculationRejected = "CALCULATION_REJECTED"
	ErrExternalAPI         = "EXTERNAL_API_ERROR"
	ErrRateLimit           = "RATE_LIMIT_EXCEEDED"
	ErrServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrInternalServer      = "INTERNAL_SERVER_ERROR"
)

// Lookup and state errors shared by services and transports
var (
	ErrScaleNotFound        = errors.New("scale not found")
	ErrDrugNotFound         = errors.New("drug not found")
	ErrPresentationNotFound = errors.New("presentation not found")
	ErrCRIDrugNotFound      = errors.New("CRI drug not found")
	ErrSessionNotFound      = errors.New("assessment session not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrIncomplete           = errors.New("assessment is incomplete")
	ErrAdvisoryDisabled     = errors.New("advisory service is disabled")
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Rejection reasons for infeasible CRI preparations
const (
	ReasonInvalidWeight        = "invalid_weight"
	ReasonInvalidBagInput      = "invalid_bag_parameters"
	ReasonInvalidSyringeInput  = "invalid_syringe_parameters"
	ReasonBagVolumeExceeded    = "bag_volume_exceeded"
	ReasonInvalidConcentration = "invalid_concentration"
	ReasonNegativeDiluent      = "negative_diluent"
)

// CalculationError explains why a calculation produced no result
type CalculationError struct {
	Reason  string `json:"reason"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *CalculationError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Message)
	}
	return e.Message
}

// NewMCPError creates a new MCPError with timestamp
func NewMCPError(code, message, details, requestID string) *MCPError {
	return &MCPError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewCalculationError creates a new CalculationError
func NewCalculationError(reason, title, message string) *CalculationError {
	return &CalculationError{
		Reason:  reason,
		Title:   title,
		Message: message,
	}
}

// ErrorCode maps an error to the standardized code used in API responses
func ErrorCode(err error) string {
	var mcpErr *MCPError
	var valErr *ValidationError
	var calcErr *CalculationError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &mcpErr):
		return mcpErr.Code
	case errors.As(err, &valErr):
		return ErrValidation
	case errors.As(err, &calcErr):
		return ErrCalculationRejected
	case errors.Is(err, ErrScaleNotFound), errors.Is(err, ErrDrugNotFound),
		errors.Is(err, ErrPresentationNotFound), errors.Is(err, ErrCRIDrugNotFound),
		errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrQuestionNotFound):
		return ErrNotFound
	case errors.Is(err, ErrIncomplete):
		return ErrIncompleteAnswers
	case errors.Is(err, ErrAdvisoryDisabled):
		return ErrServiceUnavailable
	default:
		return ErrInternalServer
	}
}
