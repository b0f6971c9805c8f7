package errors

import "net/http"

// Error code constants. Errors carry code + params; the manager frontend
// owns presentation. Backend logs are always English.

// Event error codes.
const (
	CodeEventNotFound  = "EVENT_NOT_FOUND"
	CodeEventFrozen    = "EVENT_FROZEN"
	CodeEventCorrupted = "EVENT_STATE_CORRUPTED"
)

// Task / HIL error codes.
const (
	CodeTaskNotFound   = "TASK_NOT_FOUND"
	CodeTaskNotPending = "TASK_NOT_PENDING"
	CodeTaskWrongType  = "TASK_WRONG_TYPE"
)

// Persistence error codes.
const (
	CodeLockTimeout  = "LOCK_TIMEOUT"
	CodeStateLoad    = "STATE_LOAD_FAILED"
	CodeStateSave    = "STATE_SAVE_FAILED"
	CodeTenantInvalid = "TENANT_INVALID"
)

// Auth error codes.
const (
	CodeAuthFailed      = "AUTH_FAILED"
	CodeAuthModeInvalid = "AUTH_MODE_INVALID"
	CodeTokenExpired    = "TOKEN_EXPIRED"
	CodeTokenInvalid    = "TOKEN_INVALID"
)

// Validation error codes.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidRequestField = "INVALID_REQUEST_FIELD"
	CodeValidationFailed    = "VALIDATION_FAILED"
)

// Convenience constructors using predefined codes.

// ErrEventNotFoundf creates an event not found error.
func ErrEventNotFoundf(eventID string) *AppError {
	return (&AppError{
		Code:       CodeEventNotFound,
		Message:    "event not found",
		HTTPStatus: http.StatusNotFound,
	}).WithParams(map[string]interface{}{"event_id": eventID})
}

// ErrTaskNotFoundf creates a task not found error.
func ErrTaskNotFoundf(taskID string) *AppError {
	return (&AppError{
		Code:       CodeTaskNotFound,
		Message:    "task not found",
		HTTPStatus: http.StatusNotFound,
	}).WithParams(map[string]interface{}{"task_id": taskID})
}

// ErrLockTimeoutf creates a retryable lock-timeout error (503).
func ErrLockTimeoutf(teamID string) *AppError {
	return (&AppError{
		Code:       CodeLockTimeout,
		Message:    "state file is locked by another turn; retry",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        ErrLockTimeout,
	}).WithParams(map[string]interface{}{"team_id": teamID})
}

// ErrInvalidRequestFieldf creates a bad request error naming the offending field.
func ErrInvalidRequestFieldf(fieldName string) *AppError {
	return &AppError{
		Code:       CodeInvalidRequestField,
		Message:    "request contains invalid field: " + fieldName,
		HTTPStatus: http.StatusBadRequest,
	}
}
