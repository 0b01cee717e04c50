package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for the quest service.
const (
	ErrCodeStorageFailure = "STORAGE_FAILURE"
	ErrCodeProviderFetch  = "PROVIDER_FETCH_FAILED"
	ErrCodeMappingFailed  = "MAPPING_FAILED"
	ErrCodeConfigInvalid  = "CONFIG_INVALID"
	ErrCodeQuestNotFound  = "QUEST_NOT_FOUND"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
)

// QuestError represents an error in the quest service.
type QuestError struct {
	Code    string
	Message string
	Err     error
}

func (e *QuestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *QuestError) Unwrap() error {
	return e.Err
}

// NewQuestError creates a new QuestError.
func NewQuestError(code, message string, err error) *QuestError {
	return &QuestError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrStorage wraps a failed read or write against the normalized store.
func ErrStorage(operation string, err error) *QuestError {
	return NewQuestError(ErrCodeStorageFailure, fmt.Sprintf("database error during %s", operation), err)
}

// ErrProviderFetch wraps a failed call to the upstream quest provider.
func ErrProviderFetch(reason string, err error) *QuestError {
	return NewQuestError(ErrCodeProviderFetch, reason, err)
}

// ErrMapping reports a provider document (or one quest inside it) that does
// not have the expected shape.
func ErrMapping(reason string, err error) *QuestError {
	return NewQuestError(ErrCodeMappingFailed, reason, err)
}

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(reason string) *QuestError {
	return NewQuestError(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason), nil)
}

// ErrQuestNotFound returns an error when a quest id is not stored.
func ErrQuestNotFound(questID string) *QuestError {
	return NewQuestError(ErrCodeQuestNotFound, fmt.Sprintf("quest not found: %s", questID), nil)
}

// ErrUnauthorized returns an error for rejected admin credentials.
func ErrUnauthorized(reason string) *QuestError {
	return NewQuestError(ErrCodeUnauthorized, reason, nil)
}

// Code returns the QuestError code carried anywhere in err's chain, or "".
func Code(err error) string {
	var qe *QuestError
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return Code(err) == code
}

// HTTPStatus maps an error to the status returned by the HTTP layer.
func HTTPStatus(err error) int {
	switch Code(err) {
	case ErrCodeProviderFetch:
		return http.StatusBadGateway
	case ErrCodeQuestNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the human readable part of err for response bodies.
func Message(err error) string {
	var qe *QuestError
	if errors.As(err, &qe) {
		if qe.Err != nil {
			return fmt.Sprintf("%s: %v", qe.Message, qe.Err)
		}
		return qe.Message
	}
	return err.Error()
}
