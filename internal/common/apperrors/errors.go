// Package apperrors provides the error taxonomy shared across the agent
// control loop.
package apperrors

import (
	"errors"
	"fmt"
)

// Code names one error kind from the taxonomy. It is a classification, not a
// Go type, so a single AppError value can be inspected generically.
type Code string

const (
	NoDevice               Code = "NoDevice"
	AdbIOError             Code = "AdbIOError"
	InputMethodUnavailable Code = "InputMethodUnavailable"
	Timeout                Code = "Timeout"
	ModelTransient         Code = "ModelTransient"
	ModelPermanent         Code = "ModelPermanent"
	MalformedResponse      Code = "MalformedResponse"
	UnknownApp             Code = "UnknownApp"
	SessionBusy            Code = "SessionBusy"
	Cancelled              Code = "Cancelled"
	StoreError             Code = "StoreError"
)

// AppError is the concrete error type carrying a taxonomy Code, a
// human-readable message, and an HTTPStatus for the benefit of an external
// HTTP front-end that wants to map a core error straight to a status code
// without re-deriving one. The core itself never inspects HTTPStatus.
type AppError struct {
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"httpStatus"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newErr(code Code, status int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// NoDeviceError is raised by Agent preflight when no device is available.
func NoDeviceError(message string) *AppError {
	return newErr(NoDevice, 503, message, nil)
}

// AdbIOErr wraps a failed adb subprocess invocation.
func AdbIOErr(op string, err error) *AppError {
	return newErr(AdbIOError, 502, fmt.Sprintf("adb %s failed", op), err)
}

// InputMethodUnavailableErr is raised when the IME prerequisite for typeText
// is missing on the device.
func InputMethodUnavailableErr(message string) *AppError {
	return newErr(InputMethodUnavailable, 422, message, nil)
}

// TimeoutErr wraps an operation that exceeded its deadline.
func TimeoutErr(op string, elapsed fmt.Stringer) *AppError {
	return newErr(Timeout, 504, fmt.Sprintf("%s timed out after %s", op, elapsed), nil)
}

// ModelTransientErr wraps a retryable model-endpoint failure (5xx, network).
func ModelTransientErr(err error) *AppError {
	return newErr(ModelTransient, 502, "model endpoint transient failure", err)
}

// ModelPermanentErr wraps a non-retryable model-endpoint failure (4xx, auth).
func ModelPermanentErr(err error) *AppError {
	return newErr(ModelPermanent, 502, "model endpoint rejected request", err)
}

// MalformedResponseErr is raised when a model reply does not match the
// `<think>...</think><answer>...</answer>` envelope, or the action text does
// not parse.
func MalformedResponseErr(detail string) *AppError {
	return newErr(MalformedResponse, 502, detail, nil)
}

// UnknownAppErr is raised when AppRegistry cannot resolve a Launch target.
func UnknownAppErr(name string) *AppError {
	return newErr(UnknownApp, 422, fmt.Sprintf("app not supported: %s", name), nil)
}

// SessionBusyErr is raised when SessionManager.Start is called on a session
// with an already-running task.
func SessionBusyErr(sessionID string) *AppError {
	return newErr(SessionBusy, 409, fmt.Sprintf("session %s already has a running task", sessionID), nil)
}

// CancelledErr is raised by any component observing a cancelled token.
func CancelledErr() *AppError {
	return newErr(Cancelled, 499, "operation cancelled", nil)
}

// StoreErr wraps a failed TaskStore/BlobStore call. Never fails the task;
// StepTracker buffers to spill and retries.
func StoreErr(message string, err error) *AppError {
	return newErr(StoreError, 500, message, err)
}

// Wrap returns err unchanged if it is already an *AppError; otherwise it
// wraps err as an InternalError-flavored AppError under StoreError with the
// given message, preserving err via Unwrap.
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return newErr(StoreError, 500, message, err)
}

// Is reports whether err is an *AppError with the given Code.
func Is(err error, code Code) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}
