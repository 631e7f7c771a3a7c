package util

import "errors"

type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code and message, so a sentinel
// such as ErrConnection matches the copies produced by Wrap.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Wrap returns a copy of the sentinel carrying err as its cause.
func (e *AppError) Wrap(err error) *AppError {
	if err == nil {
		return e
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: err.Error(),
		Err:     err,
	}
}

var (
	ErrNotFound           = &AppError{Code: 404, Message: "Not found"}
	ErrInternalServer     = &AppError{Code: 500, Message: "Internal server error"}
	ErrBadRequest         = &AppError{Code: 400, Message: "Bad request"}
	ErrServiceUnavailable = &AppError{Code: 503, Message: "Service unavailable"}
	ErrEngineTimeout      = &AppError{Code: 504, Message: "Engine timeout"}
	ErrEngineUnavailable  = &AppError{Code: 503, Message: "Engine unavailable"}
	ErrConnection         = &AppError{Code: 503, Message: "Engine unreachable"}
	ErrQueryInvalid       = &AppError{Code: 400, Message: "Invalid query"}
	ErrCacheError         = &AppError{Code: 500, Message: "Cache error"}
)

func WrapError(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    500,
		Message: message,
		Details: err.Error(),
		Err:     err,
	}
}

// StatusCode maps err to an HTTP status, defaulting to 500.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	return 500
}
