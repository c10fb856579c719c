package errs

import (
	"errors"
	"fmt"
)

// Application error codes. Every code maps onto exactly one HTTP status, see StatusCode.
const (
	// EINTERNAL is used for unexpected failures, mostly failed database writes.
	EINTERNAL = "internal"
	// EINVALID is used when the client sent data that can't be processed.
	EINVALID = "invalid"
	// ENOTFOUND is used when a resource (or a whole page of resources) does not exist.
	ENOTFOUND = "not_found"
	// ENOTALLOWED is used when a route exists, but not for the request's method.
	ENOTALLOWED = "not_allowed"
)

// Error represents an application-specific error. Code determines the HTTP status,
// Title, Message and Resolution make up the json body returned to the client.
// Err holds the underlying cause (for example a failed gorm call). It is logged,
// but never sent to the client.
type Error struct {
	Code       string
	Title      string
	Message    string
	Resolution string
	Err        error
}

// Error implements the error interface. Not used by the client.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("errs: code=%s title=%q message=%q: %v", e.Code, e.Title, e.Message, e.Err)
	}
	return fmt.Sprintf("errs: code=%s title=%q message=%q", e.Code, e.Title, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the same kind of error, which is the case if
// code and title match. It lets errors.Is(err, errs.UserNotFound) work on copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Title == t.Title
}

// The closed set of domain errors the services return.
var (
	ServerError = &Error{
		Code:    EINTERNAL,
		Title:   "Server error",
		Message: "Oops! Something went wrong",
	}
	PasswordError = &Error{
		Code:    EINVALID,
		Title:   "Invalid password",
		Message: "Check the provided password to confirm its validity",
	}
	UserExists = &Error{
		Code:       EINVALID,
		Title:      "User exists",
		Message:    "User provided an existing email",
		Resolution: "Check the provided email to confirm it does not exist already",
	}
	UsersNotFound = &Error{
		Code:    ENOTFOUND,
		Title:   "Users not found",
		Message: "No users at the moment. Check back later!",
	}
	UserNotFound = &Error{
		Code:       ENOTFOUND,
		Title:      "User not found",
		Message:    "User not found with the provided id",
		Resolution: "Confirm that the sent id matches the user id",
	}
	UserNotSignedUp = &Error{
		Code:       ENOTFOUND,
		Title:      "User not signed up",
		Message:    "User account does not exist",
		Resolution: "User should create an account before creating a post",
	}
	PostsNotFound = &Error{
		Code:    ENOTFOUND,
		Title:   "Posts not found",
		Message: "No posts at the moment. Check back later!",
	}
	PostNotFound = &Error{
		Code:       ENOTFOUND,
		Title:      "Post not found",
		Message:    "Post not found with the provided id",
		Resolution: "Confirm that the provided id matches the post's id",
	}
	InvalidImageUrl = &Error{
		Code:       EINVALID,
		Title:      "Invalid URL",
		Message:    "No image exists with the provided image url for the post",
		Resolution: "Check that the provided url matches with the post",
	}
)

// Errorf is a helper function to return an Error with a given code and formatted message.
// The title is derived from the code.
func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Title:   titles[code],
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap returns a copy of kind carrying cause as its underlying error.
func Wrap(kind *Error, cause error) *Error {
	e := *kind
	e.Err = cause
	return &e
}

// Internal wraps cause as a ServerError. It returns nil if cause is nil and passes
// application errors through untouched, so that it can be applied to any error
// coming out of a transaction.
func Internal(cause error) error {
	if cause == nil {
		return nil
	}
	var e *Error
	if errors.As(cause, &e) {
		return cause
	}
	return Wrap(ServerError, cause)
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return the ServerError message.
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return ServerError.Message
}

var titles = map[string]string{
	EINTERNAL:   "Server error",
	EINVALID:    "Invalid input",
	ENOTFOUND:   "Not found",
	ENOTALLOWED: "Method not allowed",
}
