// Package h2herrors defines the error kinds surfaced by every Hive2Hive
// component. A single tagged struct replaces the Java exception hierarchy:
// callers branch on Kind via errors.Is, never on a concrete Go type.
package h2herrors

import "fmt"

// Kind identifies one of the error categories of the design.
type Kind string

const (
	GetFailed               Kind = "GetFailed"
	PutFailed                Kind = "PutFailed"
	NoPeerConnection         Kind = "NoPeerConnection"
	NoSession                Kind = "NoSession"
	IllegalFileLocation      Kind = "IllegalFileLocation"
	InvalidProcessState      Kind = "InvalidProcessState"
	ProcessExecutionFailure  Kind = "ProcessExecutionFailure"
	AbortedByUser            Kind = "AbortedByUser"
)

// Error is the single error type used across the module. It carries the
// kind, a human message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, h2herrors.Sentinel(kind)) work: two *Error values
// match when their Kind matches, regardless of message or cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// Sentinel returns a bare *Error of the given kind, suitable as the target
// of errors.Is.
func Sentinel(k Kind) *Error { return &Error{Kind: k} }

func New(k Kind, message string) *Error {
	return &Error{Kind: k, Message: message}
}

func Wrap(k Kind, message string, cause error) *Error {
	return &Error{Kind: k, Message: message, Cause: cause}
}

func NewGetFailed(message string) *Error           { return New(GetFailed, message) }
func WrapGetFailed(message string, cause error) *Error { return Wrap(GetFailed, message, cause) }

func NewPutFailed(message string) *Error           { return New(PutFailed, message) }
func WrapPutFailed(message string, cause error) *Error { return Wrap(PutFailed, message, cause) }

func NewNoPeerConnection(message string) *Error { return New(NoPeerConnection, message) }

func NewNoSession(message string) *Error { return New(NoSession, message) }

func NewIllegalFileLocation(message string) *Error { return New(IllegalFileLocation, message) }

func NewInvalidProcessState(message string) *Error { return New(InvalidProcessState, message) }

func NewProcessExecutionFailure(message string, cause error) *Error {
	return Wrap(ProcessExecutionFailure, message, cause)
}

func NewAbortedByUser(message string) *Error { return New(AbortedByUser, message) }

// Of reports the Kind of err, if err is (or wraps) an *Error.
func Of(err error) (Kind, bool) {
	var herr *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			herr = e
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	if herr == nil {
		return "", false
	}
	return herr.Kind, true
}
