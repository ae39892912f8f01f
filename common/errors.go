package common

import (
	"errors"
	"fmt"
)

// ErrorKind tells a caller how to react: fix the input, treat the outcome as
// final, look elsewhere, or retry later.
type ErrorKind int

const (
	KindUnknown    ErrorKind = iota
	KindValidation           // bad input, caller can correct and resubmit
	KindConflict             // terminal outcome, do not retry
	KindNotFound             // unknown entity
	KindStore                // transient storage failure, retry is safe
)

// Machine-readable codes carried by Error.
const (
	CodeAlreadyVoted   = "AlreadyVoted"
	CodePollEnded      = "PollEnded"
	CodeInvalidOption  = "InvalidOption"
	CodeTooManyOptions = "TooManyOptions"
	CodeQuizFull       = "QuizFull"
	CodeQuizEnded      = "QuizEnded"
	CodeAlreadyWinner  = "AlreadyWinner"
	CodeAlreadyClaimed = "AlreadyClaimed"
	CodeNotFound       = "NotFound"
	CodeStoreFailure   = "StoreFailure"
)

type Error struct {
	Kind ErrorKind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Msg, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: code, Msg: fmt.Sprintf(format, args...)}
}

func NewConflictError(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Code: code, Msg: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Msg: fmt.Sprintf(format, args...)}
}

func NewStoreError(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindStore, Code: CodeStoreFailure, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of err, KindUnknown if err is not a *common.Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf reports the machine code of err, empty if err is not a *common.Error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
