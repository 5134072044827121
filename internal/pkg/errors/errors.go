// Package errors carries the error taxonomy of the render service.
// Every error surfaced over HTTP is an *Error with a Code that maps to a status.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Code categorizes an error.
type Code string

const (
	CodeInternal    Code = "INTERNAL_ERROR"
	CodeValidation  Code = "VALIDATION_ERROR"
	CodeGeneration  Code = "GENERATION_ERROR"
	CodeRender      Code = "RENDER_ERROR"
	CodeNotFound    Code = "NOT_FOUND"
	CodeCleanup     Code = "CLEANUP_ERROR"
	CodeConflict    Code = "CONFLICT"
	CodeTimeout     Code = "TIMEOUT"
	CodeUnavailable Code = "UNAVAILABLE"
)

// Error is the service error type.
type Error struct {
	Code    Code
	Message string
	// Op names the failing operation, e.g. "renderer.render".
	Op     string
	Err    error
	Fields map[string]any
	Stack  []Frame
}

// Frame is one captured stack frame.
type Frame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Code != "" {
		b.WriteString("[")
		b.WriteString(string(e.Code))
		b.WriteString("] ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithField attaches a context field and returns e.
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// HTTPStatus maps the code to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeValidation:
		return 400
	case CodeNotFound:
		return 404
	case CodeConflict:
		return 409
	case CodeUnavailable:
		return 503
	case CodeTimeout:
		return 504
	default:
		// GENERATION_ERROR and RENDER_ERROR are server-side failures.
		return 500
	}
}

// StackTrace formats the captured stack, one frame per line.
func (e *Error) StackTrace() string {
	if len(e.Stack) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range e.Stack {
		fmt.Fprintf(&b, "  %s:%d %s\n", f.File, f.Line, f.Function)
	}
	return b.String()
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Stack: captureStack(2)}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Stack: captureStack(2)}
}

// Wrap adds op and message to err, keeping the code of a wrapped *Error.
func Wrap(err error, op string, message string) *Error {
	if err == nil {
		return nil
	}
	code := CodeInternal
	var fields map[string]any
	var e *Error
	if errors.As(err, &e) {
		code = e.Code
		fields = e.Fields
	}
	return &Error{Code: code, Message: message, Op: op, Err: err, Fields: fields, Stack: captureStack(2)}
}

func Wrapf(err error, op string, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	e := Wrap(err, op, fmt.Sprintf(format, args...))
	e.Stack = captureStack(2)
	return e
}

// WrapWithCode wraps err under an explicit code.
func WrapWithCode(err error, code Code, op string, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Op: op, Err: err, Stack: captureStack(2)}
}

func Internal(message string) *Error { return New(CodeInternal, message) }

func NotFound(resource string, id string) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s not found: %s", resource, id)).
		WithField("resource", resource).
		WithField("id", id)
}

func Validation(message string) *Error { return New(CodeValidation, message) }

// ValidationField reports a rejected request field.
func ValidationField(field string, message string) *Error {
	return New(CodeValidation, message).WithField("field", field)
}

// Generation reports a script that failed structural validation.
func Generation(message string) *Error { return New(CodeGeneration, message) }

// Render reports a failed renderer run. diagnostic is the captured stderr
// and is exposed to clients under the "diagnostic" field.
func Render(message, diagnostic string) *Error {
	e := New(CodeRender, message)
	if diagnostic != "" {
		e.WithField("diagnostic", diagnostic)
	}
	return e
}

// Cleanup is logged by the file manager and never returned to callers.
func Cleanup(path string, err error) *Error {
	return WrapWithCode(err, CodeCleanup, "files.cleanup", "could not remove "+path).WithField("path", path)
}

func Timeout(operation string) *Error {
	return New(CodeTimeout, "operation timed out: "+operation).WithField("operation", operation)
}

func Unavailable(service string) *Error {
	return New(CodeUnavailable, "service unavailable: "+service).WithField("service", service)
}

// GetCode returns the code of the first *Error in the chain, or CodeInternal.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func GetHTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return 500
}

// GetFields collects fields along the whole chain; outer errors win.
func GetFields(err error) map[string]any {
	var out map[string]any
	for err != nil {
		if e, ok := err.(*Error); ok && len(e.Fields) > 0 {
			if out == nil {
				out = make(map[string]any)
			}
			for k, v := range e.Fields {
				if _, set := out[k]; !set {
					out[k] = v
				}
			}
		}
		err = errors.Unwrap(err)
	}
	return out
}

func IsCode(err error, code Code) bool { return GetCode(err) == code }

func IsNotFound(err error) bool { return IsCode(err, CodeNotFound) }

func IsValidation(err error) bool { return IsCode(err, CodeValidation) }

func captureStack(skip int) []Frame {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip+1, pcs[:])

	frames := make([]Frame, 0, n)
	it := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := it.Next()
		if !strings.Contains(frame.File, "runtime/") {
			frames = append(frames, Frame{File: frame.File, Line: frame.Line, Function: frame.Function})
		}
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

func As(err error, target any) bool { return errors.As(err, target) }

func Is(err, target error) bool { return errors.Is(err, target) }
