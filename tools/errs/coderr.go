package errs

import (
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Error codes shared by the HTTP surface and the client SDK.
const (
	CodeUnauthorized   = 401
	CodeNotFound       = 404
	CodeInvalidContent = 422
	CodeUnavailable    = 503
)

// Sentinel errors of the service taxonomy. Compare with errs.Is.
var (
	ErrUnauthorized   = NewCodeError(CodeUnauthorized, "unauthorized")
	ErrNotFound       = NewCodeError(CodeNotFound, "not found")
	ErrInvalidContent = NewCodeError(CodeInvalidContent, "invalid content")
	ErrUnavailable    = NewCodeError(CodeUnavailable, "service unavailable")
)

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// WithDetail returns a copy carrying extra detail; the copy still matches the
// original through Is.
func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

// Wrap attaches a stack trace to the code error.
func (e *CodeError) Wrap() error {
	return errors.WithStack(e)
}

// WrapMsg attaches detail and a stack trace.
func (e *CodeError) WrapMsg(detail string) error {
	return errors.WithStack(e.WithDetail(detail))
}

// Is matches any error in the chain carrying the same code.
func (e *CodeError) Is(target error) bool {
	var ce *CodeError
	if !stderrors.As(target, &ce) {
		return false
	}
	return e.Code == ce.Code
}

// Is reports whether err carries the same code as target anywhere in its chain.
func Is(err, target error) bool {
	var ce *CodeError
	if !stderrors.As(err, &ce) {
		return false
	}
	var te *CodeError
	if !stderrors.As(target, &te) {
		return false
	}
	return ce.Code == te.Code
}

// CodeOf extracts the taxonomy code from err, or 0 if err carries none.
func CodeOf(err error) int {
	var ce *CodeError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return 0
}

func New(msg string) error {
	return errors.New(msg)
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(err)
}

func WrapMsg(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
