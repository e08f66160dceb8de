package apperr

import (
	"errors"
	"net/http"
	"strings"
)

type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindUnprocessableEntity
)

const (
	MsgInternal                = "Internal server error"
	MsgValidation              = "Please check the entered values and try again"
	MsgUserAlreadyRegistered   = "User already registered"
	MsgNonExistentUser         = "Non-existent user"
	MsgConfirmEmail            = "Please, confirm your email to login"
	MsgEmailAlreadyConfirmed   = "email already confirmed"
	MsgPasswordsDoNotMatch     = "Passwords do not match"
	MsgWeakPassword            = "Weak password"
	MsgInvalidUsername         = "Invalid username"
	MsgInvalidEmail            = "Invalid email"
	MsgPasswordIncorrect       = "password incorrect"
	MsgTokenAlreadyUsed        = "Token already used"
	MsgNoToken                 = "No token"
	MsgExpiredToken            = "Expired token"
	MsgInvalidToken            = "Invalid token"
	MsgTokenNotCreated         = "Token not created"
	MsgUnauthorized            = "Unauthorization"
	MsgForbidden               = "Forbidden"
	MsgEmailNotSent            = "Email not sent"
	MsgEmailTemplateNotRender  = "Email template not rendered"
	MsgAlreadyRegisteredVerify = MsgUserAlreadyRegistered + " - " + MsgConfirmEmail
)

func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUnprocessableEntity:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindUnprocessableEntity:
		return "unprocessable_entity"
	default:
		return "internal"
	}
}

// Error is a domain failure that is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Details []string

	// Err is the underlying cause. It is logged, never serialized.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Details) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Details, "; "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func newError(kind Kind, msg string, details []string) *Error {
	return &Error{Kind: kind, Message: msg, Details: details}
}

func BadRequest(msg string, details ...string) *Error {
	return newError(KindBadRequest, msg, details)
}

func Unauthorized(msg string, details ...string) *Error {
	return newError(KindUnauthorized, msg, details)
}

func Forbidden(msg string, details ...string) *Error {
	return newError(KindForbidden, msg, details)
}

func NotFound(msg string, details ...string) *Error {
	return newError(KindNotFound, msg, details)
}

func UnprocessableEntity(msg string, details ...string) *Error {
	return newError(KindUnprocessableEntity, msg, details)
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
