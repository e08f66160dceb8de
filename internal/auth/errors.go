package auth

import (
	"errors"
	"fmt"

	"accounts_service/internal/lib/apperr"
	"accounts_service/internal/lib/jwt"
)

// tokenError maps a codec verification failure to the error shown to the
// caller.
func tokenError(op string, err error) error {
	if errors.Is(err, jwt.ErrExpired) {
		return apperr.Unauthorized(apperr.MsgExpiredToken).Wrap(fmt.Errorf("%s: %w", op, err))
	}
	return apperr.Unauthorized(apperr.MsgInvalidToken).Wrap(fmt.Errorf("%s: %w", op, err))
}

func tokenNotCreated(op string, err error) error {
	return apperr.BadRequest(apperr.MsgTokenNotCreated).Wrap(fmt.Errorf("%s: %w", op, err))
}
