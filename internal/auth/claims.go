package auth

import (
	"accounts_service/internal/lib/jwt"
	"accounts_service/internal/models"

	"github.com/google/uuid"
)

const refreshTokenType = "rt+jwt"

type AppMetadata struct {
	Authorization models.Authorization `json:"authorization"`
}

type AccessClaims struct {
	jwt.Envelope
	UserID      uuid.UUID   `json:"id"`
	AppMetadata AppMetadata `json:"app_metadata"`
}

type RefreshClaims struct {
	jwt.Envelope
	TokenID    uuid.UUID `json:"tokenId"`
	UserID     uuid.UUID `json:"id"`
	TokenType  string    `json:"tokenType"`
	LastUsedAt int64     `json:"lastUsedAt"`
}

type ConfirmEmailClaims struct {
	jwt.Envelope
	Email string `json:"email"`
}

type ResetPasswordClaims struct {
	jwt.Envelope
	UserID uuid.UUID `json:"id"`
}
