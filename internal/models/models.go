package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	PassHash  []byte
	Confirmed bool
}

// Authorization is the role snapshot embedded in an access token.
type Authorization struct {
	UserID      uuid.UUID `json:"userId"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
}

// Can reports whether the snapshot grants perm. The admin role grants all.
func (a Authorization) Can(perm string) bool {
	if a.Role == RoleAdmin {
		return true
	}
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	PermUsersRead   = "users:read"
	PermUsersWrite  = "users:write"
	PermUsersDelete = "users:delete"
)

type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash []byte
	ExpiresAt time.Time
}

type PasswordReset struct {
	UserID uuid.UUID
	Login  string
	Token  string
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Message is a rendered mail queued for delivery.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
