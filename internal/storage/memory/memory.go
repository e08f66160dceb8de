package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"accounts_service/internal/models"
	"accounts_service/internal/storage"

	"github.com/google/uuid"
)

type passwordReset struct {
	models.PasswordReset
	expiresAt time.Time
}

type Storage struct {
	mu sync.RWMutex

	users       map[uuid.UUID]models.User
	roles       map[uuid.UUID]string
	rolePerms   map[string][]string
	refresh     map[uuid.UUID]models.RefreshToken
	resets      map[uuid.UUID]passwordReset
	now         func() time.Time
	updateCalls int
}

type Option func(*Storage)

func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

func New(opts ...Option) *Storage {
	s := &Storage{
		users:   make(map[uuid.UUID]models.User),
		roles:   make(map[uuid.UUID]string),
		refresh: make(map[uuid.UUID]models.RefreshToken),
		resets:  make(map[uuid.UUID]passwordReset),
		rolePerms: map[string][]string{
			models.RoleAdmin: {models.PermUsersRead, models.PermUsersWrite, models.PermUsersDelete},
			models.RoleUser:  {models.PermUsersRead},
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) SaveUser(_ context.Context, username, email string, passHash []byte) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsernameOrEmail(username, email); ok {
		return uuid.Nil, storage.ErrUserExists
	}

	id := uuid.New()
	s.users[id] = models.User{
		ID:       id,
		Username: username,
		Email:    email,
		PassHash: passHash,
	}
	s.roles[id] = models.RoleUser

	return id, nil
}

func (s *Storage) UserByID(_ context.Context, id uuid.UUID) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return u, nil
}

func (s *Storage) UserByLogin(_ context.Context, login string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.byLogin(login); ok {
		return u, nil
	}
	return models.User{}, storage.ErrUserNotFound
}

func (s *Storage) UserByUsernameOrEmail(_ context.Context, username, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.byUsernameOrEmail(username, email); ok {
		return u, nil
	}
	return models.User{}, storage.ErrUserNotFound
}

func (s *Storage) UpdatePassword(_ context.Context, id uuid.UUID, passHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.PassHash = passHash
	s.users[u.ID] = u
	s.updateCalls++

	return nil
}

func (s *Storage) ConfirmEmail(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			u.Confirmed = true
			s.users[id] = u
			return nil
		}
	}
	return storage.ErrUserNotFound
}

func (s *Storage) DeleteUser(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return storage.ErrUserNotFound
	}

	delete(s.users, id)
	delete(s.roles, id)
	delete(s.resets, id)
	for tid, rt := range s.refresh {
		if rt.UserID == id {
			delete(s.refresh, tid)
		}
	}

	return nil
}

func (s *Storage) RoleAndPermissions(_ context.Context, id uuid.UUID) (models.Authorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role := s.roles[id]
	return models.Authorization{
		UserID:      id,
		Role:        role,
		Permissions: append([]string{}, s.rolePerms[role]...),
	}, nil
}

// SetRole assigns role to a user. The role must be seeded.
func (s *Storage) SetRole(id uuid.UUID, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roles[id] = role
}

func (s *Storage) SetRolePermissions(role string, perms []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rolePerms[role] = perms
}

func (s *Storage) PasswordUpdates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.updateCalls
}

func (s *Storage) RefreshToken(_ context.Context, id uuid.UUID) (models.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rt, ok := s.refresh[id]
	if !ok {
		return models.RefreshToken{}, storage.ErrRefreshTokenNotFound
	}
	return rt, nil
}

func (s *Storage) DeleteRefreshToken(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.refresh, id)
	return nil
}

func (s *Storage) DeleteRefreshTokens(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteByUser(userID)
	return nil
}

func (s *Storage) RotateRefreshToken(_ context.Context, oldID uuid.UUID, next models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refresh[oldID]; !ok {
		return storage.ErrRefreshTokenNotFound
	}
	delete(s.refresh, oldID)
	s.refresh[next.ID] = next

	return nil
}

func (s *Storage) ReplaceRefreshTokens(_ context.Context, userID uuid.UUID, next models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteByUser(userID)
	s.refresh[next.ID] = next

	return nil
}

func (s *Storage) RefreshTokenCount(userID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rt := range s.refresh {
		if rt.UserID == userID {
			n++
		}
	}
	return n
}

func (s *Storage) SavePasswordReset(_ context.Context, pr models.PasswordReset, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resets[pr.UserID] = passwordReset{PasswordReset: pr, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *Storage) PasswordReset(_ context.Context, userID uuid.UUID) (models.PasswordReset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pr, ok := s.resets[userID]
	if !ok || !s.now().Before(pr.expiresAt) {
		return models.PasswordReset{}, storage.ErrTokenNotFound
	}
	return pr.PasswordReset, nil
}

func (s *Storage) ConsumePasswordReset(_ context.Context, userID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pr, ok := s.resets[userID]
	if !ok || pr.Token != token || !s.now().Before(pr.expiresAt) {
		return storage.ErrTokenNotFound
	}
	delete(s.resets, userID)

	return nil
}

// byLogin prefers an email match over a username match.
func (s *Storage) byLogin(login string) (models.User, bool) {
	var (
		found models.User
		ok    bool
	)
	for _, u := range s.users {
		if strings.EqualFold(u.Email, login) {
			return u, true
		}
		if strings.EqualFold(u.Username, login) {
			found, ok = u, true
		}
	}
	return found, ok
}

// byUsernameOrEmail checks both values against both columns.
func (s *Storage) byUsernameOrEmail(username, email string) (models.User, bool) {
	for _, u := range s.users {
		for _, v := range []string{username, email} {
			if strings.EqualFold(u.Username, v) || strings.EqualFold(u.Email, v) {
				return u, true
			}
		}
	}
	return models.User{}, false
}

func (s *Storage) deleteByUser(userID uuid.UUID) {
	for id, rt := range s.refresh {
		if rt.UserID == userID {
			delete(s.refresh, id)
		}
	}
}
