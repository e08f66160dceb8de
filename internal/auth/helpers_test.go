package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"accounts_service/internal/lib/apperr"
	"accounts_service/internal/lib/hasher"
	"accounts_service/internal/lib/jwt"
	"accounts_service/internal/lib/verification"
	"accounts_service/internal/storage/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	strongPass = "Passw0rd!"
	otherPass  = "N3wPassw0rd?"

	accessTTL  = 15 * time.Minute
	refreshTTL = 720 * time.Hour
	confirmTTL = 30 * time.Minute
	resetTTL   = 10 * time.Minute
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMail struct {
	purpose  verification.Purpose
	username string
	email    string
	token    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, p verification.Purpose, username, email, token string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{purpose: p, username: username, email: email, token: token})
	return nil
}

func (m *fakeMailer) count(p verification.Purpose) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, s := range m.sent {
		if s.purpose == p {
			n++
		}
	}
	return n
}

func (m *fakeMailer) last(t *testing.T, p verification.Purpose) sentMail {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].purpose == p {
			return m.sent[i]
		}
	}
	t.Fatalf("no %s mail sent", p.Template)
	return sentMail{}
}

// countingHasher records how many times a password reached the hasher.
type countingHasher struct {
	*hasher.Bcrypt
	hashes atomic.Int32
}

func (h *countingHasher) Hash(secret string) ([]byte, error) {
	h.hashes.Add(1)
	return h.Bcrypt.Hash(secret)
}

type suite struct {
	auth     *Auth
	sessions *SessionIssuer
	store    *memory.Storage
	mailer   *fakeMailer
	hasher   *countingHasher
	clock    *clock
}

func newSuite(t *testing.T) *suite {
	t.Helper()

	clk := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.New(memory.WithClock(clk.Now))
	h := &countingHasher{Bcrypt: hasher.New(bcrypt.MinCost)}
	mailer := &fakeMailer{}

	sessions := NewSessionIssuer(
		log,
		store,
		store,
		h,
		jwt.New("access-secret", accessTTL, jwt.WithClock(clk.Now)),
		jwt.New("refresh-secret", refreshTTL, jwt.WithClock(clk.Now)),
		WithSessionClock(clk.Now),
	)

	a := New(
		log,
		store,
		store,
		sessions,
		h,
		mailer,
		jwt.New("confirm-secret", confirmTTL, jwt.WithClock(clk.Now)),
		jwt.New("reset-secret", resetTTL, jwt.WithClock(clk.Now)),
	)

	return &suite{
		auth:     a,
		sessions: sessions,
		store:    store,
		mailer:   mailer,
		hasher:   h,
		clock:    clk,
	}
}

// registerConfirmed registers a user and follows the emailed link.
func (s *suite) registerConfirmed(t *testing.T, username, email string) uuid.UUID {
	t.Helper()

	ctx := context.Background()

	id, err := s.auth.Register(ctx, username, email, strongPass, strongPass)
	require.NoError(t, err)

	require.NoError(t, s.auth.ConfirmEmail(ctx, s.mailer.last(t, verification.ConfirmEmail).token))

	return id
}

func (s *suite) login(t *testing.T, login, pass string) (accessToken, refreshToken string) {
	t.Helper()

	pair, err := s.auth.Login(context.Background(), login, pass)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	return pair.AccessToken, pair.RefreshToken
}

func requireAppErr(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()

	e, ok := apperr.As(err)
	require.Truef(t, ok, "expected *apperr.Error, got %v", err)
	require.Equal(t, kind, e.Kind, e.Error())
	require.Equal(t, msg, e.Message)
}
