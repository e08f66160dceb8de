// Package verification mails users a link that carries a one-time token.
package verification

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"accounts_service/internal/lib/apperr"
	sl "accounts_service/internal/lib/logger"
	"accounts_service/internal/lib/mail"
	"accounts_service/internal/models"
)

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

type Renderer interface {
	Render(name string, data mail.Data) (string, error)
}

// Purpose describes one kind of emailed link.
type Purpose struct {
	Template string
	Subject  string
	Path     string
}

var (
	ConfirmEmail = Purpose{
		Template: mail.TemplateConfirmEmail,
		Subject:  "Confirm Your Email",
		Path:     "/confirm-email",
	}
	ResetPassword = Purpose{
		Template: mail.TemplateResetPassword,
		Subject:  "Password Recovery Instructions",
		Path:     "/reset-password",
	}
)

type LinkMailer struct {
	log      *slog.Logger
	pub      Publisher
	renderer Renderer
	baseURL  string
}

func New(log *slog.Logger, pub Publisher, renderer Renderer, baseURL string) *LinkMailer {
	return &LinkMailer{
		log:      log,
		pub:      pub,
		renderer: renderer,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Send renders the purpose template around a link to token and queues it
// for delivery to email.
func (m *LinkMailer) Send(
	ctx context.Context,
	p Purpose,
	username, email, token string,
	ttl time.Duration,
) error {
	const op = "verification.Send"

	log := m.log.With(
		slog.String("op", op),
		slog.String("template", p.Template),
	)

	body, err := m.renderer.Render(p.Template, mail.Data{
		Username:         username,
		Email:            email,
		Link:             m.Link(p, token),
		ExpiresInMinutes: int(ttl / time.Minute),
	})
	if err != nil {
		log.Error("failed to render email", sl.Err(err))

		return apperr.BadRequest(apperr.MsgEmailTemplateNotRender).Wrap(fmt.Errorf("%s: %w", op, err))
	}

	msg := models.Message{
		To:      email,
		Subject: p.Subject,
		Body:    body,
	}

	if err := m.pub.SendMessage(ctx, msg); err != nil {
		log.Error("failed to send email", sl.Err(err))

		return apperr.BadRequest(apperr.MsgEmailNotSent).Wrap(fmt.Errorf("%s: %w", op, err))
	}

	log.Debug("email queued")

	return nil
}

func (m *LinkMailer) Link(p Purpose, token string) string {
	return m.baseURL + p.Path + "?" + url.Values{"token": {token}}.Encode()
}
