// Package mailsender delivers queued messages through an outbound mail
// provider.
package mailsender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"accounts_service/internal/config"
	sl "accounts_service/internal/lib/logger"
	"accounts_service/internal/models"
)

type Sender interface {
	Send(ctx context.Context, msg models.Message) error
}

func New(cfg config.Email) (Sender, error) {
	const op = "mailsender.New"

	switch cfg.Provider {
	case config.ProviderSMTP:
		return NewSMTP(cfg.Host, cfg.Port, cfg.Username, cfg.Password, from(cfg)), nil
	case config.ProviderSendGrid:
		return NewSendGrid(cfg.SendGridAPIKey, cfg.FromName, from(cfg)), nil
	default:
		return nil, fmt.Errorf("%s: unsupported provider %q", op, cfg.Provider)
	}
}

func from(cfg config.Email) string {
	if cfg.From != "" {
		return cfg.From
	}
	return cfg.Username
}

// Handler decodes queue deliveries and passes them to a Sender.
type Handler struct {
	log    *slog.Logger
	sender Sender
}

func NewHandler(log *slog.Logger, sender Sender) *Handler {
	return &Handler{log: log, sender: sender}
}

func (h *Handler) Handle(ctx context.Context, body []byte) error {
	const op = "mailsender.Handle"

	log := h.log.With(slog.String("op", op))

	var msg models.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Error("failed to decode message", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if msg.To == "" {
		log.Error("message without recipient")
		return fmt.Errorf("%s: empty recipient", op)
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		log.Error("failed to send email", slog.String("to", msg.To), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email sent", slog.String("to", msg.To), slog.String("subject", msg.Subject))

	return nil
}
