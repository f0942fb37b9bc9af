package mailer

import (
	"context"

	"go.uber.org/zap"
)

// DevMailer logs instead of sending. Used for local runs without Postmark
// credentials so the rest of the pipeline behaves exactly as in production.
type DevMailer struct {
	logger *zap.Logger
}

func NewDevMailer(logger *zap.Logger) *DevMailer {
	return &DevMailer{logger: logger}
}

func (m *DevMailer) Send(_ context.Context, kind TemplateKind, p Payload) error {
	m.logger.Info("dev mailer: email suppressed",
		zap.String("template", string(kind)),
		zap.String("to", p.To),
		zap.String("title", p.Title),
	)
	return nil
}

var _ Mailer = (*DevMailer)(nil)
