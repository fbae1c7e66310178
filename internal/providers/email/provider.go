package email

import (
	"context"

	"go.uber.org/zap"
)

type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendTemplate(ctx context.Context, to []string, subject string, templateName string, data any) error
}

// NoOpProvider drops messages. Used when no SMTP host is configured.
type NoOpProvider struct {
	log *zap.Logger
}

func NewNoOp(log *zap.Logger) *NoOpProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoOpProvider{log: log.Named("email.noop")}
}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	p.log.Debug("email dropped", zap.Int("recipients", len(to)), zap.String("subject", subject))
	return nil
}

func (p *NoOpProvider) SendTemplate(ctx context.Context, to []string, subject string, templateName string, data any) error {
	if _, err := Render(templateName, data); err != nil {
		return err
	}
	return p.Send(ctx, to, subject, "")
}
