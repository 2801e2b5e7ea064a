// Package email defines the outbound email contract.
// Rendering and transport live behind Sender; the auth service only ever
// names a template, a recipient and the template locals.
package email

import (
	"context"

	"github.com/authline/authline/internal/logger"
)

type Sender interface {
	// Deliver the named template to the recipient.
	// A non-nil error means the message was not accepted for delivery;
	// retries are the sender's business, not the caller's
	Send(ctx context.Context, template string, to string, locals map[string]string) error
}

// LogSender writes messages to the log instead of delivering them.
// Default sender for dev runs.
type LogSender struct {
	Logger logger.Logger
}

func (s *LogSender) Send(_ context.Context, template string, to string, locals map[string]string) error {
	args := []any{"template", template, "to", to}
	for k, v := range locals {
		args = append(args, "local."+k, v)
	}

	s.Logger.Info("email send skipped, logging instead", args...)
	return nil
}
