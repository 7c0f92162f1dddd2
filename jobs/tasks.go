// Package jobs defines the background tasks processed by the worker binary.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/imbhaskarn/devboss-blog/internal/mail"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// SendEmailHandler processes TaskTypeSendEmail tasks through a Mailer.
type SendEmailHandler struct {
	mailer  mail.Mailer
	logger  *slog.Logger
	metrics *Metrics
}

// NewSendEmailHandler constructs a SendEmailHandler.
func NewSendEmailHandler(mailer mail.Mailer, logger *slog.Logger, metrics *Metrics) *SendEmailHandler {
	return &SendEmailHandler{mailer: mailer, logger: logger, metrics: metrics}
}

// Handle delivers one queued email.
func (h *SendEmailHandler) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track(TaskTypeSendEmail)
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	if err := h.mailer.Send(payload.To, payload.Subject, payload.Body); err != nil {
		if h.logger != nil {
			h.logger.Warn("send email", slog.String("to", payload.To), slog.Any("error", err))
		}
		return tracker.End(err)
	}
	return tracker.End(nil)
}
