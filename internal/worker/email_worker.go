package worker

// email_worker.go
// Sends notification emails queued on QueueEmail. Delivery goes through a
// circuit breaker and is retried with exponential backoff before the job is
// handed back to the pool as failed.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"miscompras/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailJob is the payload of QueueEmail jobs.
type EmailJob struct {
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Text       string `json:"text"`
	HTML       string `json:"html,omitempty"`
	AttachPath string `json:"attach_path,omitempty"`
}

// Sender is satisfied by *infra.Mailer.
type Sender interface {
	Send(to, subject, text, html, attachPath string) error
}

type EmailWorker struct {
	sender      Sender
	cb          *infra.CircuitBreaker
	maxAttempts int
	backoff     time.Duration
}

func NewEmailWorker(sender Sender, cb *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{sender: sender, cb: cb, maxAttempts: 3, backoff: 2 * time.Second}
}

// Process implements Handler.
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) (int, error) {
	var job EmailJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return 0, fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if job.To == "" {
		log.Warn().Str("subject", job.Subject).Msg("email_worker: empty recipient, skipping")
		return 0, nil
	}

	wait := w.backoff
	var err error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err = w.cb.Execute(func() error {
			return w.sender.Send(job.To, job.Subject, job.Text, job.HTML, job.AttachPath)
		})
		if err == nil {
			log.Info().Str("to", job.To).Str("subject", job.Subject).Msg("email_worker: sent")
			return attempt, nil
		}
		if errors.Is(err, infra.ErrMailerDisabled) {
			log.Debug().Str("to", job.To).Msg("email_worker: SMTP disabled, dropping")
			return attempt, nil
		}
		log.Warn().Err(err).Str("to", job.To).Int("attempt", attempt).Msg("email_worker: send failed")
		if attempt == w.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return w.maxAttempts, err
}
