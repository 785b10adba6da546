package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/conference-central/internal/application"
	"github.com/example/conference-central/internal/key"
)

// Message is an outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	Logger *slog.Logger
}

// Send logs msg.
func (m LogMailer) Send(ctx context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "email sent", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}

// ConfirmationEmailHandler mails the conference summary to its creator.
func ConfirmationEmailHandler(mailer Mailer) Handler {
	return HandlerFunc(func(ctx context.Context, params map[string]string) error {
		to := strings.TrimSpace(params["email"])
		if to == "" {
			// Nothing to deliver to; retrying cannot help.
			return nil
		}
		return mailer.Send(ctx, Message{
			To:      to,
			Subject: "You created a new Conference!",
			Body:    "Hi, you have created a following conference:\r\n\r\n" + params["conferenceInfo"],
		})
	})
}

// FeaturedSpeakerHandler re-evaluates the featured speaker for a conference.
func FeaturedSpeakerHandler(evaluator *application.FeaturedSpeakerEvaluator) Handler {
	return HandlerFunc(func(ctx context.Context, params map[string]string) error {
		conferenceKey, err := key.Decode(params["websafeConferenceKey"])
		if err != nil {
			return fmt.Errorf("featured speaker: %w", err)
		}
		_, _, err = evaluator.Evaluate(ctx, params["speaker"], conferenceKey)
		return err
	})
}
