package notify

import (
	"context"
	"log"
)

// LogMailer writes notifications to the process log. Used until a
// transactional mail provider is wired in; the consumer does not care which
// Mailer it holds.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, userID, subject, body string) error {
	log.Printf("mail to %s: %s | %s", userID, subject, body)
	return nil
}
