// Package notifier consumes schedule-update events and mails every attendee
// of the affected event. Delivery is best effort per recipient.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/eventure/ticketing/internal/kafka"
	"github.com/eventure/ticketing/internal/redisx"
	"github.com/eventure/ticketing/internal/ticketing"
)

// Directory resolves the distinct attendee email addresses of an event.
type Directory interface {
	AttendeeEmails(ctx context.Context, eventID string) ([]string, error)
}

type Dedup interface {
	SeenOnce(ctx context.Context, key string) (bool, error)
}

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Service struct {
	directory Directory
	dedup     Dedup
	sender    Sender
	log       *slog.Logger
}

func New(directory Directory, dedup Dedup, sender Sender, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{directory: directory, dedup: dedup, sender: sender, log: log}
}

// Handle processes one message from the schedule-updated topic. Undecodable
// messages and duplicates return nil so the offset commits; a directory
// lookup failure returns the error so the message is retried.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	var env ticketing.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.log.Warn("discarding undecodable message", "topic", m.Topic, "offset", m.Offset, "error", err)
		return nil
	}
	if env.EventType != ticketing.EventScheduleUpdated {
		return nil
	}

	if s.dedup != nil {
		seen, err := s.dedup.SeenOnce(ctx, fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID))
		if err != nil {
			return fmt.Errorf("dedup check: %w", err)
		}
		if seen {
			s.log.Debug("duplicate event skipped", "event_id", env.EventID)
			return nil
		}
	}

	payload, err := kafkax.UnwrapPayload[ticketing.ScheduleUpdatedPayload](env.Payload)
	if err != nil {
		s.log.Warn("discarding event with bad payload", "event_id", env.EventID, "error", err)
		return nil
	}

	emails, err := s.directory.AttendeeEmails(ctx, payload.EventID)
	if err != nil {
		return fmt.Errorf("attendee emails for %s: %w", payload.EventID, err)
	}

	subject := fmt.Sprintf("Schedule Update for %s", payload.Title)
	body := scheduleBody(payload)

	var failed int
	for _, to := range emails {
		if err := s.sender.Send(ctx, to, subject, body); err != nil {
			failed++
			s.log.Warn("schedule update email failed", "event_id", payload.EventID, "to", to, "error", err)
		}
	}
	s.log.Info("schedule update notifications sent",
		"event_id", payload.EventID, "recipients", len(emails), "failed", failed)
	return nil
}

func scheduleBody(p ticketing.ScheduleUpdatedPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear Attendee,\n\nThe schedule for %q has been updated.\n\nNew schedule:\n", p.Title)
	for _, sess := range p.Sessions {
		fmt.Fprintf(&b, "- %s: %s to %s\n", sess.Title, sess.StartTime, sess.EndTime)
	}
	b.WriteString("\nWe apologize for any inconvenience.\n\nBest regards,\nEvent Management Team")
	return b.String()
}
