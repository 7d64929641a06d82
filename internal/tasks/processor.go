// Package tasks turns notification events into outbound messages.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"timesheets/internal/notify"
)

var ErrMissingPayload = errors.New("stream entry has no payload")

// Message is a rendered notification ready for a delivery channel.
type Message struct {
	EventID    string
	Recipients []string
	Subject    string
	Body       string
}

type Deliverer interface {
	Deliver(ctx context.Context, msg Message) error
}

// LogDeliverer writes messages to the log instead of sending them.
type LogDeliverer struct {
	logger zerolog.Logger
}

func NewLogDeliverer(logger zerolog.Logger) *LogDeliverer {
	return &LogDeliverer{logger: logger}
}

func (d *LogDeliverer) Deliver(_ context.Context, msg Message) error {
	d.logger.Info().
		Str("event_id", msg.EventID).
		Strs("recipients", msg.Recipients).
		Str("subject", msg.Subject).
		Msg("notification delivered")
	return nil
}

type Processor struct {
	logger    zerolog.Logger
	deliverer Deliverer
}

func NewProcessor(logger zerolog.Logger, deliverer Deliverer) *Processor {
	return &Processor{
		logger:    logger,
		deliverer: deliverer,
	}
}

// HandleStream processes one Redis stream entry.
func (p *Processor) HandleStream(ctx context.Context, msg redis.XMessage) error {
	raw, ok := msg.Values[notify.StreamPayloadField].(string)
	if !ok {
		return ErrMissingPayload
	}
	return p.HandleBody(ctx, []byte(raw))
}

// HandleBody processes one encoded event, whatever queue it came from.
func (p *Processor) HandleBody(ctx context.Context, body []byte) error {
	event, err := notify.DecodeEvent(body)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	msg, ok := render(event)
	if !ok {
		p.logger.Warn().Str("type", string(event.Type)).Msg("unknown event type")
		return nil
	}
	if len(msg.Recipients) == 0 {
		return nil
	}
	if err := p.deliverer.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("deliver %s: %w", event.Type, err)
	}
	return nil
}

func render(event notify.Event) (Message, bool) {
	msg := Message{EventID: event.ID, Recipients: event.Recipients}

	switch event.Type {
	case notify.EventSubmitted:
		msg.Subject = "Work order submitted for approval"
		msg.Body = fmt.Sprintf("Work order %s from worker %s is waiting for a decision.", event.WorkOrderID, event.WorkerID)
	case notify.EventApproved:
		msg.Subject = "Work order approved"
		msg.Body = fmt.Sprintf("Work order %s has been approved.", event.WorkOrderID)
	case notify.EventRejected:
		msg.Subject = "Work order rejected"
		msg.Body = fmt.Sprintf("Work order %s has been rejected.", event.WorkOrderID)
		if event.Reason != "" {
			msg.Body += " Reason: " + event.Reason
		}
	case notify.EventDraftReminder:
		msg.Subject = "Draft work order not submitted"
		msg.Body = fmt.Sprintf("Work order %s is still a draft. Submit it when it is complete.", event.WorkOrderID)
	case notify.EventApprovalDigest:
		msg.Subject = "Work orders awaiting approval"
		msg.Body = fmt.Sprintf("%d work orders are waiting for a decision.", event.Count)
	case notify.EventPasswordReset:
		msg.Subject = "Password reset requested"
		msg.Body = "Use this token to choose a new password: " + event.ResetToken
	default:
		return Message{}, false
	}
	return msg, true
}
