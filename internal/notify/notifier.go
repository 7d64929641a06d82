package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"timesheets/internal/ids"
)

const defaultPublishTimeout = 5 * time.Second

// Notifier publishes events off the request path. Failures are logged and
// dropped.
type Notifier struct {
	publisher Publisher
	log       zerolog.Logger
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewNotifier(publisher Publisher, log zerolog.Logger) *Notifier {
	return &Notifier{
		publisher: publisher,
		log:       log,
		timeout:   defaultPublishTimeout,
	}
}

func (n *Notifier) Dispatch(event Event) {
	if len(event.Recipients) == 0 {
		return
	}
	if event.ID == "" {
		event.ID = ids.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.publisher.Publish(ctx, event); err != nil {
			n.log.Warn().
				Err(err).
				Str("event_id", event.ID).
				Str("type", string(event.Type)).
				Str("work_order_id", event.WorkOrderID).
				Msg("publish notification failed")
		}
	}()
}

// Wait blocks until every dispatched event has been attempted.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
