package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const sendTimeout = 5 * time.Second

// Dispatcher makes notification fire-and-forget: Notify only enqueues, and a background loop
// delivers to the wrapped sink. Events are dropped with a warning when the queue is full.
type Dispatcher struct {
	sink  Notifier
	queue chan Event
	log   *zap.Logger

	once sync.Once
	done chan struct{}
}

func NewDispatcher(sink Notifier, size int, log *zap.Logger) *Dispatcher {
	if size <= 0 {
		size = 256
	}
	return &Dispatcher{
		sink:  sink,
		queue: make(chan Event, size),
		log:   log.With(zap.String("component", "notify")),
		done:  make(chan struct{}),
	}
}

func (d *Dispatcher) Notify(_ context.Context, event Event) error {
	select {
	case d.queue <- event:
	default:
		d.log.Warn("Notification queue full, dropping event",
			zap.String("type", string(event.Type)),
			zap.String("scrim_id", event.ScrimID.String()),
		)
	}
	return nil
}

// Run delivers queued events until ctx is cancelled, then drains what is left.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.once.Do(func() { close(d.done) })

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-ctx.Done():
			for {
				select {
				case event := <-d.queue:
					d.deliver(event)
				default:
					return nil
				}
			}
		}
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) deliver(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := d.sink.Notify(ctx, event); err != nil {
		d.log.Warn("Failed to deliver notification",
			zap.Error(err),
			zap.String("type", string(event.Type)),
			zap.String("scrim_id", event.ScrimID.String()),
			zap.String("player_id", event.PlayerID.String()),
		)
		return
	}

	d.log.Debug("Notification delivered",
		zap.String("type", string(event.Type)),
		zap.String("scrim_id", event.ScrimID.String()),
	)
}
