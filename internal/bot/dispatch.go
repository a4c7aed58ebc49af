package bot

import (
	"context"

	"floatwatch/internal/notifier"
	"floatwatch/internal/tracker"
	"floatwatch/internal/transport"
)

// Notifier is the slice of the delivery pipeline the bot needs.
type Notifier interface {
	Notify(ctx context.Context, n notifier.Notification) error
	Stats() notifier.Stats
}

// Dispatcher renders tracker notifications and queues them for delivery.
// A nil error means queued, not delivered.
type Dispatcher struct {
	n Notifier
}

func NewDispatcher(n Notifier) *Dispatcher { return &Dispatcher{n: n} }

func (d *Dispatcher) Dispatch(ctx context.Context, tn tracker.Notification) error {
	return d.n.Notify(ctx, notifier.Notification{
		Target: tn.Destination,
		Text:   RenderNotification(tn.Header, tn.Payload),
		Options: &transport.SendOptions{
			ParseMode:      "HTML",
			DisablePreview: tn.Payload.Thumbnail == "",
		},
		Source: tn.Config,
		Ref:    tn.ListingID,
	})
}
