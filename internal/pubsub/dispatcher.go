package pubsub

import (
	"context"

	"github.com/mauv0809/pickup-roster/internal/notifier"
)

// Dispatcher publishes waitlist notices so delivery happens off the request
// path, in the push handler.
type Dispatcher struct {
	client PubSubClient
}

func NewDispatcher(client PubSubClient) *Dispatcher {
	return &Dispatcher{client: client}
}

func (d *Dispatcher) Dispatch(ctx context.Context, notice notifier.Notice) error {
	notice.DryRun = notice.DryRun || notifier.IsDryRun(ctx)
	return d.client.SendMessage(ctx, EventWaitlistNotice, notice)
}
