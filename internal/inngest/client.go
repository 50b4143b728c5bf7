package inngest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
)

// New registers the waitlist sweep as an Inngest function. Inngest calls back
// into Serve on the cron schedule and on EventSweepRequested.
func New(opts Options, sweeper Sweeper) (InngestClient, error) {
	clientOpts := inngestgo.ClientOpts{
		AppID: opts.AppID,
		Dev:   &opts.Dev,
	}
	if opts.SigningKey != "" {
		clientOpts.SigningKey = &opts.SigningKey
	}
	if opts.EventKey != "" {
		clientOpts.EventKey = &opts.EventKey
	}
	inngestClient, err := inngestgo.NewClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize inngest: %w", err)
	}

	c := &client{
		inngestClient: inngestClient,
		sweeper:       sweeper,
	}
	if opts.Cron == "" {
		opts.Cron = "*/5 * * * *"
	}
	if err := c.createSweepFunctions(opts.Cron); err != nil {
		return nil, err
	}
	return c, nil
}

func (i *client) createSweepFunctions(cron string) error {
	handler := func(ctx context.Context, input inngestgo.Input[map[string]any]) (any, error) {
		// Wrapped in a step so Inngest retries the sweep on failure.
		promoted, err := step.Run(ctx, "expire-waitlist-offers", func(ctx context.Context) (int, error) {
			return i.sweeper.Sweep(ctx)
		})
		if err != nil {
			return nil, err
		}
		log.Info("Inngest waitlist sweep finished", "promoted", promoted)
		return map[string]any{"promoted": promoted}, nil
	}

	_, err := inngestgo.CreateFunction(
		i.inngestClient,
		inngestgo.FunctionOpts{ID: "waitlist-sweep", Name: "Expire waitlist offers"},
		inngestgo.CronTrigger(cron),
		handler,
	)
	if err != nil {
		return fmt.Errorf("failed to create sweep function: %w", err)
	}

	_, err = inngestgo.CreateFunction(
		i.inngestClient,
		inngestgo.FunctionOpts{ID: "waitlist-sweep-on-demand", Name: "Expire waitlist offers on demand"},
		inngestgo.EventTrigger(EventSweepRequested, nil),
		handler,
	)
	if err != nil {
		return fmt.Errorf("failed to create on-demand sweep function: %w", err)
	}
	return nil
}

func (i *client) Serve() http.Handler {
	return i.inngestClient.Serve()
}

func (i *client) SendEvent(ctx context.Context, name string, data map[string]any) error {
	_, err := i.inngestClient.Send(ctx, inngestgo.Event{Name: name, Data: data})
	if err != nil {
		return fmt.Errorf("failed to send inngest event %s: %w", name, err)
	}
	return nil
}
