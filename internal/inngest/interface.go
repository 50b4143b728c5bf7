package inngest

import (
	"context"
	"net/http"
)

type InngestClient interface {
	Serve() http.Handler
	SendEvent(ctx context.Context, name string, data map[string]any) error
}

// Sweeper runs one waitlist sweep and reports how many offers it passed on.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}
