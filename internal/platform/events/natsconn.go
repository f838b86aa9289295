package events

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// ConnOptions configures the NATS connection. Zero values use defaults.
type ConnOptions struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
}

// Connect dials NATS and fails fast when the server is unreachable.
func Connect(opts ConnOptions) (*nats.Conn, error) {
	if opts.MaxReconnects == 0 {
		opts.MaxReconnects = 5
	}
	if opts.ReconnectWait == 0 {
		opts.ReconnectWait = 2 * time.Second
	}

	nc, err := nats.Connect(opts.URL,
		nats.Name(opts.Name),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.RetryOnFailedConnect(false),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s (max_reconnects=%d, wait=%s): %w",
			opts.URL, opts.MaxReconnects, opts.ReconnectWait, err)
	}
	return nc, nil
}
