package natsbus

import (
	"strconv"

	"github.com/nats-io/nats.go"
)

// Config configures the NATS connection a natsbus Mailbox relays
// through, mirroring the teacher's ClusterNATSConfig shape.
type Config struct {
	// URL is the NATS server URL, e.g. "nats://127.0.0.1:4222".
	URL string

	// Name is an optional NATS connection name, useful for
	// distinguishing nodes in server-side connection listings.
	Name string
}

// Connect dials cfg.URL (nats.DefaultURL if empty), tagging the
// connection with cfg.Name when set.
func Connect(cfg Config) (*nats.Conn, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	return nats.Connect(url, func(o *nats.Options) error {
		if cfg.Name != "" {
			o.Name = cfg.Name
		}
		return nil
	})
}

// Subject builds the subject a worker or node index relays signal/
// heartbeat traffic over: "<prefix>.worker.<index>" or
// "<prefix>.node.<index>".
func Subject(prefix, kind string, index int) string {
	return prefix + "." + kind + "." + strconv.Itoa(index)
}
