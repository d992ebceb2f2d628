package pushsvc

import (
	"context"
	"log"

	"github.com/hisakoh/campushub/core"
)

// consoleTransport prints notifications to stdout instead of delivering them;
// for local development.
type consoleTransport struct {
	std *log.Logger
}

var _ core.PushTransport = (*consoleTransport)(nil)

func NewConsoleTransport(std *log.Logger) *consoleTransport {
	return &consoleTransport{std: std}
}

func (t *consoleTransport) SendNotification(_ context.Context, ep core.PushEndpoint, msg core.PushMessage) error {
	t.std.Printf("push -> %s\n[%s] %s: %s (%s)\n", ep.Endpoint, msg.Type, msg.Title, msg.Body, msg.URL)
	return nil
}
