// Package pushsvc delivers notifications to browser push endpoints over the
// Web Push protocol with VAPID authentication.
package pushsvc

import (
	"context"
	"net/http"
	"time"

	webpushgo "github.com/SherClockHolmes/webpush-go"
	"github.com/pkg/errors"

	"github.com/hisakoh/campushub/core"
)

type webpushTransport struct {
	opts webpushgo.Options
}

var _ core.PushTransport = (*webpushTransport)(nil)

func NewWebpushTransport(conf *core.Config) *webpushTransport {
	ttl := conf.Webpush.TTL
	if ttl == 0 {
		ttl = 12 * time.Hour
	}
	return &webpushTransport{
		opts: webpushgo.Options{
			Subscriber:      conf.Webpush.ClaimsEmail,
			VAPIDPublicKey:  conf.Webpush.VAPIDPublicKey,
			VAPIDPrivateKey: conf.Webpush.VAPIDPrivateKey,
			TTL:             int(ttl / time.Second),
		},
	}
}

func (t *webpushTransport) SendNotification(ctx context.Context, ep core.PushEndpoint, msg core.PushMessage) error {
	payload, err := msg.Payload()
	if err != nil {
		return errors.Wrap(err, "encoding push payload")
	}

	sub := &webpushgo.Subscription{
		Endpoint: ep.Endpoint,
		Keys:     webpushgo.Keys{P256dh: ep.P256dh, Auth: ep.Auth},
	}
	resp, err := webpushgo.SendNotificationWithContext(ctx, payload, sub, &t.opts)
	if err != nil {
		return errors.Wrap(err, "sending push notification")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return core.ErrEndpointGone
	case resp.StatusCode >= http.StatusBadRequest:
		return errors.Errorf("push service returned %s", resp.Status)
	}
	return nil
}
