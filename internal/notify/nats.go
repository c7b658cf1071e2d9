package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSClient is the publishing half of a NATS connection.
type NATSClient interface {
	Publish(subject string, data []byte, headers map[string]string) error
}

type NATSPublisher struct {
	Client  NATSClient
	Subject string
}

func (p *NATSPublisher) Publish(ctx context.Context, event LookupEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(event)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPublishFailed, err)
	}
	headers := map[string]string{
		"Content-Type": "application/json",
		"Event-Id":     event.ID,
	}
	if err := p.Client.Publish(p.Subject, data, headers); err != nil {
		return fmt.Errorf("%w: nats %s: %w", ErrPublishFailed, p.Subject, err)
	}
	return nil
}

type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// natsConn only buffers the message; pending writes go out on the client's
// flusher and are drained on shutdown.
type natsConn struct{ nc msgPublisher }

func (c natsConn) Publish(subject string, data []byte, headers map[string]string) error {
	msg := &nats.Msg{Subject: subject, Data: data}
	if len(headers) > 0 {
		msg.Header = nats.Header{}
		for k, v := range headers {
			msg.Header.Add(k, v)
		}
	}
	return c.nc.PublishMsg(msg)
}

// DialNATS connects to url and returns a publisher and a cleanup func.
func DialNATS(url, subject string) (*NATSPublisher, func(), error) {
	if url == "" {
		return nil, nil, fmt.Errorf("%w: nats url required", ErrPublishFailed)
	}
	nc, err := nats.Connect(url, nats.Name("postcodemap"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: nats connect: %w", ErrPublishFailed, err)
	}
	cleanup := func() {
		if !nc.IsClosed() {
			_ = nc.Drain()
			nc.Close()
		}
	}
	return &NATSPublisher{Client: natsConn{nc: nc}, Subject: subject}, cleanup, nil
}
