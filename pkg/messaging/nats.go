package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

func NewNatsConn(url string, timeout time.Duration) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Timeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

func NewJetStream(nc *nats.Conn) (jetstream.JetStream, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}
	return js, nil
}

// NatsPublisher publishes events on JetStream under prefix + "." + subject.
type NatsPublisher struct {
	js     jetstream.JetStream
	prefix string
}

func NewNatsPublisher(js jetstream.JetStream, prefix string) *NatsPublisher {
	return &NatsPublisher{js: js, prefix: prefix}
}

func (p *NatsPublisher) Publish(ctx context.Context, event Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("event payload: %w", err)
	}

	subject := event.Subject()
	if p.prefix != "" {
		subject = p.prefix + "." + subject
	}

	_, err = p.js.Publish(ctx, subject, data)
	return err
}
