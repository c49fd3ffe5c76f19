package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/i474232898/airline-rank-bot/internal/logger"
	"github.com/i474232898/airline-rank-bot/internal/standings"
)

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Connect dials NATS with reconnect handling that logs instead of failing.
func Connect(url string, log logger.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("airline-rank-bot"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats: disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats: reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats: connect: %w", err)
	}
	return nc, nil
}

// Event is the message published after every successful run.
type Event struct {
	Type     string             `json:"type"`
	Snapshot standings.Snapshot `json:"snapshot"`
	Image    string             `json:"image"`
}

// Publisher sends standings snapshots to a NATS subject.
type Publisher struct {
	conn    Conn
	subject string
}

func NewPublisher(conn Conn, subject string) *Publisher {
	return &Publisher{conn: conn, subject: subject}
}

func (p *Publisher) Name() string {
	return "nats"
}

// Notify publishes the snapshot as JSON. The image is referenced by path only.
func (p *Publisher) Notify(_ context.Context, snapshot standings.Snapshot, imagePath string) error {
	data, err := json.Marshal(Event{
		Type:     "standings.updated",
		Snapshot: snapshot,
		Image:    imagePath,
	})
	if err != nil {
		return fmt.Errorf("nats: encode event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("nats: publish to %s: %w", p.subject, err)
	}
	return nil
}
