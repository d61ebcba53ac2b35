package syncx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Publisher fans committed events out to other services.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

type natsPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher publishes to subject.<event type>.
func NewNATSPublisher(conn *nats.Conn, subject string) Publisher {
	if conn == nil || subject == "" {
		return NopPublisher{}
	}
	return &natsPublisher{conn: conn, subject: subject}
}

type envelope struct {
	SiteID string          `json:"site_id"`
	Type   string          `json:"type"`
	Key    string          `json:"key"`
	Data   json.RawMessage `json:"data"`
}

func (p *natsPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := json.RawMessage(e.DataJSON)
	if !json.Valid(data) {
		data = json.RawMessage("null")
	}
	payload, err := json.Marshal(envelope{SiteID: e.SiteID, Type: e.Type, Key: e.Key, Data: data})
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject+"."+e.Type, payload); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// ConnectNATS dials url; an empty url yields a nil connection.
func ConnectNATS(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}
	conn, err := nats.Connect(url, nats.Name("autograde"))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to nats: %w", err)
	}
	return conn, nil
}
