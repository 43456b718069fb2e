// Package events publishes case lifecycle notifications on NATS. The bus
// is optional: when no NATS URL is configured the service runs without it
// and every publish site must tolerate a nil client.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// SubjectScamDetected is emitted the first time a session flips to
	// scam-detected.
	SubjectScamDetected = "sentinel.scam.detected"
	// SubjectCaseReported is emitted after a final result is delivered
	// to the callback endpoint.
	SubjectCaseReported = "sentinel.case.reported"
)

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Close() {
	c.conn.Close()
}
