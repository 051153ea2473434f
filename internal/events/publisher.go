package events

import (
	"encoding/json"
	"fmt"

	"mint-backend/internal/models"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	subjectOrderRecorded  = "orders.recorded"
	subjectOrderConfirmed = "orders.confirmed"
)

// Publisher emits order lifecycle events over NATS. A nil Publisher is valid
// and drops every event, so callers never have to branch on whether event
// publishing is configured.
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Logger
}

// Connect dials the NATS server. An empty URL disables publishing.
func Connect(url string, logger *logrus.Logger) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}

	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.WithField("url", url).Info("NATS connected")
	return &Publisher{conn: conn, logger: logger}, nil
}

// Close drains the connection
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}

// OrderRecorded announces a newly recorded order
func (p *Publisher) OrderRecorded(order *models.Order) {
	p.publish(subjectOrderRecorded, order)
}

// OrderConfirmed announces that token IDs were attached after confirmation
func (p *Publisher) OrderConfirmed(order *models.Order) {
	p.publish(subjectOrderConfirmed, order)
}

func (p *Publisher) publish(subject string, order *models.Order) {
	if p == nil || p.conn == nil {
		return
	}

	data, err := json.Marshal(order)
	if err != nil {
		p.logger.WithError(err).Error("Failed to marshal order event")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.WithFields(logrus.Fields{
			"subject": subject,
			"error":   err.Error(),
		}).Warn("Failed to publish order event")
	}
}
