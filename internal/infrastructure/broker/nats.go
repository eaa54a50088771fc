package broker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"fallout/internal/errs"
	"fallout/internal/ports"
)

type natsConn interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes one message per audit record on
// <subject>.<order_id>. The log id travels as Nats-Msg-Id so JetStream
// streams drop replays.
type NATSPublisher struct {
	conn    natsConn
	subject string
}

var _ ports.AuditPublisher = (*NATSPublisher)(nil)

type NATSConfig struct {
	URL     string
	Subject string
	Timeout time.Duration
}

func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = nats.DefaultURL
	}
	subject := strings.TrimSpace(cfg.Subject)
	if subject == "" {
		return nil, errors.New("audit.nats.subject is required")
	}

	opts := []nats.Option{nats.Name("fallout-audit-relay")}
	if cfg.Timeout > 0 {
		opts = append(opts, nats.Timeout(cfg.Timeout))
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, errs.Wrapf(err, "connect nats %s", url)
	}
	return newNATSPublisher(conn, subject), nil
}

func newNATSPublisher(conn natsConn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

func (p *NATSPublisher) Name() string {
	return "nats"
}

func (p *NATSPublisher) Publish(ctx context.Context, records []ports.AuditRecord) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return errs.Wrapf(err, "marshal audit record %s", record.LogID)
		}
		msg := nats.NewMsg(p.subject + "." + record.OrderID)
		msg.Data = data
		msg.Header.Set(nats.MsgIdHdr, record.LogID)
		msg.Header.Set("Fallout-Event-Type", record.EventType)
		if err := p.conn.PublishMsg(msg); err != nil {
			return errs.Wrapf(err, "publish audit record %s", record.LogID)
		}
	}

	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errs.Wrap(err, "flush nats")
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}
