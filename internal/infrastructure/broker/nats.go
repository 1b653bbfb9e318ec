package broker

import (
	"context"
	"time"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// NATS fans out over a core NATS subject. Pushes are ephemeral, so no JetStream.
type NATS struct {
	nc      *nats.Conn
	subject string
	log     *zap.Logger
}

func NewNATS(url, subject string, log *zap.Logger) (*NATS, error) {
	log = log.Named("broker.nats")
	nc, err := nats.Connect(url,
		nats.Name("matchcore"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connect nats")
	}
	return &NATS{nc: nc, subject: subject, log: log}, nil
}

func (b *NATS) Publish(_ context.Context, d domain.Delivery) error {
	data, err := encode(d)
	if err != nil {
		return errors.Wrap(err, "encode delivery")
	}
	return errors.Wrap(b.nc.Publish(b.subject, data), "nats publish")
}

func (b *NATS) Subscribe(ctx context.Context, h Handler, ready func()) error {
	sub, err := b.nc.Subscribe(b.subject, func(m *nats.Msg) {
		d, err := decode(m.Data)
		if err != nil {
			b.log.Warn("dropping undecodable delivery", zap.Error(err))
			return
		}
		h(d)
	})
	if err != nil {
		return errors.Wrapf(err, "subscribe %s", b.subject)
	}
	if err := b.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return errors.Wrapf(err, "flush subscription %s", b.subject)
	}
	b.log.Info("subscribed", zap.String("subject", b.subject))
	signal(ready)

	<-ctx.Done()
	return errors.Wrap(sub.Unsubscribe(), "unsubscribe")
}

func (b *NATS) Close() error {
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
		return errors.Wrap(err, "drain nats")
	}
	return nil
}
