package notifier

import (
	"context"
	"time"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Publisher hands a delivery to the cross-node broker.
type Publisher interface {
	Publish(ctx context.Context, d domain.Delivery) error
}

// Dispatcher decouples request handlers from push delivery. Dispatch never blocks:
// when the queue is full the delivery is dropped and counted.
type Dispatcher struct {
	publisher Publisher
	queue     chan domain.Delivery
	log       *zap.Logger
}

func NewDispatcher(publisher Publisher, queueSize int, log *zap.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		publisher: publisher,
		queue:     make(chan domain.Delivery, queueSize),
		log:       log.Named("dispatcher"),
	}
}

// Dispatch queues each envelope for its recipient's personal channel.
func (d *Dispatcher) Dispatch(envs ...domain.Envelope) {
	for _, env := range envs {
		d.Enqueue(domain.ToUser(env))
	}
}

func (d *Dispatcher) Enqueue(deliveries ...domain.Delivery) {
	for _, dl := range deliveries {
		select {
		case d.queue <- dl:
		default:
			metrics.EnvelopesDropped.WithLabelValues("notify_queue").Inc()
			d.log.Warn("notify queue full, dropping envelope",
				zap.String("topic", dl.Topic),
				zap.String("type", string(dl.Envelope.Type())),
			)
		}
	}
}

// Run publishes queued deliveries until ctx is done, then flushes what is already queued.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return nil
		case dl := <-d.queue:
			d.publish(ctx, dl)
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	for {
		select {
		case dl := <-d.queue:
			d.publish(ctx, dl)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, dl domain.Delivery) {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(pubCtx, dl); err != nil {
		metrics.EnvelopesDropped.WithLabelValues("publish").Inc()
		d.log.Error("failed to publish envelope",
			zap.String("topic", dl.Topic),
			zap.String("type", string(dl.Envelope.Type())),
			zap.Error(err),
		)
		return
	}
	metrics.EnvelopesDispatched.WithLabelValues(string(dl.Envelope.Type())).Inc()
}
