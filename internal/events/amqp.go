package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/streadway/amqp"
)

// Channel is the part of *amqp.Channel the publisher needs
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// DialFunc opens a channel and returns a closer for the underlying connection
type DialFunc func() (Channel, func() error, error)

// BreakerConfig holds circuit breaker settings
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig returns production defaults
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "amqp-publisher",
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 3,
	}
}

// AMQPPublisher publishes JSON events to a durable queue. The connection is
// opened lazily and re-dialled after a failed publish.
type AMQPPublisher struct {
	mu      sync.Mutex
	queue   string
	dial    DialFunc
	ch      Channel
	closeFn func() error
	breaker *gobreaker.CircuitBreaker[interface{}]
	log     *logrus.Logger
}

// DialAMQP returns a DialFunc for the broker at url
func DialAMQP(url string) DialFunc {
	return func() (Channel, func() error, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("error creating rabbitmq connection: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("channel: %w", err)
		}
		return ch, conn.Close, nil
	}
}

// NewAMQPPublisher creates a publisher for queue
func NewAMQPPublisher(dial DialFunc, queue string, cbCfg BreakerConfig, log *logrus.Logger) *AMQPPublisher {
	settings := gobreaker.Settings{
		Name:        cbCfg.Name,
		MaxRequests: cbCfg.MaxRequests,
		Interval:    cbCfg.Interval,
		Timeout:     cbCfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cbCfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("event publisher circuit breaker changed state")
		},
	}
	return &AMQPPublisher{
		queue:   queue,
		dial:    dial,
		breaker: gobreaker.NewCircuitBreaker[interface{}](settings),
		log:     log,
	}
}

func (p *AMQPPublisher) connect() error {
	if p.ch != nil {
		return nil
	}
	ch, closeFn, err := p.dial()
	if err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		ch.Close()
		if closeFn != nil {
			closeFn()
		}
		return fmt.Errorf("error declaring queue %s: %w", p.queue, err)
	}
	p.ch = ch
	p.closeFn = closeFn
	return nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.closeFn != nil {
		p.closeFn()
	}
	p.ch = nil
	p.closeFn = nil
}

// Publish sends event to the queue. It fails fast while the breaker is open.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.connect(); err != nil {
			return nil, err
		}
		err := p.ch.Publish("", p.queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Type:         event.Type,
			Timestamp:    event.OccurredAt,
			Body:         body,
		})
		if err != nil {
			p.reset()
			return nil, fmt.Errorf("error publishing %s: %w", event.Type, err)
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("event publisher unavailable: %w", err)
	}
	return err
}

// State reports the breaker state
func (p *AMQPPublisher) State() string {
	return p.breaker.State().String()
}

// Close closes the channel and connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
