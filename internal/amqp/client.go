package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"corpdash/internal/audit"
	"corpdash/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Publisher sends upload events to a topic exchange. After maxFailures
// consecutive failures it stops trying for openTimeout so a dead broker
// cannot slow uploads down.
type Publisher struct {
	url          string
	exchangeName string
	routingKey   string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

// NewPublisher dials url and declares the exchange.
func NewPublisher(url, exchangeName, routingKey string, logger *log.Logger) (*Publisher, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if routingKey == "" {
		routingKey = EventUploadProcessed
	}
	p := &Publisher{
		url:          url,
		exchangeName: exchangeName,
		routingKey:   routingKey,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp091.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		p.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	p.mu.Lock()
	p.conn, p.channel = conn, ch
	p.mu.Unlock()
	return nil
}

// Record implements audit.Recorder.
func (p *Publisher) Record(ctx context.Context, e audit.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", EventUploadProcessed, ErrCircuitOpen)
	}

	body, err := NewUploadProcessedMessage(e).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := p.publish(ctx, body); err != nil {
		if isConnectionError(err) {
			p.logger.WarnContext(ctx, "AMQP connection lost, reconnecting", log.FieldError, err.Error())
			if rerr := p.reconnect(ctx); rerr == nil {
				err = p.publish(ctx, body)
			}
		}
		if err != nil {
			p.recordFailure()
			return fmt.Errorf("publish %s: %w", EventUploadProcessed, err)
		}
	}
	p.recordSuccess()

	p.logger.DebugContext(ctx, "Published upload event",
		log.FieldOperation, log.OpPublish,
		log.FieldFilename, e.Filename,
		"outcome", e.Outcome,
		"exchange", p.exchangeName,
		"routing_key", p.routingKey)
	return nil
}

func (p *Publisher) publish(ctx context.Context, body []byte) error {
	p.mu.Lock()
	ch := p.channel
	p.mu.Unlock()
	if ch == nil {
		return amqp091.ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return ch.PublishWithContext(
		ctx,
		p.exchangeName, // exchange
		p.routingKey,   // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Type:         EventUploadProcessed,
			Body:         body,
		},
	)
}

// reconnect retries connect with exponential backoff until it succeeds,
// ctx ends or the attempts run out.
func (p *Publisher) reconnect(ctx context.Context) error {
	p.closeConn()
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = p.connect(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(exponentialBackoff(attempt)):
		}
	}
	return err
}

// Close shuts the channel and connection.
func (p *Publisher) Close() error {
	return p.closeConn()
}

func (p *Publisher) closeConn() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

func (p *Publisher) isCircuitOpen() bool {
	if atomic.LoadInt32(&p.state) != StateOpen {
		return false
	}
	p.mu.Lock()
	last := p.lastFailure
	p.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&p.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (p *Publisher) recordSuccess() {
	atomic.StoreInt64(&p.failureCount, 0)
	atomic.StoreInt32(&p.state, StateClosed)
}

func (p *Publisher) recordFailure() {
	p.mu.Lock()
	p.lastFailure = time.Now()
	p.mu.Unlock()
	if atomic.AddInt64(&p.failureCount, 1) >= maxFailures || atomic.LoadInt32(&p.state) == StateHalfOpen {
		atomic.StoreInt32(&p.state, StateOpen)
	}
}

// exponentialBackoff is 1s doubled per attempt, capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	return min(time.Second<<attempt, maxBackoff)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
