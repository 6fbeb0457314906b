// Package amqp publishes and consumes follow-up work on RabbitMQ.
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

	"brokeometer/internal/core"
	"brokeometer/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}

	c.mu.Lock()
	err := c.connectLocked()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(ch, c.exchangeName, c.queueName); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn, c.channel = conn, ch
	return nil
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name.
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// ensureChannel reconnects when the broker dropped the connection.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() && c.conn != nil && !c.conn.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	c.logger.Info("Reconnected to AMQP broker", "exchange", c.exchangeName, "queue", c.queueName)
	return c.channel, nil
}

// Publish sends msg to the work queue. While the circuit is open it fails
// fast without touching the broker.
func (c *Client) Publish(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", msg.Type, ErrCircuitOpen)
	}

	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    msg.Timestamp,
			Type:         string(msg.Type),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.logger.InfoContext(ctx, "Published message",
		log.FieldMessage, msg.Type,
		log.FieldExpenseID, msg.ExpenseID,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// RequestRefresh hands insight generation to the worker.
func (c *Client) RequestRefresh(ctx context.Context, period string) error {
	return c.Publish(ctx, NewInsightRefreshMessage(period))
}

func (c *Client) PublishExpenseSync(ctx context.Context, e core.Expense) error {
	return c.Publish(ctx, NewExpenseSyncMessage(e))
}

func (c *Client) PublishExpenseDelete(ctx context.Context, id string) error {
	return c.Publish(ctx, NewExpenseDeleteMessage(id))
}

// Handler processes one message. Returning an error requeues it.
type Handler func(ctx context.Context, msg *Message) error

// Consume delivers messages to handler until ctx is done, reconnecting with
// exponential backoff when the broker goes away. Malformed messages are
// dropped; handler errors requeue the delivery.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, handler, func() { attempt = 0 })
		if ctx.Err() != nil {
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		attempt++
		c.logger.WarnContext(ctx, "AMQP connection lost, retrying",
			log.FieldError, err, "attempt", attempt, "backoff", wait.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler Handler, connected func()) error {
	ch, err := c.ensureChannel()
	if err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	connected()

	c.logger.InfoContext(ctx, "Started consuming messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handle(ctx, d, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, d amqp091.Delivery, handler Handler) {
	msg, err := MessageFromJSON(d.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Dropping malformed message", log.FieldError, err)
		d.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle message",
			log.FieldError, err,
			log.FieldMessage, msg.Type,
			log.FieldExpenseID, msg.ExpenseID)
		d.Nack(false, true)
		return
	}

	d.Ack(false)
	c.logger.DebugContext(ctx, "Processed message", log.FieldMessage, msg.Type, log.FieldExpenseID, msg.ExpenseID)
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()

	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures ||
		atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			c.logger.Warn("AMQP circuit breaker opened", "failures", atomic.LoadInt64(&c.failureCount))
		}
	}
}

// exponentialBackoff returns 1s, 2s, 4s... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var amqpErr *amqp091.Error
	if errors.As(err, &amqpErr) && amqpErr.Recover {
		return true
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "channel closed", "dial"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
