package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/pratik-sharma-25/expenseTracker/internal/metrics"
)

// HandlerFunc processes one delivery from an intent channel. A nil return
// acks the message; an error rejects it without requeue (the caller owns
// retry and dead-lettering).
type HandlerFunc func(ctx context.Context, channel string, body []byte) error

// Client is a long-lived connection to the message bus, shared across
// publishes and reused until it fails. On a connection-level failure the
// client redials with exponential backoff instead of reconnecting per call.
type Client struct {
	mu           sync.Mutex
	url          string
	exchangeName string
	conn         *amqp091.Connection
	channel      *amqp091.Channel
}

func NewClient(url, exchangeName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
	}

	if err := client.connect(); err != nil {
		return nil, err
	}

	return client, nil
}

// connect dials the bus, opens a channel and declares the topology. Caller
// must hold no locks; connect takes c.mu itself.
func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	c.closeLocked()

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.conn = conn
	c.channel = channel

	if err := c.setup(); err != nil {
		c.closeLocked()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}

	return nil
}

// setup declares the direct exchange, the three intent queues bound by their
// own name, and the dead-letter queue. Declarations are idempotent on the
// broker side.
func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, queue := range append([]string{DeadLetterQueue}, Channels...) {
		_, err = c.channel.QueueDeclare(
			queue, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}

		// Routing key equals the queue name on a direct exchange.
		err = c.channel.QueueBind(queue, queue, c.exchangeName, false, nil)
		if err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}

	return nil
}

// Publish emits a payload on the given channel and returns without waiting
// for it to be applied. A connection-level failure triggers one redial before
// the error propagates to the caller; the intent is lost if that also fails.
func (c *Client) Publish(ctx context.Context, channel string, body []byte) error {
	err := c.publishOnce(ctx, channel, body)
	if err != nil && isConnectionError(err) {
		slog.WarnContext(ctx, "Publish hit a dead connection, redialing",
			"channel", channel,
			"error", err)
		if rerr := c.connect(); rerr != nil {
			metrics.PublishFailures.WithLabelValues(channel).Inc()
			return fmt.Errorf("reconnect for publish: %w", rerr)
		}
		err = c.publishOnce(ctx, channel, body)
	}
	if err != nil {
		metrics.PublishFailures.WithLabelValues(channel).Inc()
		return err
	}

	metrics.MessagesPublished.WithLabelValues(channel).Inc()
	return nil
}

func (c *Client) publishOnce(ctx context.Context, channel string, body []byte) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()

	if ch == nil {
		return errors.New("not connected")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		channel,        // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	return nil
}

// PublishDeadLetter parks an undeliverable payload on the dead-letter queue,
// wrapped with its origin channel and failure reason.
func (c *Client) PublishDeadLetter(ctx context.Context, channel, reason string, body []byte) error {
	wrapped, err := json.Marshal(DeadLetterMessage{
		Channel:  channel,
		Reason:   reason,
		Body:     body,
		ParkedOn: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	if err := c.Publish(ctx, DeadLetterQueue, wrapped); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}

	metrics.DeadLettered.WithLabelValues(reason).Inc()
	return nil
}

// Consume subscribes to all three intent channels and dispatches deliveries
// to the handler until the context is cancelled. Connection failures are
// retried with exponential backoff; handler errors reject the delivery
// without requeue.
func (c *Client) Consume(ctx context.Context, handler HandlerFunc) error {
	for attempt := 0; ; attempt++ {
		err := c.consumeOnce(ctx, handler)
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		backoff := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "Bus connection lost, reconnecting",
			"error", err,
			"attempt", attempt+1,
			"backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if err := c.connect(); err != nil {
			slog.ErrorContext(ctx, "Reconnect failed", "error", err, "attempt", attempt+1)
			continue
		}
		attempt = -1 // fresh connection, reset backoff
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler HandlerFunc) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()

	if ch == nil {
		return errors.New("not connected")
	}

	group, ctx := errgroup.WithContext(ctx)
	for _, queue := range Channels {
		msgs, err := ch.Consume(
			queue, // queue
			"",    // consumer
			false, // auto-ack (we want manual ack)
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,   // args
		)
		if err != nil {
			return fmt.Errorf("start consuming %s: %w", queue, err)
		}

		group.Go(func() error {
			return c.consumeLoop(ctx, queue, msgs, handler)
		})
	}

	slog.InfoContext(ctx, "Started consuming mutation intents", "queues", Channels)
	return group.Wait()
}

func (c *Client) consumeLoop(ctx context.Context, queue string, msgs <-chan amqp091.Delivery, handler HandlerFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", queue)
			}

			if err := handler(ctx, queue, delivery.Body); err != nil {
				slog.ErrorContext(ctx, "Handler rejected message",
					"channel", queue,
					"error", err)
				delivery.Nack(false, false) // reject, don't requeue
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// exponentialBackoff returns the wait before the given reconnect attempt,
// doubling from 1s and capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	backoff := time.Second << uint(attempt)
	if backoff <= 0 || backoff > 30*time.Second {
		return 30 * time.Second
	}
	return backoff
}

// isConnectionError reports whether the error looks like a broken bus
// connection worth redialing, as opposed to a protocol or handler error.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection closed",
		"connection reset",
		"unexpected EOF",
		"broken pipe",
		"use of closed network connection",
		"not connected",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
