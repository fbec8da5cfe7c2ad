package rabbitmq

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"racegap/internal/general/config"
	"racegap/internal/general/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
	heartbeat      = 10 * time.Second
	dialTimeout    = 30 * time.Second
)

// Client owns one AMQP connection plus the confirm-mode channel used for
// publishing. It redials and redeclares the race topology when either closes.
type Client struct {
	url    string
	name   string // connection name shown in the management UI
	logger *logger.Logger
	logCtx context.Context

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubChan *amqp.Channel

	pubMu       sync.Mutex
	pubConfirms chan amqp.Confirmation

	closeOnce sync.Once
	closed    chan struct{}
	reconnect chan struct{}
}

// ConnectRabbitMQ dials once and then keeps the connection alive in the background.
func ConnectRabbitMQ(ctx context.Context, cfg *config.Config, service string, logger *logger.Logger) (*Client, error) {
	client := &Client{
		url:       amqpURL(cfg),
		name:      service,
		logger:    logger,
		logCtx:    context.WithoutCancel(ctx),
		closed:    make(chan struct{}),
		reconnect: make(chan struct{}, 1),
	}
	if err := client.connect(); err != nil {
		return nil, err
	}
	go client.watch()
	return client, nil
}

// Close stops reconnecting and releases the connection. It is idempotent.
func (client *Client) Close() {
	client.closeOnce.Do(func() { close(client.closed) })

	client.mu.Lock()
	if client.pubChan != nil {
		_ = client.pubChan.Close()
		client.pubChan = nil
	}
	if client.conn != nil {
		_ = client.conn.Close()
		client.conn = nil
	}
	client.mu.Unlock()

	client.setConfirms(nil)
}

// Ready reports whether the client currently holds an open connection.
func (client *Client) Ready() bool {
	client.mu.RLock()
	defer client.mu.RUnlock()
	return client.conn != nil && !client.conn.IsClosed()
}

// connect dials, declares the topology on a fresh publishing channel and
// installs both. On failure nothing is left open.
func (client *Client) connect() error {
	conn, err := client.dial()
	if err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_dial_failed", "Failed to dial RabbitMQ", err, nil)
		return fmt.Errorf("rabbitmq dial failed: %w", err)
	}

	ch, err := openPublishChannel(conn)
	if err != nil {
		_ = conn.Close()
		client.logger.Error(client.logCtx, "rabbitmq_channel_setup_failed", "Failed to prepare the publishing channel", err, nil)
		return err
	}

	client.setConfirms(ch.NotifyPublish(make(chan amqp.Confirmation, 1)))
	go client.logReturns(ch.NotifyReturn(make(chan amqp.Return, 1)))

	client.mu.Lock()
	if client.pubChan != nil && !client.pubChan.IsClosed() {
		_ = client.pubChan.Close()
	}
	client.conn = conn
	client.pubChan = ch
	client.mu.Unlock()

	go client.awaitClose(conn, ch)

	client.logger.Info(client.logCtx, "rabbitmq_connected", "RabbitMQ connection established", map[string]any{
		"connection_name": client.name,
	})
	return nil
}

func (client *Client) dial() (*amqp.Connection, error) {
	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(client.name)
	return amqp.DialConfig(client.url, amqp.Config{
		Heartbeat:  heartbeat,
		Locale:     "en_US",
		Dial:       amqp.DefaultDial(dialTimeout),
		Properties: props,
	})
}

// openPublishChannel declares the race topology and puts the channel in confirm mode.
func openPublishChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	if err := declareTopology(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: declare topology: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: enable confirms: %w", err)
	}
	return ch, nil
}

// setConfirms installs the confirm stream of the current publishing channel.
// The library closes a stream when its channel shuts down, which releases
// any publisher still waiting on it.
func (client *Client) setConfirms(next chan amqp.Confirmation) {
	client.pubMu.Lock()
	client.pubConfirms = next
	client.pubMu.Unlock()
}

// logReturns reports race events the broker could not route (mandatory publish).
func (client *Client) logReturns(returns <-chan amqp.Return) {
	for r := range returns {
		client.logger.Error(client.logCtx, "rabbitmq_returned", "Race event was returned as unroutable",
			fmt.Errorf("code=%d text=%s", r.ReplyCode, r.ReplyText),
			map[string]any{
				"exchange":    r.Exchange,
				"routing_key": r.RoutingKey,
				"size":        len(r.Body),
			},
		)
	}
}

// awaitClose signals watch once the connection or the publishing channel goes away.
func (client *Client) awaitClose(conn *amqp.Connection, ch *amqp.Channel) {
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-client.closed:
		return
	case <-connClosed:
	case <-chClosed:
	}
	select {
	case client.reconnect <- struct{}{}:
	default:
	}
}

// watch redials with exponential backoff every time awaitClose fires.
func (client *Client) watch() {
	for {
		select {
		case <-client.closed:
			return
		case <-client.reconnect:
			if !client.redial() {
				return
			}
		}
	}
}

// redial retries until connected (true) or the client is closed (false).
func (client *Client) redial() bool {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		select {
		case <-client.closed:
			return false
		default:
		}

		err := client.connect()
		if err == nil {
			client.logger.Info(client.logCtx, "rabbitmq_reconnected", "Reconnected to RabbitMQ and redeclared topology", map[string]any{
				"attempts": attempt,
			})
			return true
		}
		client.logger.Error(client.logCtx, "retry_attempted", "Failed to reconnect to RabbitMQ", err, map[string]any{
			"attempt":    attempt,
			"backoff_ms": backoff.Milliseconds(),
		})

		select {
		case <-client.closed:
			return false
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff)
	}
}

// nextBackoff doubles d up to maxBackoff.
func nextBackoff(d time.Duration) time.Duration {
	return min(2*d, maxBackoff)
}

// amqpURL builds the broker URL with escaped credentials.
func amqpURL(cfg *config.Config) string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(cfg.RabbitMQ.User, cfg.RabbitMQ.Password),
		Host:   net.JoinHostPort(cfg.RabbitMQ.Host, strconv.Itoa(cfg.RabbitMQ.Port)),
		Path:   "/",
	}
	return u.String()
}
