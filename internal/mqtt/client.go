// Package mqtt publishes zbxport events to an MQTT broker.
package mqtt

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Retained payloads of the status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	retryInterval  = 5 * time.Second
	keepAlive      = 30 * time.Second
)

// Options configure a Client.
type Options struct {
	URL      string
	ClientID string
	// Prefix is the event topic prefix. Its status subtopic carries a
	// retained online or offline, with offline also set as the will so
	// subscribers learn when zbxport vanishes.
	Prefix string
}

// StatusTopic returns the status topic under prefix.
func StatusTopic(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/status"
}

// Client publishes events over one broker connection.
type Client struct {
	client paho.Client
	url    string
	status string
	log    *slog.Logger
	mu     sync.Mutex
}

func clientOptions(o Options, onConnect paho.OnConnectHandler) *paho.ClientOptions {
	return paho.NewClientOptions().
		AddBroker(o.URL).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetKeepAlive(keepAlive).
		SetWill(StatusTopic(o.Prefix), StatusOffline, 1, true).
		SetOnConnectHandler(onConnect)
}

// NewClient creates a client for o but does not connect.
func NewClient(o Options, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{url: o.URL, status: StatusTopic(o.Prefix), log: log}
	c.client = paho.NewClient(clientOptions(o, c.onConnect))
	return c
}

// onConnect runs on every connect and reconnect. Handlers must not block
// the paho router, so the status is published from its own goroutine.
func (c *Client) onConnect(paho.Client) {
	go func() {
		if err := c.publish(c.status, []byte(StatusOnline), true); err != nil {
			c.log.Warn("mqtt status publish failed", "topic", c.status, "error", err)
		}
	}()
}

// Connect attempts to connect to the broker without blocking indefinitely.
func (c *Client) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return &ConnectTimeoutError{}
	}
	return token.Error()
}

// Publish sends payload to topic with QoS 1.
func (c *Client) Publish(topic string, payload []byte) error {
	return c.publish(topic, payload, false)
}

func (c *Client) publish(topic string, payload []byte, retained bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return &PublishTimeoutError{Topic: topic}
	}
	return token.Error()
}

// Disconnect marks zbxport offline and leaves the broker.
func (c *Client) Disconnect() {
	if c.client.IsConnected() {
		if err := c.publish(c.status, []byte(StatusOffline), true); err != nil {
			c.log.Warn("mqtt status publish failed", "topic", c.status, "error", err)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client.Disconnect(1000)
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// ConnectTimeoutError indicates connection timed out.
type ConnectTimeoutError struct{}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout"
}

// PublishTimeoutError indicates a publish was not acknowledged in time.
type PublishTimeoutError struct {
	Topic string
}

func (e *PublishTimeoutError) Error() string {
	return "mqtt publish timeout: " + e.Topic
}

// Start connects and logs the outcome without failing the caller. With
// connect retry on, paho keeps trying in the background after a failure.
func (c *Client) Start() bool {
	if err := c.Connect(); err != nil {
		c.log.Warn("mqtt connect failed", "broker", c.url, "error", err)
		return false
	}
	c.log.Info("mqtt connected", "broker", c.url, "status_topic", c.status)
	return true
}
