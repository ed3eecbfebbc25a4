package mqtt

import (
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/TorchBridge/internal/events"
)

// EnvBrokerURL overrides the configured broker URL.
const EnvBrokerURL = "TORCH_MQTT_URL"

const (
	defaultBrokerURL = "tcp://localhost:1883"
	tokenTimeout     = 10 * time.Second
	publishTimeout   = 5 * time.Second
)

// Options configures a Client.
type Options struct {
	URL      string
	ClientID string
	Username string
	Password string

	// Called after every (re)connect and on connection loss.
	OnConnect        func()
	OnConnectionLost func(error)
}

// Client wraps the Paho MQTT client. Subscriptions are remembered and
// restored after every reconnect.
type Client struct {
	client paho.Client
	url    string

	mu   sync.Mutex
	subs map[string]paho.MessageHandler
}

// BrokerURL picks the broker: env first, then configured, then localhost.
func BrokerURL(configured string) string {
	if url := os.Getenv(EnvBrokerURL); url != "" {
		return url
	}
	if configured != "" {
		return configured
	}
	return defaultBrokerURL
}

// NewClient creates a new MQTT client but does not connect.
func NewClient(opts Options) *Client {
	c := &Client{
		url:  BrokerURL(opts.URL),
		subs: make(map[string]paho.MessageHandler),
	}

	po := paho.NewClientOptions().
		AddBroker(c.url).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)
	if opts.Username != "" {
		po.SetUsername(opts.Username)
		po.SetPassword(opts.Password)
	}

	po.SetOnConnectHandler(func(paho.Client) {
		c.resubscribe()
		events.Emit("info", "bridge.connected", "", map[string]interface{}{"broker": c.url})
		if opts.OnConnect != nil {
			opts.OnConnect()
		}
	})
	po.SetConnectionLostHandler(func(_ paho.Client, err error) {
		events.Emit("warn", "bridge.disconnected", "", map[string]interface{}{
			"broker": c.url,
			"error":  err.Error(),
		})
		if opts.OnConnectionLost != nil {
			opts.OnConnectionLost(err)
		}
	})

	c.client = paho.NewClient(po)
	return c
}

// URL returns the broker this client talks to.
func (c *Client) URL() string { return c.url }

// Connect waits up to tokenTimeout for the first connection. On timeout the
// client keeps retrying in the background.
func (c *Client) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(tokenTimeout) {
		return &ConnectTimeoutError{}
	}
	return token.Error()
}

// Subscribe registers handler for topic. While disconnected the subscription
// is only recorded and made on the next connect.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.mu.Lock()
	c.subs[topic] = handler
	c.mu.Unlock()

	if !c.client.IsConnected() {
		return nil
	}
	return c.subscribe(topic, handler)
}

func (c *Client) subscribe(topic string, handler paho.MessageHandler) error {
	token := c.client.Subscribe(topic, 1, handler)
	if !token.WaitTimeout(tokenTimeout) {
		return &SubscribeTimeoutError{Topic: topic}
	}
	return token.Error()
}

func (c *Client) resubscribe() {
	c.mu.Lock()
	subs := make(map[string]paho.MessageHandler, len(c.subs))
	for topic, h := range c.subs {
		subs[topic] = h
	}
	c.mu.Unlock()

	for topic, h := range subs {
		if err := c.subscribe(topic, h); err != nil {
			events.Emit("error", "bridge.error", "resubscribe failed", map[string]interface{}{
				"topic": topic,
				"error": err.Error(),
			})
		}
	}
}

// Publish sends payload at QoS 1.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	token := c.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return &PublishTimeoutError{Topic: topic}
	}
	return token.Error()
}

// Disconnect cleanly disconnects from the broker.
func (c *Client) Disconnect() {
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

// SubscribeTimeoutError indicates subscription timed out.
type SubscribeTimeoutError struct {
	Topic string
}

func (e *SubscribeTimeoutError) Error() string {
	return "mqtt subscribe timeout: " + e.Topic
}

// PublishTimeoutError indicates a publish was not acknowledged in time.
type PublishTimeoutError struct {
	Topic string
}

func (e *PublishTimeoutError) Error() string {
	return "mqtt publish timeout: " + e.Topic
}
