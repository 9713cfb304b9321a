package mqtt

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/saviobatista/ais-logger/internal/types"
)

// DefaultTopic is the prefix used when none is configured
const DefaultTopic = "ais/vessels"

const publishTimeout = 5 * time.Second

// Client is the subset of the paho client used for publishing
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Publisher sends vessel states to an MQTT broker, one topic per MMSI
type Publisher struct {
	client Client
	prefix string
}

// New connects to broker. A broker without a scheme is assumed to be tcp.
// Credentials may be given in the URL as user:pass@host:port.
func New(broker, prefix string) (*Publisher, error) {
	opts := paho.NewClientOptions()

	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	opts.AddBroker(broker)
	opts.SetClientID(generateClientID())
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)

	opts.SetOnConnectHandler(func(paho.Client) {
		log.Println("MQTT: Connected to broker")
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Printf("MQTT: Connection lost: %v", err)
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		log.Printf("MQTT: Broker %s not reachable yet, retrying in background", broker)
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return NewWithClient(client, prefix), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client Client, prefix string) *Publisher {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopic
	}
	return &Publisher{client: client, prefix: prefix}
}

// Topic returns the topic a vessel's states are published on
func (p *Publisher) Topic(mmsi uint32) string {
	return fmt.Sprintf("%s/%09d", p.prefix, mmsi)
}

// PublishVesselState publishes state as JSON with QoS 0
func (p *Publisher) PublishVesselState(state *types.VesselState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal vessel state: %w", err)
	}

	token := p.client.Publish(p.Topic(state.MMSI), 0, false, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing vessel %09d", state.MMSI)
	}
	return token.Error()
}

// Close disconnects from the broker
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

func generateClientID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "ais-logger_" + hex.EncodeToString(b)
}
