package nats

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/saviobatista/ais-logger/internal/types"
)

const (
	// SubjectAISRaw carries raw NMEA lines from the ingestor
	SubjectAISRaw = "ais.raw"
	// SubjectVesselStates is the prefix for decoded states, one subject per MMSI
	SubjectVesselStates = "ais.states"

	streamName = "AIS_RAW"
)

// Client represents a NATS client
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// New creates a new NATS client and makes sure the raw stream exists
func New(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.Name("ais-logger"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Printf("NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{SubjectAISRaw},
		Storage:  nats.FileStorage,
		MaxAge:   24 * time.Hour,
	})
	if err != nil && !isStreamExists(err) {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return &Client{
		conn: nc,
		js:   js,
	}, nil
}

func isStreamExists(err error) bool {
	return strings.Contains(err.Error(), "stream name already in use")
}

// StateSubject returns the subject decoded states of mmsi are published on
func StateSubject(mmsi uint32) string {
	return fmt.Sprintf("%s.%d", SubjectVesselStates, mmsi)
}

// PublishAISMessage publishes a raw AIS line to the stream
func (c *Client) PublishAISMessage(msg *types.AISMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = c.js.Publish(SubjectAISRaw, data)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// SubscribeAISRaw subscribes to raw AIS lines
func (c *Client) SubscribeAISRaw(handler func(*types.AISMessage)) error {
	_, err := c.js.Subscribe(SubjectAISRaw, func(msg *nats.Msg) {
		var aisMsg types.AISMessage
		if err := json.Unmarshal(msg.Data, &aisMsg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			return
		}
		handler(&aisMsg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	return nil
}

// PublishVesselState publishes a decoded state on its per-vessel subject.
// States are live data and are not kept in the stream.
func (c *Client) PublishVesselState(state *types.VesselState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := c.conn.Publish(StateSubject(state.MMSI), data); err != nil {
		return fmt.Errorf("failed to publish state: %w", err)
	}
	return nil
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
