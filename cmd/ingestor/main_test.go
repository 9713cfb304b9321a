package main

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/saviobatista/ais-logger/internal/capture"
	"github.com/saviobatista/ais-logger/internal/testutils"
	"github.com/saviobatista/ais-logger/internal/types"
)

// mockNATSClient is a mock implementation of NATSClient for testing
type mockNATSClient struct {
	mu       sync.Mutex
	messages []*types.AISMessage
	failOn   string
	closed   bool
}

func (m *mockNATSClient) PublishAISMessage(msg *types.AISMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && msg.Raw == m.failOn {
		return errors.New("publish failed")
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockNATSClient) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		natsURL string
		want    string
	}{
		{"default", "", "nats://nats:4222"},
		{"custom", "nats://localhost:4222", "nats://localhost:4222"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NATS_URL", tt.natsURL)
			if got := parseEnvironment(); got != tt.want {
				t.Errorf("parseEnvironment() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToAISMessage(t *testing.T) {
	now := time.Now().UTC()
	msg := toAISMessage(capture.Message{
		Source:    "udp://:10110",
		Data:      []byte(testutils.PositionReport(265547250, 57.66, 11.83, 0.1)),
		Timestamp: now,
	})

	if msg.Source != "udp://:10110" {
		t.Errorf("Source = %q", msg.Source)
	}
	if msg.Raw != testutils.PositionReport(265547250, 57.66, 11.83, 0.1) {
		t.Errorf("Raw = %q", msg.Raw)
	}
	if !msg.Timestamp.Equal(now) {
		t.Error("Timestamp mismatch")
	}
}

func TestForward(t *testing.T) {
	lines := []string{
		testutils.PositionReport(265547250, 57.66, 11.83, 0.1),
		"garbage that still gets logged",
		testutils.PositionReport(211331640, 53.54, 9.98, 12.5),
	}

	msgs := make(chan capture.Message, len(lines))
	for _, line := range lines {
		msgs <- capture.Message{Source: "test-source", Data: []byte(line), Timestamp: time.Now()}
	}
	close(msgs)

	client := &mockNATSClient{failOn: lines[1]}
	published := forward(msgs, client)

	if published != 2 {
		t.Errorf("Expected 2 published messages, got %d", published)
	}
	if len(client.messages) != 2 {
		t.Fatalf("Expected 2 messages at the client, got %d", len(client.messages))
	}
	if client.messages[1].Raw != lines[2] {
		t.Errorf("unexpected order: %q", client.messages[1].Raw)
	}
}

func TestForward_FromFileCapture(t *testing.T) {
	lines := testutils.StaticVoyageData(211331640, "3", "SEA WIND", "DJ7890", "HAMBURG")
	path := filepath.Join(t.TempDir(), "feed.nmea")
	if err := os.WriteFile(path, []byte(lines[0]+"\r\n"+lines[1]+"\r\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c := capture.New([]string{"file://" + path})
	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	client := &mockNATSClient{}
	done := make(chan uint64)
	go func() { done <- forward(c.Messages(), client) }()

	select {
	case n := <-done:
		if n != 2 {
			t.Errorf("Expected 2 published messages, got %d", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("forward() did not finish at end of file")
	}

	if client.messages[0].Source != "file://"+path {
		t.Errorf("Source = %q", client.messages[0].Source)
	}
}

func TestNATSClientInterface(t *testing.T) {
	var client NATSClient = &mockNATSClient{}
	client.Close()

	if !client.(*mockNATSClient).closed {
		t.Error("Close() was not recorded")
	}
}
