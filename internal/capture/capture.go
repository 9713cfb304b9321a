package capture

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// maxLineLength bounds a line that never sees a terminator. NMEA sentences
// are at most 82 characters but tag blocks can add a few hundred.
const maxLineLength = 4096

// Message is one line captured from a source
type Message struct {
	Source    string
	Data      []byte
	Timestamp time.Time
}

// Source produces lines until stop is closed or the input ends
type Source interface {
	Name() string
	Run(stop <-chan struct{}, emit func(line []byte) bool) error
}

// ParseSource builds a source from an address. Supported forms are
// tcp://host:port, udp://host:port, file://path and a bare host:port,
// which is treated as TCP.
func ParseSource(addr string) (Source, error) {
	addr = strings.TrimSpace(addr)
	switch {
	case addr == "":
		return nil, fmt.Errorf("empty source")
	case strings.HasPrefix(addr, "tcp://"):
		return NewTCPSource(strings.TrimPrefix(addr, "tcp://")), nil
	case strings.HasPrefix(addr, "udp://"):
		return NewUDPSource(strings.TrimPrefix(addr, "udp://")), nil
	case strings.HasPrefix(addr, "file://"):
		return NewFileSource(strings.TrimPrefix(addr, "file://")), nil
	case strings.Contains(addr, "://"):
		return nil, fmt.Errorf("unsupported source scheme in %q", addr)
	default:
		return NewTCPSource(addr), nil
	}
}

// Capture fans lines from several sources into one channel
type Capture struct {
	sources   []Source
	invalid   []error
	msgChan   chan Message
	wg        sync.WaitGroup
	stopChan  chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
}

// New creates a Capture for the given source addresses
func New(sources []string) *Capture {
	c := newCapture()
	for _, addr := range sources {
		src, err := ParseSource(addr)
		if err != nil {
			c.invalid = append(c.invalid, err)
			continue
		}
		c.sources = append(c.sources, src)
	}
	return c
}

// NewWithSources creates a Capture for already built sources
func NewWithSources(sources ...Source) *Capture {
	c := newCapture()
	c.sources = sources
	return c
}

func newCapture() *Capture {
	return &Capture{
		msgChan:  make(chan Message, 1000),
		stopChan: make(chan struct{}),
	}
}

// Start launches one goroutine per source. The message channel is closed
// once every source has returned.
func (c *Capture) Start() error {
	if len(c.invalid) > 0 {
		return fmt.Errorf("invalid sources: %v", c.invalid)
	}

	for _, src := range c.sources {
		c.wg.Add(1)
		go c.run(src)
	}

	go func() {
		c.wg.Wait()
		c.closeMessages()
	}()
	return nil
}

func (c *Capture) run(src Source) {
	defer c.wg.Done()

	name := src.Name()
	err := src.Run(c.stopChan, func(line []byte) bool {
		select {
		case c.msgChan <- Message{Source: name, Data: line, Timestamp: time.Now().UTC()}:
			return true
		case <-c.stopChan:
			return false
		}
	})
	if err != nil {
		log.Printf("Source %s stopped: %v", name, err)
	}
}

func (c *Capture) closeMessages() {
	c.closeOnce.Do(func() { close(c.msgChan) })
}

// Stop signals every source and waits for them to return
func (c *Capture) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
	c.closeMessages()
}

// Messages returns the channel for receiving lines
func (c *Capture) Messages() <-chan Message {
	return c.msgChan
}

// lineBuffer turns a byte stream into trimmed, non-empty lines. A line
// longer than maxLineLength is dropped up to its terminator.
type lineBuffer struct {
	pending    []byte
	discarding bool
}

// feed appends data and emits every complete line. It returns false when
// emit asked to stop.
func (b *lineBuffer) feed(data []byte, emit func([]byte) bool) bool {
	b.pending = append(b.pending, data...)
	for {
		i := bytes.IndexByte(b.pending, '\n')
		if i < 0 {
			break
		}
		line := b.pending[:i]
		b.pending = b.pending[i+1:]
		if b.discarding || len(line) > maxLineLength {
			b.discarding = false
			continue
		}
		if !emitLine(line, emit) {
			return false
		}
	}
	if len(b.pending) > maxLineLength {
		b.pending = b.pending[:0]
		b.discarding = true
	}
	return true
}

// flush emits a trailing line that had no terminator
func (b *lineBuffer) flush(emit func([]byte) bool) bool {
	line := b.pending
	b.pending = nil
	if b.discarding {
		b.discarding = false
		return true
	}
	return emitLine(line, emit)
}

func emitLine(line []byte, emit func([]byte) bool) bool {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return true
	}
	out := make([]byte, len(line))
	copy(out, line)
	return emit(out)
}

// sleep waits for d and reports false if stop closed first
func sleep(stop <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-stop:
		return false
	}
}

func stopped(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
