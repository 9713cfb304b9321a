package stats

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saviobatista/ais-logger/internal/types"
)

// Store persists statistics snapshots
type Store interface {
	StoreSystemStats(stats map[string]interface{}) error
}

// Stats tracks message processing statistics
type Stats struct {
	// Message counts
	TotalMessages      uint64
	DecodedMessages    uint64
	FailedMessages     uint64
	IncompleteMessages uint64
	ChecksumWarnings   uint64
	FragmentsEvicted   uint64
	StoredStates       uint64
	CreatedVoyages     uint64
	UpdatedVoyages     uint64
	EndedVoyages       uint64

	// Message type counts, index is the AIS message type
	MessageTypeCounts [28]uint64

	// Decode failures, index is the types.ErrorKind
	FailureCounts [8]uint64

	// Timing
	StartTime       time.Time
	LastMessageTime time.Time
	ProcessingTime  time.Duration

	// Active tracking
	ActiveVessels uint64
	ActiveVoyages uint64

	store Store

	mu sync.RWMutex
}

// New creates a new Stats instance
func New() *Stats {
	now := time.Now()
	return &Stats{
		StartTime:       now,
		LastMessageTime: now,
	}
}

// SetStore sets the backend used by Persist
func (s *Stats) SetStore(store Store) {
	s.mu.Lock()
	s.store = store
	s.mu.Unlock()
}

// Persist stores the current statistics
func (s *Stats) Persist() error {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil {
		return fmt.Errorf("stats store not set")
	}

	return store.StoreSystemStats(s.GetStats())
}

// IncrementTotalMessages increments the total messages counter
func (s *Stats) IncrementTotalMessages() {
	atomic.AddUint64(&s.TotalMessages, 1)
}

// IncrementDecodedMessages increments the decoded messages counter
func (s *Stats) IncrementDecodedMessages() {
	atomic.AddUint64(&s.DecodedMessages, 1)
}

// IncrementIncompleteMessages counts fragments buffered for reassembly
func (s *Stats) IncrementIncompleteMessages() {
	atomic.AddUint64(&s.IncompleteMessages, 1)
}

// IncrementChecksumWarnings counts sentences accepted with a bad checksum
func (s *Stats) IncrementChecksumWarnings() {
	atomic.AddUint64(&s.ChecksumWarnings, 1)
}

// AddFragmentsEvicted counts incomplete messages dropped by reassembly
func (s *Stats) AddFragmentsEvicted(n uint64) {
	atomic.AddUint64(&s.FragmentsEvicted, n)
}

// IncrementFailedMessages increments the failed messages counter
func (s *Stats) IncrementFailedMessages() {
	atomic.AddUint64(&s.FailedMessages, 1)
}

// RecordFailure counts a failed line under the kind of err
func (s *Stats) RecordFailure(err error) {
	s.IncrementFailedMessages()
	kind := types.KindOf(err)
	if kind > 0 && int(kind) < len(s.FailureCounts) {
		atomic.AddUint64(&s.FailureCounts[kind], 1)
	}
}

// IncrementStoredStates increments the stored states counter
func (s *Stats) IncrementStoredStates() {
	atomic.AddUint64(&s.StoredStates, 1)
}

// IncrementMessageType increments the counter for a specific message type
func (s *Stats) IncrementMessageType(msgType int) {
	if msgType >= 0 && msgType < len(s.MessageTypeCounts) {
		atomic.AddUint64(&s.MessageTypeCounts[msgType], 1)
	}
}

// IncrementCreatedVoyages increments the created voyages counter
func (s *Stats) IncrementCreatedVoyages() {
	atomic.AddUint64(&s.CreatedVoyages, 1)
}

// IncrementUpdatedVoyages increments the updated voyages counter
func (s *Stats) IncrementUpdatedVoyages() {
	atomic.AddUint64(&s.UpdatedVoyages, 1)
}

// IncrementEndedVoyages increments the ended voyages counter
func (s *Stats) IncrementEndedVoyages() {
	atomic.AddUint64(&s.EndedVoyages, 1)
}

// SetActiveVessels sets the number of active vessels
func (s *Stats) SetActiveVessels(count uint64) {
	atomic.StoreUint64(&s.ActiveVessels, count)
}

// SetActiveVoyages sets the number of active voyages
func (s *Stats) SetActiveVoyages(count uint64) {
	atomic.StoreUint64(&s.ActiveVoyages, count)
}

// UpdateLastMessageTime updates the last message time
func (s *Stats) UpdateLastMessageTime() {
	s.mu.Lock()
	s.LastMessageTime = time.Now()
	s.mu.Unlock()
}

// AddProcessingTime adds to the total processing time
func (s *Stats) AddProcessingTime(duration time.Duration) {
	s.mu.Lock()
	s.ProcessingTime += duration
	s.mu.Unlock()
}

func (s *Stats) messageTypes() [28]uint64 {
	var counts [28]uint64
	for i := range counts {
		counts[i] = atomic.LoadUint64(&s.MessageTypeCounts[i])
	}
	return counts
}

func (s *Stats) failures() map[string]uint64 {
	out := make(map[string]uint64, len(types.AllKinds))
	for _, kind := range types.AllKinds {
		out[kind.String()] = atomic.LoadUint64(&s.FailureCounts[kind])
	}
	return out
}

// GetStats returns a copy of the current statistics
func (s *Stats) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"total_messages":      atomic.LoadUint64(&s.TotalMessages),
		"decoded_messages":    atomic.LoadUint64(&s.DecodedMessages),
		"failed_messages":     atomic.LoadUint64(&s.FailedMessages),
		"incomplete_messages": atomic.LoadUint64(&s.IncompleteMessages),
		"checksum_warnings":   atomic.LoadUint64(&s.ChecksumWarnings),
		"fragments_evicted":   atomic.LoadUint64(&s.FragmentsEvicted),
		"stored_states":       atomic.LoadUint64(&s.StoredStates),
		"created_voyages":     atomic.LoadUint64(&s.CreatedVoyages),
		"updated_voyages":     atomic.LoadUint64(&s.UpdatedVoyages),
		"ended_voyages":       atomic.LoadUint64(&s.EndedVoyages),
		"active_vessels":      atomic.LoadUint64(&s.ActiveVessels),
		"active_voyages":      atomic.LoadUint64(&s.ActiveVoyages),
		"message_types":       s.messageTypes(),
		"failures":            s.failures(),
		"last_message_time":   s.LastMessageTime,
		"processing_time":     s.ProcessingTime,
		"uptime":              time.Since(s.StartTime),
	}
}

// String returns a string representation of the statistics
func (s *Stats) String() string {
	stats := s.GetStats()
	return fmt.Sprintf(
		"Total Messages: %d\n"+
			"Decoded Messages: %d\n"+
			"Failed Messages: %d\n"+
			"Incomplete Messages: %d\n"+
			"Evicted Fragments: %d\n"+
			"Stored States: %d\n"+
			"Created Voyages: %d\n"+
			"Updated Voyages: %d\n"+
			"Ended Voyages: %d\n"+
			"Active Vessels: %d\n"+
			"Active Voyages: %d\n"+
			"Last Message Time: %s\n"+
			"Processing Time: %s\n"+
			"Uptime: %s",
		stats["total_messages"],
		stats["decoded_messages"],
		stats["failed_messages"],
		stats["incomplete_messages"],
		stats["fragments_evicted"],
		stats["stored_states"],
		stats["created_voyages"],
		stats["updated_voyages"],
		stats["ended_voyages"],
		stats["active_vessels"],
		stats["active_voyages"],
		stats["last_message_time"],
		stats["processing_time"],
		stats["uptime"],
	)
}

// StartPersistence starts periodic persistence of statistics
func (s *Stats) StartPersistence(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final persistence before shutdown
			if err := s.Persist(); err != nil {
				log.Printf("Failed to persist final statistics: %v", err)
			}
			return
		case <-ticker.C:
			if err := s.Persist(); err != nil {
				log.Printf("Failed to persist statistics: %v", err)
			}
		}
	}
}

var (
	descMessages = prometheus.NewDesc(
		"ais_messages_total", "Lines processed by outcome.",
		[]string{"outcome"}, nil)
	descMessageTypes = prometheus.NewDesc(
		"ais_message_types_total", "Decoded messages by AIS message type.",
		[]string{"type"}, nil)
	descFailures = prometheus.NewDesc(
		"ais_decode_failures_total", "Decode failures by error kind.",
		[]string{"kind"}, nil)
	descEvicted = prometheus.NewDesc(
		"ais_fragments_evicted_total", "Incomplete multi-sentence messages dropped by reassembly.",
		nil, nil)
	descStoredStates = prometheus.NewDesc(
		"ais_stored_states_total", "Vessel states written to the database.",
		nil, nil)
	descVoyages = prometheus.NewDesc(
		"ais_voyages_total", "Voyage lifecycle events.",
		[]string{"event"}, nil)
	descActive = prometheus.NewDesc(
		"ais_active", "Currently tracked entities.",
		[]string{"entity"}, nil)
)

// Describe implements prometheus.Collector
func (s *Stats) Describe(ch chan<- *prometheus.Desc) {
	ch <- descMessages
	ch <- descMessageTypes
	ch <- descFailures
	ch <- descEvicted
	ch <- descStoredStates
	ch <- descVoyages
	ch <- descActive
}

// Collect implements prometheus.Collector
func (s *Stats) Collect(ch chan<- prometheus.Metric) {
	counter := func(desc *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
	}

	counter(descMessages, atomic.LoadUint64(&s.TotalMessages), "received")
	counter(descMessages, atomic.LoadUint64(&s.DecodedMessages), "decoded")
	counter(descMessages, atomic.LoadUint64(&s.FailedMessages), "failed")
	counter(descMessages, atomic.LoadUint64(&s.IncompleteMessages), "incomplete")
	counter(descMessages, atomic.LoadUint64(&s.ChecksumWarnings), "checksum_warning")

	for msgType, n := range s.messageTypes() {
		if n > 0 {
			counter(descMessageTypes, n, strconv.Itoa(msgType))
		}
	}
	for kind, n := range s.failures() {
		counter(descFailures, n, kind)
	}

	counter(descEvicted, atomic.LoadUint64(&s.FragmentsEvicted))
	counter(descStoredStates, atomic.LoadUint64(&s.StoredStates))
	counter(descVoyages, atomic.LoadUint64(&s.CreatedVoyages), "created")
	counter(descVoyages, atomic.LoadUint64(&s.UpdatedVoyages), "updated")
	counter(descVoyages, atomic.LoadUint64(&s.EndedVoyages), "ended")

	ch <- prometheus.MustNewConstMetric(descActive, prometheus.GaugeValue,
		float64(atomic.LoadUint64(&s.ActiveVessels)), "vessels")
	ch <- prometheus.MustNewConstMetric(descActive, prometheus.GaugeValue,
		float64(atomic.LoadUint64(&s.ActiveVoyages)), "voyages")
}

// Handler returns an HTTP handler exposing s on a private registry
func (s *Stats) Handler() (http.Handler, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(s); err != nil {
		return nil, fmt.Errorf("failed to register stats collector: %w", err)
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
