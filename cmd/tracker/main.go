package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/saviobatista/ais-logger/internal/config"
	"github.com/saviobatista/ais-logger/internal/db"
	"github.com/saviobatista/ais-logger/internal/logging"
	"github.com/saviobatista/ais-logger/internal/mqtt"
	"github.com/saviobatista/ais-logger/internal/nats"
	"github.com/saviobatista/ais-logger/internal/parser"
	"github.com/saviobatista/ais-logger/internal/redis"
	"github.com/saviobatista/ais-logger/internal/stats"
	"github.com/saviobatista/ais-logger/internal/types"
)

// VoyageTimeout is how long a vessel may stay silent before its voyage ends
const VoyageTimeout = 30 * time.Minute

// DBClient interface for testability
type DBClient interface {
	GetActiveVoyages() ([]*types.Voyage, error)
	CreateVoyage(voyage *types.Voyage) error
	UpdateVoyage(voyage *types.Voyage) error
	StoreVesselState(state *types.VesselState) error
	UpsertVessel(info *types.VesselInfo) error
	GetVessel(mmsi uint32) (*types.VesselInfo, error)
	Close() error
}

// RedisClient interface for testability
type RedisClient interface {
	StoreVoyage(ctx context.Context, voyage *types.Voyage) error
	GetVoyage(ctx context.Context, mmsi uint32) (*types.Voyage, error)
	DeleteVoyage(ctx context.Context, mmsi uint32) error
	StoreVesselState(ctx context.Context, state *types.VesselState) error
	GetVesselState(ctx context.Context, mmsi uint32) (*types.VesselState, error)
	DeleteVesselState(ctx context.Context, mmsi uint32) error
	StoreVesselInfo(ctx context.Context, info *types.VesselInfo) error
	GetVesselInfo(ctx context.Context, mmsi uint32) (*types.VesselInfo, error)
	Close() error
}

// StatePublisher fans decoded vessel states out to subscribers
type StatePublisher interface {
	PublishVesselState(state *types.VesselState) error
}

// StateTracker tracks vessel states and voyages
type StateTracker struct {
	db         DBClient
	redis      RedisClient
	publishers []StatePublisher
	opts       parser.Options

	parsers       map[string]*parser.Parser // One per source, reassembly is per stream
	activeVoyages map[uint32]*types.Voyage
	lastSeen      map[uint32]time.Time // Message time of the last report
	lastArrival   map[uint32]time.Time // Local clock when it was received
	states        map[uint32]*types.VesselState // Cache of latest states
	stats         *stats.Stats
	now           func() time.Time

	mu sync.Mutex
}

// NewStateTracker creates a new state tracker
func NewStateTracker(db DBClient, redis RedisClient, opts parser.Options, publishers ...StatePublisher) *StateTracker {
	return &StateTracker{
		db:            db,
		redis:         redis,
		publishers:    publishers,
		opts:          opts,
		parsers:       make(map[string]*parser.Parser),
		activeVoyages: make(map[uint32]*types.Voyage),
		lastSeen:      make(map[uint32]time.Time),
		lastArrival:   make(map[uint32]time.Time),
		states:        make(map[uint32]*types.VesselState),
		stats:         stats.New(),
		now:           time.Now,
	}
}

// Start loads open voyages and starts the background jobs
func (t *StateTracker) Start(ctx context.Context) error {
	voyages, err := t.db.GetActiveVoyages()
	if err != nil {
		return fmt.Errorf("failed to load active voyages: %w", err)
	}

	t.mu.Lock()
	for _, voyage := range voyages {
		t.activeVoyages[voyage.MMSI] = voyage
		// Voyages left open by a previous run get a full timeout from now
		t.lastSeen[voyage.MMSI] = t.now()
		t.lastArrival[voyage.MMSI] = t.now()
		if err := t.redis.StoreVoyage(ctx, voyage); err != nil {
			log.Printf("Warning: Failed to cache voyage in Redis: %v", err)
		}
	}
	t.stats.SetActiveVoyages(uint64(len(t.activeVoyages)))
	t.mu.Unlock()

	if store, ok := t.db.(stats.Store); ok {
		t.stats.SetStore(store)
		go t.stats.StartPersistence(ctx, 5*time.Minute)
	}

	go t.logStats(ctx)
	go t.sweepVoyages(ctx, time.Minute)

	return nil
}

// Stats returns the tracker statistics
func (t *StateTracker) Stats() *stats.Stats {
	return t.stats
}

func (t *StateTracker) parserFor(source string) *parser.Parser {
	p, ok := t.parsers[source]
	if !ok {
		p = parser.New(t.opts)
		t.parsers[source] = p
	}
	return p
}

// ProcessMessage decodes one raw line and updates vessel state
func (t *StateTracker) ProcessMessage(msg *types.AISMessage) error {
	start := time.Now()
	t.stats.IncrementTotalMessages()
	t.stats.UpdateLastMessageTime()

	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.parserFor(msg.Source)
	evicted := p.Evicted()
	out, err := p.Parse([]byte(msg.Raw), t.opts.Strict)
	t.stats.AddFragmentsEvicted(p.Evicted() - evicted)
	if err != nil {
		t.stats.RecordFailure(err)
		return fmt.Errorf("failed to parse message: %w", err)
	}
	if len(out.Warnings) > 0 {
		t.stats.IncrementChecksumWarnings()
	}
	if out.Status == parser.Incomplete {
		t.stats.IncrementIncompleteMessages()
		return nil
	}
	if out.Message == nil {
		err := types.NewError(types.KindUnsupportedType, "message_type", msg.Raw, "no decoder for message")
		t.stats.RecordFailure(err)
		return nil
	}

	t.stats.IncrementDecodedMessages()
	t.stats.IncrementMessageType(int(out.Message.Base().MessageType))

	timestamp := messageTime(out, msg.Timestamp)
	ctx := context.Background()

	if info := parser.InfoFromMessage(out.Message, timestamp); info != nil {
		t.updateVesselInfo(ctx, info)
	}

	state := parser.StateFromMessage(out.Message, timestamp)
	if state == nil {
		return nil // Base stations, aids to navigation and the like
	}
	state.Source = msg.Source
	state = t.mergeState(state)

	if state.HasPosition() {
		if err := t.updateVoyage(ctx, state); err != nil {
			return fmt.Errorf("failed to update voyage: %w", err)
		}
		if err := t.db.StoreVesselState(state); err != nil {
			return fmt.Errorf("failed to store vessel state: %w", err)
		}
		t.stats.IncrementStoredStates()
	}

	if err := t.redis.StoreVesselState(ctx, state); err != nil {
		log.Printf("Warning: Failed to store vessel state in Redis: %v", err)
	}
	for _, p := range t.publishers {
		if err := p.PublishVesselState(state); err != nil {
			log.Printf("Warning: Failed to publish vessel state: %v", err)
		}
	}

	t.stats.SetActiveVessels(uint64(len(t.states)))
	t.stats.SetActiveVoyages(uint64(len(t.activeVoyages)))
	t.stats.AddProcessingTime(time.Since(start))

	return nil
}

// messageTime prefers the receiver timestamp of the tag block
func messageTime(out *parser.Outcome, fallback time.Time) time.Time {
	if out.TagBlock == nil || out.TagBlock.ReceiverTimestamp == nil {
		return fallback
	}
	ts := int64(*out.TagBlock.ReceiverTimestamp)
	// Some receivers report milliseconds
	if ts > 1e11 {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// updateVesselInfo records static data in Redis and the database
func (t *StateTracker) updateVesselInfo(ctx context.Context, info *types.VesselInfo) {
	if err := t.redis.StoreVesselInfo(ctx, info); err != nil {
		log.Printf("Warning: Failed to store vessel info in Redis: %v", err)
	}
	if err := t.db.UpsertVessel(info); err != nil {
		log.Printf("Warning: Failed to store vessel info: %v", err)
	}

	if voyage := t.activeVoyages[info.MMSI]; voyage != nil && info.Name != "" {
		voyage.Name = info.Name
	}
}

// mergeState folds newState into the cached state of the vessel and returns
// the merged copy. Static fields persist across dynamic reports.
func (t *StateTracker) mergeState(newState *types.VesselState) *types.VesselState {
	existing, ok := t.states[newState.MMSI]
	if !ok {
		info := t.knownVessel(newState.MMSI)
		if info == nil {
			t.states[newState.MMSI] = newState
			return copyState(newState)
		}
		existing = &types.VesselState{
			MMSI:        info.MMSI,
			Name:        info.Name,
			Callsign:    info.Callsign,
			IMO:         info.IMO,
			ShipType:    info.ShipType,
			Destination: info.Destination,
		}
	}

	mergeStates(existing, newState)
	t.states[newState.MMSI] = existing
	return copyState(existing)
}

// knownVessel looks up static data from the Redis cache, then the vessels table
func (t *StateTracker) knownVessel(mmsi uint32) *types.VesselInfo {
	if info, err := t.redis.GetVesselInfo(context.Background(), mmsi); err == nil && info != nil {
		return info
	}
	info, err := t.db.GetVessel(mmsi)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("Warning: Failed to load vessel %d: %v", mmsi, err)
		}
		return nil
	}
	return info
}

// mergeStates merges newState into existing
func mergeStates(existing, newState *types.VesselState) {
	if newState.Name != "" {
		existing.Name = newState.Name
	}
	if newState.Callsign != "" {
		existing.Callsign = newState.Callsign
	}
	if newState.IMO != 0 {
		existing.IMO = newState.IMO
	}
	if newState.ShipType != 0 {
		existing.ShipType = newState.ShipType
	}
	if newState.Destination != "" {
		existing.Destination = newState.Destination
	}
	if newState.NavStatus != "" {
		existing.NavStatus = newState.NavStatus
	}
	if newState.HasPosition() {
		existing.Latitude = newState.Latitude
		existing.Longitude = newState.Longitude
		existing.Speed = newState.Speed
		existing.Course = newState.Course
		existing.Heading = newState.Heading
	}
	existing.MsgType = newState.MsgType
	existing.Source = newState.Source
	existing.Timestamp = newState.Timestamp
}

func copyState(s *types.VesselState) *types.VesselState {
	cp := *s
	return &cp
}

// updateVoyage updates or creates the voyage of a positioned state
func (t *StateTracker) updateVoyage(ctx context.Context, state *types.VesselState) error {
	// Try to get voyage from Redis first
	voyage, err := t.redis.GetVoyage(ctx, state.MMSI)
	if err != nil {
		log.Printf("Warning: Failed to get voyage from Redis: %v", err)
	}

	// If not in Redis, check local cache
	if local := t.activeVoyages[state.MMSI]; local != nil {
		voyage = local
	}

	if voyage != nil {
		last, seen := t.lastSeen[state.MMSI]
		if seen && state.Timestamp.Sub(last) > VoyageTimeout {
			if err := t.endVoyage(ctx, voyage, last); err != nil {
				return err
			}
			voyage = nil
		}
	}
	t.lastSeen[state.MMSI] = state.Timestamp
	t.lastArrival[state.MMSI] = t.now()

	lat, lon := *state.Latitude, *state.Longitude
	if voyage == nil {
		voyage = &types.Voyage{
			SessionID:      uuid.New().String(),
			MMSI:           state.MMSI,
			Name:           state.Name,
			StartedAt:      state.Timestamp,
			FirstLatitude:  lat,
			FirstLongitude: lon,
			LastLatitude:   lat,
			LastLongitude:  lon,
		}
		if state.Speed != nil {
			voyage.MaxSpeed = *state.Speed
		}
		t.activeVoyages[state.MMSI] = voyage

		if err := t.redis.StoreVoyage(ctx, voyage); err != nil {
			log.Printf("Warning: Failed to store voyage in Redis: %v", err)
		}
		if err := t.db.CreateVoyage(voyage); err != nil {
			return fmt.Errorf("failed to create voyage: %w", err)
		}
		t.stats.IncrementCreatedVoyages()
		state.SessionID = voyage.SessionID
		return nil
	}

	t.activeVoyages[state.MMSI] = voyage
	voyage.LastLatitude = lat
	voyage.LastLongitude = lon
	if state.Speed != nil && *state.Speed > voyage.MaxSpeed {
		voyage.MaxSpeed = *state.Speed
	}
	if state.Name != "" {
		voyage.Name = state.Name
	}

	if err := t.redis.StoreVoyage(ctx, voyage); err != nil {
		log.Printf("Warning: Failed to update voyage in Redis: %v", err)
	}
	t.stats.IncrementUpdatedVoyages()
	state.SessionID = voyage.SessionID
	return nil
}

// endVoyage closes a voyage at endedAt and forgets the vessel
func (t *StateTracker) endVoyage(ctx context.Context, voyage *types.Voyage, endedAt time.Time) error {
	voyage.EndedAt = endedAt
	delete(t.activeVoyages, voyage.MMSI)
	delete(t.lastSeen, voyage.MMSI)
	delete(t.lastArrival, voyage.MMSI)
	delete(t.states, voyage.MMSI)

	// Remove from Redis
	if err := t.redis.DeleteVoyage(ctx, voyage.MMSI); err != nil {
		log.Printf("Warning: Failed to delete voyage from Redis: %v", err)
	}
	if err := t.redis.DeleteVesselState(ctx, voyage.MMSI); err != nil {
		log.Printf("Warning: Failed to delete vessel state from Redis: %v", err)
	}

	if err := t.db.UpdateVoyage(voyage); err != nil {
		return fmt.Errorf("failed to end voyage: %w", err)
	}
	t.stats.IncrementEndedVoyages()
	return nil
}

// EndInactiveVoyages ends every voyage that received nothing for longer than
// VoyageTimeout on the local clock. Receiver timestamps may be skewed or
// replayed, so they only set the recorded end time.
func (t *StateTracker) EndInactiveVoyages(ctx context.Context) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	ended := 0
	for mmsi, voyage := range t.activeVoyages {
		if now.Sub(t.lastArrival[mmsi]) <= VoyageTimeout {
			continue
		}
		if err := t.endVoyage(ctx, voyage, t.lastSeen[mmsi]); err != nil {
			log.Printf("Failed to end voyage %s: %v", voyage.SessionID, err)
			continue
		}
		ended++
	}

	t.stats.SetActiveVessels(uint64(len(t.states)))
	t.stats.SetActiveVoyages(uint64(len(t.activeVoyages)))
	return ended
}

// sweepVoyages periodically ends inactive voyages
func (t *StateTracker) sweepVoyages(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.EndInactiveVoyages(ctx); n > 0 {
				log.Printf("Ended %d inactive voyages", n)
			}
		}
	}
}

// logStats periodically logs statistics
func (t *StateTracker) logStats(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Printf("Statistics:\n%s", t.stats)
		}
	}
}

// createClients creates all the required clients for the application
func createClients(env config.ServiceConfig) (*nats.Client, *db.Client, *redis.Client, error) {
	natsClient, err := nats.New(env.NATSURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create NATS client: %w", err)
	}

	dbClient, err := db.New(env.DBConnStr)
	if err != nil {
		natsClient.Close()
		return nil, nil, nil, fmt.Errorf("failed to create database client: %w", err)
	}

	redisClient, err := redis.New(env.RedisAddr)
	if err != nil {
		natsClient.Close()
		if closeErr := dbClient.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing dbClient: %v\n", closeErr)
		}
		return nil, nil, nil, fmt.Errorf("failed to create Redis client: %w", err)
	}

	return natsClient, dbClient, redisClient, nil
}

// setupNATSSubscription sets up the NATS subscription for raw AIS lines
func setupNATSSubscription(natsClient *nats.Client, tracker *StateTracker) error {
	if err := natsClient.SubscribeAISRaw(func(msg *types.AISMessage) {
		if err := tracker.ProcessMessage(msg); err != nil {
			log.Printf("Failed to process message: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to subscribe to AIS messages: %w", err)
	}
	return nil
}

// serveMetrics exposes the tracker statistics for Prometheus
func serveMetrics(addr string, s *stats.Stats) (*http.Server, error) {
	handler, err := s.Handler()
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Metrics server failed: %v", err)
		}
	}()
	log.Printf("Serving metrics on %s/metrics", addr)
	return srv, nil
}

func main() {
	if err := run(); err != nil {
		log.Printf("Tracker failed: %v", err)
		os.Exit(1)
	}
}

func run() error {
	logCfg, err := config.LoadLogging()
	if err != nil {
		return fmt.Errorf("failed to load logging configuration: %w", err)
	}
	closer, err := logging.Setup("tracker", logCfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()

	decoderCfg, err := config.LoadDecoder()
	if err != nil {
		return fmt.Errorf("failed to load decoder configuration: %w", err)
	}
	env := config.LoadServices()

	natsClient, dbClient, redisClient, err := createClients(env)
	if err != nil {
		return err
	}
	defer func() {
		natsClient.Close()
		if err := dbClient.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing dbClient: %v\n", err)
		}
		if err := redisClient.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing redisClient: %v\n", err)
		}
	}()

	publishers := []StatePublisher{natsClient}
	if env.MQTTBroker != "" {
		mqttPublisher, err := mqtt.New(env.MQTTBroker, env.MQTTTopic)
		if err != nil {
			return err
		}
		defer mqttPublisher.Close()
		publishers = append(publishers, mqttPublisher)
	}

	opts := parser.Options{
		Strict:     decoderCfg.Strict,
		MaxPending: decoderCfg.MaxPending,
		MaxAge:     decoderCfg.MaxAge,
	}
	tracker := NewStateTracker(dbClient, redisClient, opts, publishers...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := tracker.Start(ctx); err != nil {
		return fmt.Errorf("failed to start state tracker: %w", err)
	}

	if env.MetricsAddr != "" {
		srv, err := serveMetrics(env.MetricsAddr, tracker.Stats())
		if err != nil {
			return fmt.Errorf("failed to serve metrics: %w", err)
		}
		defer srv.Close()
	}

	if err := setupNATSSubscription(natsClient, tracker); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	return nil
}
