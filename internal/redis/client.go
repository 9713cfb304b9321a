package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saviobatista/ais-logger/internal/types"
)

const (
	stateTTL  = 1 * time.Hour
	voyageTTL = 24 * time.Hour
	infoTTL   = 7 * 24 * time.Hour
)

// RedisClientInterface defines the Redis operations used by our client
type RedisClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Client caches live vessel data in Redis
type Client struct {
	client RedisClientInterface
}

// New creates a new Redis client. addr is either host:port or a redis:// URL.
func New(addr string) (*Client, error) {
	opts := &redis.Options{
		Addr: addr,
		DB:   0,
	}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid Redis URL: %w", err)
		}
		opts = parsed
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// NewWithClient creates a new Redis client with a custom RedisClientInterface (useful for testing)
func NewWithClient(client RedisClientInterface) *Client {
	return &Client{client: client}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

func stateKey(mmsi uint32) string  { return fmt.Sprintf("vessel:%09d", mmsi) }
func voyageKey(mmsi uint32) string { return fmt.Sprintf("voyage:%09d", mmsi) }
func infoKey(mmsi uint32) string   { return fmt.Sprintf("vessel_info:%09d", mmsi) }

func (c *Client) setData(ctx context.Context, key string, value interface{}, ttl time.Duration, dataType string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", dataType, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store %s: %w", dataType, err)
	}
	return nil
}

// getData retrieves data from Redis and unmarshals it into the target.
// It reports false when the key does not exist.
func (c *Client) getData(ctx context.Context, key string, target interface{}, dataType string) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s data: %w", dataType, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s data: %w", dataType, err)
	}

	return true, nil
}

// StoreVoyage stores the open voyage of a vessel
func (c *Client) StoreVoyage(ctx context.Context, voyage *types.Voyage) error {
	return c.setData(ctx, voyageKey(voyage.MMSI), voyage, voyageTTL, "voyage")
}

// GetVoyage retrieves the open voyage of a vessel, or nil if there is none
func (c *Client) GetVoyage(ctx context.Context, mmsi uint32) (*types.Voyage, error) {
	var voyage types.Voyage
	found, err := c.getData(ctx, voyageKey(mmsi), &voyage, "voyage")
	if err != nil || !found {
		return nil, err
	}
	return &voyage, nil
}

// DeleteVoyage removes the voyage of a vessel
func (c *Client) DeleteVoyage(ctx context.Context, mmsi uint32) error {
	return c.client.Del(ctx, voyageKey(mmsi)).Err()
}

// StoreVesselState stores the latest state of a vessel
func (c *Client) StoreVesselState(ctx context.Context, state *types.VesselState) error {
	return c.setData(ctx, stateKey(state.MMSI), state, stateTTL, "vessel state")
}

// GetVesselState retrieves the latest state of a vessel, or nil if unknown
func (c *Client) GetVesselState(ctx context.Context, mmsi uint32) (*types.VesselState, error) {
	var state types.VesselState
	found, err := c.getData(ctx, stateKey(mmsi), &state, "vessel state")
	if err != nil || !found {
		return nil, err
	}
	return &state, nil
}

// DeleteVesselState removes the state of a vessel
func (c *Client) DeleteVesselState(ctx context.Context, mmsi uint32) error {
	return c.client.Del(ctx, stateKey(mmsi)).Err()
}

// StoreVesselInfo stores static vessel data. Fields missing from info are
// kept from the cached copy, since type 24 parts and type 5 each carry only
// some of them.
func (c *Client) StoreVesselInfo(ctx context.Context, info *types.VesselInfo) error {
	merged := *info
	if cached, err := c.GetVesselInfo(ctx, info.MMSI); err == nil && cached != nil {
		if merged.Name == "" {
			merged.Name = cached.Name
		}
		if merged.Callsign == "" {
			merged.Callsign = cached.Callsign
		}
		if merged.IMO == 0 {
			merged.IMO = cached.IMO
		}
		if merged.ShipType == 0 {
			merged.ShipType = cached.ShipType
		}
		if merged.Destination == "" {
			merged.Destination = cached.Destination
		}
	}
	return c.setData(ctx, infoKey(info.MMSI), &merged, infoTTL, "vessel info")
}

// GetVesselInfo retrieves static vessel data, or nil if unknown
func (c *Client) GetVesselInfo(ctx context.Context, mmsi uint32) (*types.VesselInfo, error) {
	var info types.VesselInfo
	found, err := c.getData(ctx, infoKey(mmsi), &info, "vessel info")
	if err != nil || !found {
		return nil, err
	}
	return &info, nil
}
