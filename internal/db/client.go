package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/saviobatista/ais-logger/internal/types"
)

type Client struct {
	db *sql.DB
}

// New creates a new database client
func New(connStr string) (*Client, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// GetActiveVoyages retrieves all voyages that have not ended
func (c *Client) GetActiveVoyages() ([]*types.Voyage, error) {
	query := `
		SELECT session_id, mmsi, name, started_at,
			first_latitude, first_longitude, last_latitude, last_longitude,
			max_speed
		FROM voyages
		WHERE ended_at IS NULL
	`
	rows, err := c.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var voyages []*types.Voyage
	for rows.Next() {
		var (
			v    types.Voyage
			mmsi int64
			name sql.NullString
		)
		if err := rows.Scan(
			&v.SessionID, &mmsi, &name, &v.StartedAt,
			&v.FirstLatitude, &v.FirstLongitude, &v.LastLatitude, &v.LastLongitude,
			&v.MaxSpeed,
		); err != nil {
			return nil, err
		}
		v.MMSI = uint32(mmsi)
		v.Name = name.String
		voyages = append(voyages, &v)
	}
	return voyages, rows.Err()
}

// CreateVoyage creates a new voyage
func (c *Client) CreateVoyage(voyage *types.Voyage) error {
	query := `
		INSERT INTO voyages (
			session_id, mmsi, name, started_at,
			first_latitude, first_longitude, last_latitude, last_longitude,
			max_speed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := c.db.Exec(query,
		voyage.SessionID, int64(voyage.MMSI), nullString(voyage.Name), voyage.StartedAt,
		voyage.FirstLatitude, voyage.FirstLongitude, voyage.LastLatitude, voyage.LastLongitude,
		voyage.MaxSpeed,
	)
	return err
}

// UpdateVoyage updates an existing voyage. A zero EndedAt keeps it open.
func (c *Client) UpdateVoyage(voyage *types.Voyage) error {
	query := `
		UPDATE voyages SET
			name = $1, ended_at = $2,
			last_latitude = $3, last_longitude = $4,
			max_speed = $5
		WHERE session_id = $6
	`
	var endedAt sql.NullTime
	if !voyage.EndedAt.IsZero() {
		endedAt = sql.NullTime{Time: voyage.EndedAt, Valid: true}
	}
	_, err := c.db.Exec(query,
		nullString(voyage.Name), endedAt,
		voyage.LastLatitude, voyage.LastLongitude,
		voyage.MaxSpeed,
		voyage.SessionID,
	)
	return err
}

// StoreVesselState stores a vessel state
func (c *Client) StoreVesselState(state *types.VesselState) error {
	query := `
		INSERT INTO vessel_states (
			time, mmsi, msg_type, nav_status, latitude, longitude,
			speed, course, heading, source, session_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := c.db.Exec(query,
		state.Timestamp, int64(state.MMSI), state.MsgType, nullString(state.NavStatus),
		nullFloat(state.Latitude), nullFloat(state.Longitude),
		nullFloat(state.Speed), nullFloat(state.Course), nullInt(state.Heading),
		nullString(state.Source), nullString(state.SessionID),
	)
	return err
}

// UpsertVessel stores the static identity of a vessel. Empty fields do not
// overwrite values already known.
func (c *Client) UpsertVessel(info *types.VesselInfo) error {
	query := `
		INSERT INTO vessels (
			mmsi, name, callsign, imo, ship_type, destination, length, beam, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (mmsi) DO UPDATE SET
			name = COALESCE(EXCLUDED.name, vessels.name),
			callsign = COALESCE(EXCLUDED.callsign, vessels.callsign),
			imo = COALESCE(EXCLUDED.imo, vessels.imo),
			ship_type = COALESCE(EXCLUDED.ship_type, vessels.ship_type),
			destination = COALESCE(EXCLUDED.destination, vessels.destination),
			length = COALESCE(EXCLUDED.length, vessels.length),
			beam = COALESCE(EXCLUDED.beam, vessels.beam),
			updated_at = EXCLUDED.updated_at
	`
	_, err := c.db.Exec(query,
		int64(info.MMSI), nullString(info.Name), nullString(info.Callsign),
		nullNonZero(int64(info.IMO)), nullNonZero(int64(info.ShipType)), nullString(info.Destination),
		nullNonZero(int64(info.Length)), nullNonZero(int64(info.Beam)), info.UpdatedAt,
	)
	return err
}

// GetVessel retrieves the static identity of a vessel
func (c *Client) GetVessel(mmsi uint32) (*types.VesselInfo, error) {
	query := `
		SELECT mmsi, name, callsign, imo, ship_type, destination, length, beam, updated_at
		FROM vessels
		WHERE mmsi = $1
	`
	var (
		info                        types.VesselInfo
		id                          int64
		name, callsign, destination sql.NullString
		imo, shipType, length, beam sql.NullInt64
	)
	err := c.db.QueryRow(query, int64(mmsi)).Scan(
		&id, &name, &callsign, &imo, &shipType, &destination, &length, &beam, &info.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	info.MMSI = uint32(id)
	info.Name = name.String
	info.Callsign = callsign.String
	info.IMO = uint32(imo.Int64)
	info.ShipType = int(shipType.Int64)
	info.Destination = destination.String
	info.Length = int(length.Int64)
	info.Beam = int(beam.Int64)
	return &info, nil
}

// StoreSystemStats stores system statistics
func (c *Client) StoreSystemStats(stats map[string]interface{}) error {
	query := `
		INSERT INTO system_stats (
			time, total_messages, decoded_messages, failed_messages,
			incomplete_messages, stored_states, created_voyages, updated_voyages,
			ended_voyages, active_vessels, active_voyages, message_types,
			failure_kinds, failure_counts, processing_time_ms, uptime_seconds
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	msgTypes, ok := stats["message_types"].([28]uint64)
	if !ok {
		return fmt.Errorf("invalid message_types value %T", stats["message_types"])
	}
	msgTypesArray := make([]int64, len(msgTypes))
	for i, v := range msgTypes {
		msgTypesArray[i] = int64(v)
	}

	// Failures are stored as two parallel arrays in error kind order
	failures, _ := stats["failures"].(map[string]uint64)
	kinds := make([]string, 0, len(types.AllKinds))
	counts := make([]int64, 0, len(types.AllKinds))
	for _, kind := range types.AllKinds {
		kinds = append(kinds, kind.String())
		counts = append(counts, int64(failures[kind.String()]))
	}

	processingTime, _ := stats["processing_time"].(time.Duration)
	uptime, _ := stats["uptime"].(time.Duration)

	_, err := c.db.Exec(query,
		time.Now(),
		stats["total_messages"],
		stats["decoded_messages"],
		stats["failed_messages"],
		stats["incomplete_messages"],
		stats["stored_states"],
		stats["created_voyages"],
		stats["updated_voyages"],
		stats["ended_voyages"],
		stats["active_vessels"],
		stats["active_voyages"],
		pq.Array(msgTypesArray),
		pq.Array(kinds),
		pq.Array(counts),
		processingTime.Milliseconds(),
		int64(uptime.Seconds()),
	)

	return err
}

// GetSystemStats retrieves system statistics for a time range
func (c *Client) GetSystemStats(start, end time.Time) ([]map[string]interface{}, error) {
	query := `
		SELECT
			time, total_messages, decoded_messages, failed_messages,
			incomplete_messages, stored_states, created_voyages, updated_voyages,
			ended_voyages, active_vessels, active_voyages, message_types,
			failure_kinds, failure_counts, processing_time_ms, uptime_seconds
		FROM system_stats
		WHERE time BETWEEN $1 AND $2
		ORDER BY time DESC
	`

	rows, err := c.db.Query(query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []map[string]interface{}
	for rows.Next() {
		var (
			timestamp          time.Time
			totalMessages      int64
			decodedMessages    int64
			failedMessages     int64
			incompleteMessages int64
			storedStates       int64
			createdVoyages     int64
			updatedVoyages     int64
			endedVoyages       int64
			activeVessels      int64
			activeVoyages      int64
			messageTypes       []int64
			failureKinds       []string
			failureCounts      []int64
			processingTimeMs   int64
			uptimeSeconds      int64
		)

		if err := rows.Scan(
			&timestamp,
			&totalMessages,
			&decodedMessages,
			&failedMessages,
			&incompleteMessages,
			&storedStates,
			&createdVoyages,
			&updatedVoyages,
			&endedVoyages,
			&activeVessels,
			&activeVoyages,
			pq.Array(&messageTypes),
			pq.Array(&failureKinds),
			pq.Array(&failureCounts),
			&processingTimeMs,
			&uptimeSeconds,
		); err != nil {
			return nil, err
		}

		msgTypes := [28]uint64{}
		for i, v := range messageTypes {
			if i < len(msgTypes) {
				msgTypes[i] = uint64(v)
			}
		}

		failures := make(map[string]uint64, len(failureKinds))
		for i, kind := range failureKinds {
			if i < len(failureCounts) {
				failures[kind] = uint64(failureCounts[i])
			}
		}

		stat := map[string]interface{}{
			"time":                timestamp,
			"total_messages":      totalMessages,
			"decoded_messages":    decodedMessages,
			"failed_messages":     failedMessages,
			"incomplete_messages": incompleteMessages,
			"stored_states":       storedStates,
			"created_voyages":     createdVoyages,
			"updated_voyages":     updatedVoyages,
			"ended_voyages":       endedVoyages,
			"active_vessels":      activeVessels,
			"active_voyages":      activeVoyages,
			"message_types":       msgTypes,
			"failures":            failures,
			"processing_time":     time.Duration(processingTimeMs) * time.Millisecond,
			"uptime_seconds":      uptimeSeconds,
		}

		stats = append(stats, stat)
	}

	return stats, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullNonZero maps the "unknown" zero of static fields to NULL
func nullNonZero(i int64) sql.NullInt64 {
	return sql.NullInt64{Int64: i, Valid: i != 0}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
