package migrations

import "time"

// InitialSchema creates the vessel tracking schema
var InitialSchema = &Migration{
	ID:   "001_initial_schema",
	Name: "001_initial_schema",
	UpSQL: `
		CREATE EXTENSION IF NOT EXISTS timescaledb;

		-- Decoded dynamic reports, one row per message
		CREATE TABLE IF NOT EXISTS vessel_states (
			time TIMESTAMPTZ NOT NULL,
			mmsi BIGINT NOT NULL,
			msg_type SMALLINT NOT NULL,
			nav_status TEXT,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			speed DOUBLE PRECISION,
			course DOUBLE PRECISION,
			heading SMALLINT,
			source TEXT,
			session_id TEXT
		);

		SELECT create_hypertable('vessel_states', 'time');

		CREATE INDEX IF NOT EXISTS idx_vessel_states_mmsi ON vessel_states (mmsi, time DESC);
		CREATE INDEX IF NOT EXISTS idx_vessel_states_session ON vessel_states (session_id);

		-- Static identity from types 5, 19 and 24
		CREATE TABLE IF NOT EXISTS vessels (
			mmsi BIGINT PRIMARY KEY,
			name TEXT,
			callsign TEXT,
			imo BIGINT,
			ship_type SMALLINT,
			destination TEXT,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_vessels_name ON vessels (name);

		CREATE TABLE IF NOT EXISTS voyages (
			session_id TEXT PRIMARY KEY,
			mmsi BIGINT NOT NULL,
			name TEXT,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ,
			first_latitude DOUBLE PRECISION,
			first_longitude DOUBLE PRECISION,
			last_latitude DOUBLE PRECISION,
			last_longitude DOUBLE PRECISION,
			max_speed DOUBLE PRECISION
		);

		CREATE INDEX IF NOT EXISTS idx_voyages_mmsi ON voyages (mmsi);
		CREATE INDEX IF NOT EXISTS idx_voyages_started_at ON voyages (started_at);
		CREATE INDEX IF NOT EXISTS idx_voyages_ended_at ON voyages (ended_at);

		CREATE TABLE IF NOT EXISTS system_stats (
			time TIMESTAMPTZ NOT NULL,
			total_messages BIGINT NOT NULL,
			decoded_messages BIGINT NOT NULL,
			failed_messages BIGINT NOT NULL,
			incomplete_messages BIGINT NOT NULL,
			stored_states BIGINT NOT NULL,
			created_voyages BIGINT NOT NULL,
			updated_voyages BIGINT NOT NULL,
			ended_voyages BIGINT NOT NULL,
			active_vessels BIGINT NOT NULL,
			active_voyages BIGINT NOT NULL,
			message_types BIGINT[] NOT NULL,
			failure_kinds TEXT[] NOT NULL,
			failure_counts BIGINT[] NOT NULL,
			processing_time_ms BIGINT NOT NULL,
			uptime_seconds BIGINT NOT NULL
		);

		SELECT create_hypertable('system_stats', 'time');

		CREATE INDEX IF NOT EXISTS idx_system_stats_time ON system_stats (time DESC);
	`,
	DownSQL: `
		DROP TABLE IF EXISTS system_stats;
		DROP TABLE IF EXISTS voyages;
		DROP TABLE IF EXISTS vessels;
		DROP TABLE IF EXISTS vessel_states;
	`,
	CreatedAt: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
}
