package migrations

import "time"

var RetentionPolicies = &Migration{
	ID:   "002_retention_policies",
	Name: "002_retention_policies",
	UpSQL: `
	-- Position history is kept for 30 days
	SELECT add_retention_policy('vessel_states', INTERVAL '30 days');

	SELECT add_retention_policy('system_stats', INTERVAL '90 days');

	CREATE MATERIALIZED VIEW IF NOT EXISTS system_stats_daily
	WITH (timescaledb.continuous) AS
	SELECT
		time_bucket('1 day', time) AS day,
		MAX(total_messages) AS total_messages,
		MAX(decoded_messages) AS decoded_messages,
		MAX(failed_messages) AS failed_messages,
		MAX(stored_states) AS stored_states,
		MAX(created_voyages) AS created_voyages,
		MAX(ended_voyages) AS ended_voyages
	FROM system_stats
	GROUP BY day
	WITH NO DATA;

	CREATE MATERIALIZED VIEW IF NOT EXISTS vessel_states_hourly
	WITH (timescaledb.continuous) AS
	SELECT
		time_bucket('1 hour', time) AS hour,
		COUNT(*) AS report_count
	FROM vessel_states
	GROUP BY hour
	WITH NO DATA;
	`,
	DownSQL: `
	DROP MATERIALIZED VIEW IF EXISTS system_stats_daily;
	DROP MATERIALIZED VIEW IF EXISTS vessel_states_hourly;
	SELECT remove_retention_policy('vessel_states');
	SELECT remove_retention_policy('system_stats');
	`,
	CreatedAt: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
}
