package migrations

import "time"

// ActiveVoyageIndex speeds up the tracker's startup load of open voyages
// and adds the hull size reported in static data
var ActiveVoyageIndex = &Migration{
	ID:   "003_active_voyage_index",
	Name: "003_active_voyage_index",
	UpSQL: `
		CREATE INDEX IF NOT EXISTS idx_voyages_active ON voyages (mmsi) WHERE ended_at IS NULL;
		CREATE INDEX IF NOT EXISTS idx_vessels_callsign ON vessels (callsign);
		ALTER TABLE vessels ADD COLUMN IF NOT EXISTS length SMALLINT;
		ALTER TABLE vessels ADD COLUMN IF NOT EXISTS beam SMALLINT;
	`,
	DownSQL: `
		ALTER TABLE vessels DROP COLUMN IF EXISTS beam;
		ALTER TABLE vessels DROP COLUMN IF EXISTS length;
		DROP INDEX IF EXISTS idx_vessels_callsign;
		DROP INDEX IF EXISTS idx_voyages_active;
	`,
	CreatedAt: time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC),
}
