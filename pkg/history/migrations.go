package history

// Migration is one forward-only schema change.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations are applied in order by Open. Never edit an applied entry; append.
var Migrations = []Migration{
	{
		Version:     1,
		Description: "refresh summaries",
		SQL: `CREATE TABLE refreshes (
			id                 TEXT PRIMARY KEY,
			recorded_at        INTEGER NOT NULL,
			reason             TEXT NOT NULL,
			report_rows        INTEGER NOT NULL,
			rows_skipped       INTEGER NOT NULL,
			classified_reads   INTEGER NOT NULL,
			unclassified_reads INTEGER NOT NULL,
			nodes              INTEGER NOT NULL,
			edges              INTEGER NOT NULL,
			ghosts             INTEGER NOT NULL
		);
		CREATE INDEX idx_refreshes_recorded_at ON refreshes(recorded_at);`,
	},
	{
		Version:     2,
		Description: "species of interest counts",
		SQL: `CREATE TABLE interest_counts (
			refresh_id TEXT NOT NULL REFERENCES refreshes(id) ON DELETE CASCADE,
			taxid      TEXT NOT NULL,
			name       TEXT NOT NULL,
			reads      INTEGER NOT NULL,
			level      TEXT NOT NULL,
			PRIMARY KEY (refresh_id, taxid)
		);
		CREATE INDEX idx_interest_counts_taxid ON interest_counts(taxid);`,
	},
}
