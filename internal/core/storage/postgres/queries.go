package postgres

// SQL for node counts, dedup entries and the checkpoint row.

const (
	// querySchemaTables counts the tables the adapter needs; all three must exist.
	querySchemaTables = `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_name IN ('node_counts', 'dedup_entries', 'misc_state')
	`

	queryReadCheckpoint = `
		SELECT value
		FROM misc_state
		WHERE name = $1
	`

	querySelectCheckpointForUpdate = `
		SELECT value
		FROM misc_state
		WHERE name = $1
		FOR UPDATE
	`

	// queryInitCheckpointRow creates the row at 0 so it can be locked.
	// Every real snapshot timestamp is greater.
	queryInitCheckpointRow = `
		INSERT INTO misc_state (name, value)
		VALUES ($1, 0)
		ON CONFLICT (name) DO NOTHING
	`

	queryUpdateCheckpoint = `
		UPDATE misc_state
		SET value = $1
		WHERE name = $2
	`

	queryContainsEntry = `
		SELECT EXISTS (
			SELECT 1 FROM dedup_entries
			WHERE identifier = $1 AND time_period = $2
		)
	`

	queryInsertEntry = `
		INSERT INTO dedup_entries (identifier, time_period)
		VALUES ($1, $2)
		ON CONFLICT (identifier, time_period) DO NOTHING
	`

	queryPurgeEntries = `
		DELETE FROM dedup_entries
		WHERE time_period = $1
	`

	// queryUpsertCount creates the row at the buffered delta or adds the delta to it.
	queryUpsertCount = `
		INSERT INTO node_counts (time_period, country, nodes)
		VALUES ($1, $2, $3)
		ON CONFLICT (time_period, country)
		DO UPDATE SET nodes = node_counts.nodes + EXCLUDED.nodes
	`

	// queryScanCounts filters on key length to pick one granularity.
	queryScanCounts = `
		SELECT time_period, country, nodes
		FROM node_counts
		WHERE LENGTH(time_period) = $1
		  AND country = $2
		ORDER BY time_period DESC
		LIMIT $3
	`

	queryCountsAt = `
		SELECT time_period, country, nodes
		FROM node_counts
		WHERE time_period = $1
		ORDER BY country ASC
	`

	queryHasPeriod = `
		SELECT EXISTS (
			SELECT 1 FROM node_counts
			WHERE time_period = $1 AND country = $2
		)
	`

	queryCountries = `
		SELECT DISTINCT country
		FROM node_counts
		WHERE LENGTH(time_period) = $1
		  AND country <> $2
		ORDER BY country ASC
	`
)
