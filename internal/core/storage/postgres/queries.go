package postgres

// SQL queries for heartbeat, checkpoint and summary storage.

const (
	// querySaveHeartbeat inserts a heartbeat with per-user idempotency.
	// RETURNING retrieves the auto-generated seq_id for watermark tracking.
	// ON CONFLICT DO NOTHING returns no rows (sql.ErrNoRows) for duplicates.
	querySaveHeartbeat = `
		INSERT INTO heartbeats (
			id, user_id, recorded_at, ingested_at, language, time_spent
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, id) DO NOTHING
		RETURNING seq_id
	`

	// queryFetchHeartbeatsAfter fetches heartbeats after a watermark cursor
	// in strict total order. Strictly-greater-than plus ascending order is
	// what makes consecutive checkpoint ranges gap-free by construction.
	queryFetchHeartbeatsAfter = `
		SELECT seq_id, id, user_id, recorded_at, ingested_at, language, time_spent
		FROM heartbeats
		WHERE seq_id > $1
		ORDER BY seq_id ASC
		LIMIT $2
	`

	// queryLatestCheckpoint reads the single most recently appended
	// checkpoint. id breaks ties between equal ingestion instants.
	queryLatestCheckpoint = `
		SELECT id, watermark_start, watermark_end, record_count, ingested_at
		FROM aggregation_checkpoints
		ORDER BY ingested_at DESC, id DESC
		LIMIT 1
	`

	// queryAppendCheckpoint appends one checkpoint record. The log is
	// append-only; rows are never updated or deleted.
	queryAppendCheckpoint = `
		INSERT INTO aggregation_checkpoints (
			watermark_start, watermark_end, record_count, ingested_at
		)
		VALUES ($1, $2, $3, $4)
	`

	querySelectDailyForUpdate = `
		SELECT total_time, heartbeats, languages
		FROM daily_stats
		WHERE user_id = $1 AND date = $2
		FOR UPDATE
	`

	queryInsertDaily = `
		INSERT INTO daily_stats (user_id, date, total_time, heartbeats, languages, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	// queryUpdateDaily increments the numeric columns in place; the merged
	// languages mapping replaces the old one under the row lock taken by
	// querySelectDailyForUpdate.
	queryUpdateDaily = `
		UPDATE daily_stats
		SET total_time = total_time + $3,
		    heartbeats = heartbeats + $4,
		    languages  = $5,
		    updated_at = $6
		WHERE user_id = $1 AND date = $2
	`

	queryGetDaily = `
		SELECT total_time, heartbeats, languages, updated_at
		FROM daily_stats
		WHERE user_id = $1 AND date = $2
	`

	querySelectWeeklyForUpdate = `
		SELECT total_time, heartbeats, languages
		FROM weekly_stats
		WHERE user_id = $1 AND week_start = $2
		FOR UPDATE
	`

	queryInsertWeekly = `
		INSERT INTO weekly_stats (user_id, week_start, total_time, heartbeats, languages, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	queryUpdateWeekly = `
		UPDATE weekly_stats
		SET total_time = total_time + $3,
		    heartbeats = heartbeats + $4,
		    languages  = $5,
		    updated_at = $6
		WHERE user_id = $1 AND week_start = $2
	`

	queryGetWeekly = `
		SELECT total_time, heartbeats, languages, updated_at
		FROM weekly_stats
		WHERE user_id = $1 AND week_start = $2
	`

	// queryUpsertUserActivity is a single-statement increment-or-create:
	// both columns are plain scalars, so no row lock round trip is needed.
	queryUpsertUserActivity = `
		INSERT INTO user_activity (user_id, date, is_active, total_time)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (user_id, date)
		DO UPDATE SET
			is_active  = TRUE,
			total_time = user_activity.total_time + EXCLUDED.total_time
	`

	queryUserActivityRange = `
		SELECT user_id, date::text, is_active, total_time
		FROM user_activity
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	queryDeleteExpiredSessions = `
		DELETE FROM session_cache
		WHERE expires_at < $1
	`
)
