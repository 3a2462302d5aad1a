package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/petal-labs/topicbus"

	_ "modernc.org/sqlite"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLiteStoreConfig configures the SQLite outcome store.
type SQLiteStoreConfig struct {
	// DSN is the database connection string.
	DSN string

	// RetentionAge deletes records older than this duration (0 = no age pruning).
	RetentionAge time.Duration

	// RetentionCount keeps at most this many records per topic (0 = no count pruning).
	RetentionCount int

	// PruneInterval is how often to run pruning (default 1 hour).
	PruneInterval time.Duration
}

// SQLiteStore persists outcome records to a SQLite database.
// It satisfies the Store interface and supports WAL mode for concurrent read
// access and a background pruner goroutine.
type SQLiteStore struct {
	db   *sql.DB
	cfg  SQLiteStoreConfig
	stop chan struct{}
	done chan struct{}
}

// NewSQLiteStore opens (or creates) a SQLite outcome store.
func NewSQLiteStore(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.PruneInterval == 0 {
		cfg.PruneInterval = time.Hour
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}

	// Enable WAL mode for concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: set WAL mode: %w", err)
	}

	// Create schema.
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}

	s := &SQLiteStore{
		db:   db,
		cfg:  cfg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	// Start background pruner if any retention is configured.
	if cfg.RetentionAge > 0 || cfg.RetentionCount > 0 {
		go s.pruneLoop()
	} else {
		close(s.done)
	}

	return s, nil
}

// Append stores a record, assigning the next Seq for its topic.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	bodyJSON := ""
	if rec.Body != nil {
		encoded, err := json.Marshal(rec.Body)
		if err != nil {
			return fmt.Errorf("sqlitestore: marshal body: %w", err)
		}
		bodyJSON = string(encoded)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (id, topic, event, subscription_id, status, seq, body, reason, time)
		 VALUES (?, ?, ?, ?, ?,
		         (SELECT COALESCE(MAX(seq), 0) + 1 FROM outcomes WHERE topic = ?),
		         ?, ?, ?)`,
		rec.ID,
		rec.Topic,
		rec.Event,
		rec.SubscriptionID,
		string(rec.Status),
		rec.Topic,
		bodyJSON,
		rec.Reason,
		rec.Time.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: append: %w", err)
	}
	return nil
}

// List returns records for a topic, optionally filtered by afterSeq and limit.
func (s *SQLiteStore) List(ctx context.Context, topic string, afterSeq uint64, limit int) ([]Record, error) {
	query := `SELECT id, topic, event, subscription_id, status, seq, body, reason, time
	           FROM outcomes WHERE topic = ? AND seq > ? ORDER BY seq ASC`
	args := []any{topic, afterSeq}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// LatestSeq returns the highest Seq for a topic (0 if no records).
func (s *SQLiteStore) LatestSeq(ctx context.Context, topic string) (uint64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM outcomes WHERE topic = ?`, topic,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: latest seq: %w", err)
	}
	if !seq.Valid || seq.Int64 < 0 {
		return 0, nil
	}
	return uint64(seq.Int64), nil // #nosec G115 -- seq is always non-negative
}

// Topics returns distinct topic names from the store.
func (s *SQLiteStore) Topics(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT topic FROM outcomes ORDER BY topic`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: topics: %w", err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan topic: %w", err)
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

// Close stops the background pruner and closes the database connection.
func (s *SQLiteStore) Close() error {
	select {
	case <-s.stop:
		// Already closed.
	default:
		close(s.stop)
	}
	<-s.done
	return s.db.Close()
}

// Prune runs a single pruning pass. Exported for testing.
func (s *SQLiteStore) Prune(ctx context.Context) error {
	if s.cfg.RetentionAge > 0 {
		cutoff := time.Now().Add(-s.cfg.RetentionAge).Format(time.RFC3339Nano)
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM outcomes WHERE time < ?`, cutoff,
		); err != nil {
			return fmt.Errorf("sqlitestore: prune by age: %w", err)
		}
	}

	if s.cfg.RetentionCount > 0 {
		// For each topic, keep only the most recent RetentionCount records.
		topics, err := s.Topics(ctx)
		if err != nil {
			return fmt.Errorf("sqlitestore: prune: %w", err)
		}

		for _, topic := range topics {
			if _, err := s.db.ExecContext(ctx,
				`DELETE FROM outcomes WHERE topic = ? AND id NOT IN (
					SELECT id FROM outcomes WHERE topic = ? ORDER BY seq DESC LIMIT ?
				)`, topic, topic, s.cfg.RetentionCount,
			); err != nil {
				return fmt.Errorf("sqlitestore: prune by count for %s: %w", topic, err)
			}
		}
	}

	return nil
}

func (s *SQLiteStore) pruneLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			_ = s.Prune(context.Background())
		}
	}
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			rec      Record
			status   string
			bodyJSON string
			timeStr  string
		)
		err := rows.Scan(
			&rec.ID,
			&rec.Topic,
			&rec.Event,
			&rec.SubscriptionID,
			&status,
			&rec.Seq,
			&bodyJSON,
			&rec.Reason,
			&timeStr,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: scan record: %w", err)
		}

		rec.Status = topicbus.Status(status)

		t, err := time.Parse(time.RFC3339Nano, timeStr)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: parse time %q: %w", timeStr, err)
		}
		rec.Time = t

		if bodyJSON != "" {
			if err := json.Unmarshal([]byte(bodyJSON), &rec.Body); err != nil {
				return nil, fmt.Errorf("sqlitestore: unmarshal body: %w", err)
			}
		}

		records = append(records, rec)
	}
	return records, rows.Err()
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)
