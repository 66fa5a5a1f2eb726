// Package schemarefresh keeps an introspected schema current. A manager
// polls the database for structural change via a metadata fingerprint
// and swaps in a freshly introspected snapshot when the fingerprint
// moves, so long-lived composer sessions follow migrations without a
// restart.
package schemarefresh

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"pgcomposer/internal/introspect"
	"pgcomposer/internal/logging"
	"pgcomposer/internal/schema"
	"pgcomposer/internal/schemafilter"
)

// Snapshot is an immutable view of the schema at one point in time.
type Snapshot struct {
	Schema      *schema.Schema
	BuiltAt     time.Time
	Fingerprint string
}

// Config controls refresh behavior.
type Config struct {
	DB          *sql.DB
	Logger      *logging.Logger
	Filters     schemafilter.Config
	MinInterval time.Duration
	MaxInterval time.Duration
}

// Manager maintains and refreshes schema snapshots. The active snapshot
// swaps atomically so readers never observe a partial rebuild.
type Manager struct {
	db          *sql.DB
	logger      *logging.Logger
	filters     schemafilter.Config
	minInterval time.Duration
	maxInterval time.Duration
	active      atomic.Value
	wg          sync.WaitGroup
}

// NewManager introspects the initial snapshot and returns a manager.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("schema refresh manager requires a database handle")
	}
	if cfg.Logger == nil {
		cfg.Logger = &logging.Logger{Logger: slog.Default()}
	}

	minInterval := cfg.MinInterval
	maxInterval := cfg.MaxInterval
	if minInterval <= 0 {
		minInterval = 30 * time.Second
	}
	if maxInterval <= 0 {
		maxInterval = 5 * time.Minute
	}
	if maxInterval < minInterval {
		maxInterval = minInterval
	}

	m := &Manager{
		db:          cfg.DB,
		logger:      cfg.Logger.WithFields(slog.String("component", "schema_refresh")),
		filters:     cfg.Filters,
		minInterval: minInterval,
		maxInterval: maxInterval,
	}

	snapshot, err := m.buildSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	m.active.Store(snapshot)
	return m, nil
}

// Start begins the background refresh loop. It exits when ctx ends.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.refreshLoop(ctx)
	}()
}

// Current returns the schema from the active snapshot.
func (m *Manager) Current() *schema.Schema {
	if snapshot := m.CurrentSnapshot(); snapshot != nil {
		return snapshot.Schema
	}
	return nil
}

// CurrentSnapshot returns the active snapshot.
func (m *Manager) CurrentSnapshot() *Snapshot {
	if value := m.active.Load(); value != nil {
		return value.(*Snapshot)
	}
	return nil
}

// RefreshNow forces an introspection and swap regardless of the
// fingerprint.
func (m *Manager) RefreshNow(ctx context.Context) error {
	snapshot, err := m.buildSnapshot(ctx)
	if err != nil {
		return err
	}
	m.active.Store(snapshot)
	return nil
}

// Wait blocks until the refresh loop exits or the context is canceled.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) refreshLoop(ctx context.Context) {
	interval := m.minInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("schema refresh stopped")
			return
		case <-timer.C:
			m.refreshOnce(ctx, &interval)
			timer.Reset(interval)
		}
	}
}

func (m *Manager) refreshOnce(ctx context.Context, interval *time.Duration) {
	fingerprint, err := m.computeFingerprint(ctx)
	if err != nil {
		m.logger.Warn("schema fingerprint check failed", slog.String("error", err.Error()))
		*interval = m.minInterval
		return
	}

	current := m.CurrentSnapshot()
	if current != nil && fingerprint == current.Fingerprint {
		// Unchanged polls back off toward the max interval.
		*interval = nextInterval(*interval, m.minInterval, m.maxInterval)
		return
	}

	m.logger.Info("schema change detected, rebuilding", slog.String("fingerprint", fingerprint))
	snapshot, err := m.buildSnapshot(ctx)
	if err != nil {
		m.logger.Error("failed to rebuild schema", slog.String("error", err.Error()))
		*interval = m.minInterval
		return
	}

	m.active.Store(snapshot)
	*interval = m.minInterval
	m.logger.Info("schema refresh complete",
		slog.String("fingerprint", snapshot.Fingerprint),
		slog.Int("tables", len(snapshot.Schema.Tables)),
	)
}

func (m *Manager) buildSnapshot(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	fingerprint, err := m.computeFingerprint(ctx)
	if err != nil {
		m.logger.Warn("failed to compute schema fingerprint", slog.String("error", err.Error()))
	}

	loaded, err := introspect.Database(ctx, m.db)
	if err != nil {
		return nil, err
	}
	schemafilter.Apply(loaded, m.filters)

	m.logger.Info("schema snapshot built",
		slog.Int("tables", len(loaded.Tables)),
		slog.Duration("duration", time.Since(start)),
	)
	return &Snapshot{
		Schema:      loaded,
		BuiltAt:     time.Now(),
		Fingerprint: fingerprint,
	}, nil
}

type fingerprintComponent struct {
	name  string
	query string
}

// fingerprintComponents cover only behavior-relevant metadata. Comments
// and statistics are excluded to avoid rebuild churn.
var fingerprintComponents = []fingerprintComponent{
	{
		name: "tables",
		query: `
			SELECT table_schema, table_name
			FROM information_schema.tables
			WHERE table_type = 'BASE TABLE'
				AND table_schema NOT IN ('pg_catalog', 'information_schema')
			ORDER BY table_schema, table_name
		`,
	},
	{
		name: "columns",
		query: `
			SELECT table_schema, table_name, column_name,
				CAST(ordinal_position AS text), data_type, is_nullable
			FROM information_schema.columns
			WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
			ORDER BY table_schema, table_name, ordinal_position
		`,
	},
	{
		name: "key_constraints",
		query: `
			SELECT tc.table_schema, tc.table_name, tc.constraint_type,
				kcu.column_name, CAST(kcu.ordinal_position AS text)
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type IN ('PRIMARY KEY', 'FOREIGN KEY')
				AND tc.table_schema NOT IN ('pg_catalog', 'information_schema')
			ORDER BY tc.table_schema, tc.table_name, tc.constraint_type,
				kcu.ordinal_position, kcu.column_name
		`,
	},
}

func (m *Manager) computeFingerprint(ctx context.Context) (string, error) {
	componentHashes := make(map[string]string, len(fingerprintComponents))
	for _, component := range fingerprintComponents {
		hash, err := m.hashComponentQuery(ctx, component.query)
		if err != nil {
			return "", fmt.Errorf("failed to hash %s component: %w", component.name, err)
		}
		componentHashes[component.name] = hash
	}
	return combineComponentHashes(componentHashes), nil
}

func (m *Manager) hashComponentQuery(ctx context.Context, query string) (string, error) {
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = rows.Close()
	}()

	columns, err := rows.Columns()
	if err != nil {
		return "", err
	}
	values := make([]sql.NullString, len(columns))
	scanTargets := make([]any, len(columns))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	hash := sha256.New()
	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return "", err
		}

		// Length-prefixed cells avoid hash ambiguity from delimiter
		// collisions.
		for _, value := range values {
			cell := ""
			if value.Valid {
				cell = value.String
			}
			_, _ = fmt.Fprintf(hash, "%d:%s|", len(cell), cell)
		}
		_, _ = hash.Write([]byte{'\n'})
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

func combineComponentHashes(componentHashes map[string]string) string {
	if len(componentHashes) == 0 {
		return ""
	}
	keys := make([]string, 0, len(componentHashes))
	for key := range componentHashes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	hash := sha256.New()
	for _, key := range keys {
		_, _ = fmt.Fprintf(hash, "%s=%s\n", key, componentHashes[key])
	}
	return hex.EncodeToString(hash.Sum(nil))
}

func nextInterval(current, minInterval, maxInterval time.Duration) time.Duration {
	if current < minInterval {
		return minInterval
	}
	next := current + current/2
	if next > maxInterval {
		return maxInterval
	}
	return next
}
