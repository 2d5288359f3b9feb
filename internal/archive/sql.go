package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lighthouse/internal/forecast"
	"lighthouse/internal/simulation"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

const historyTable = "lighthouse_forecast_history"

// SQLStore archives forecasts in a SQL database.
type SQLStore struct {
	db          *sql.DB
	backend     Backend
	percentiles []int
}

var _ Store = &SQLStore{} // Compile-time check

// OpenSQL connects to the database and creates the history table.
func OpenSQL(backend Backend, dsn string, percentiles []int) (*SQLStore, error) {
	var driverName string
	switch backend {
	case SQLiteBackend:
		driverName = "sqlite"
	case PostgresBackend:
		driverName = "pgx"
	case MySQLBackend:
		driverName = "mysql"
	default:
		return nil, fmt.Errorf("unsupported SQL backend: %s", backend)
	}
	if dsn == "" {
		return nil, fmt.Errorf("the %s archive needs a connection string", backend)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	if backend == SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", backend, err)
	}

	if _, err := db.Exec(createHistoryQuery(backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", historyTable, err)
	}

	return &SQLStore{db: db, backend: backend, percentiles: percentiles}, nil
}

func createHistoryQuery(backend Backend) string {
	switch backend {
	case PostgresBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				entry_id BIGSERIAL PRIMARY KEY,
				feature_id TEXT NOT NULL,
				feature_name TEXT,
				forecasted_at BIGINT NOT NULL,
				remaining INT NOT NULL,
				kind TEXT NOT NULL,
				status TEXT NOT NULL,
				trials INT NOT NULL,
				censored INT NOT NULL,
				mean DOUBLE PRECISION NOT NULL,
				forecasts TEXT NOT NULL,
				ignored_teams TEXT
			);
		`, historyTable)

	case MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				entry_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				feature_id VARCHAR(255) NOT NULL,
				feature_name VARCHAR(512),
				forecasted_at BIGINT NOT NULL,
				remaining INT NOT NULL,
				kind VARCHAR(16) NOT NULL,
				status VARCHAR(32) NOT NULL,
				trials INT NOT NULL,
				censored INT NOT NULL,
				mean DOUBLE NOT NULL,
				forecasts TEXT NOT NULL,
				ignored_teams TEXT
			);
		`, historyTable)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				entry_id INTEGER PRIMARY KEY AUTOINCREMENT,
				feature_id TEXT NOT NULL,
				feature_name TEXT,
				forecasted_at INTEGER NOT NULL,
				remaining INTEGER NOT NULL,
				kind TEXT NOT NULL,
				status TEXT NOT NULL,
				trials INTEGER NOT NULL,
				censored INTEGER NOT NULL,
				mean REAL NOT NULL,
				forecasts TEXT NOT NULL,
				ignored_teams TEXT
			);
		`, historyTable)
	}
}

// placeholders returns n bind parameters in the backend's syntax.
func (s *SQLStore) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		if s.backend == PostgresBackend {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

// ArchiveFeature inserts the feature's current forecast.
func (s *SQLStore) ArchiveFeature(ctx context.Context, f *forecast.Feature) error {
	entry, err := NewEntry(f, s.percentiles)
	if err != nil {
		return err
	}

	forecasts, err := json.Marshal(entry.Summary.Forecasts)
	if err != nil {
		return fmt.Errorf("failed to marshal forecasts: %w", err)
	}
	ignored, err := json.Marshal(entry.Summary.IgnoredTeams)
	if err != nil {
		return fmt.Errorf("failed to marshal ignored teams: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (feature_id, feature_name, forecasted_at, remaining, kind, status,
		                trials, censored, mean, forecasts, ignored_teams)
		VALUES (%s)
	`, historyTable, s.placeholders(11))

	_, err = s.db.ExecContext(ctx, query,
		entry.FeatureID, entry.FeatureName, entry.ForecastedAt.UnixMicro(), entry.Remaining,
		string(entry.Summary.Kind), entry.Summary.Status, entry.Summary.Trials, entry.Summary.Censored,
		entry.Summary.Mean, string(forecasts), string(ignored),
	)
	if err != nil {
		return fmt.Errorf("failed to insert forecast for feature %s: %w", f.ID, err)
	}
	return nil
}

// History returns the archived entries of a feature.
func (s *SQLStore) History(ctx context.Context, featureID string) ([]Entry, error) {
	query := fmt.Sprintf(`
		SELECT feature_id, feature_name, forecasted_at, remaining, kind, status,
		       trials, censored, mean, forecasts, ignored_teams
		FROM %s WHERE feature_id = %s ORDER BY forecasted_at, entry_id
	`, historyTable, s.placeholders(1))

	rows, err := s.db.QueryContext(ctx, query, featureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for feature %s: %w", featureID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			name      sql.NullString
			at        int64
			kind      string
			forecasts string
			ignored   sql.NullString
		)
		if err := rows.Scan(&e.FeatureID, &name, &at, &e.Remaining, &kind, &e.Summary.Status,
			&e.Summary.Trials, &e.Summary.Censored, &e.Summary.Mean, &forecasts, &ignored); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.FeatureName = name.String
		e.ForecastedAt = time.UnixMicro(at).UTC()
		e.Summary.Kind = simulation.Kind(kind)
		if err := json.Unmarshal([]byte(forecasts), &e.Summary.Forecasts); err != nil {
			return nil, fmt.Errorf("failed to decode forecasts: %w", err)
		}
		if ignored.Valid && ignored.String != "" && ignored.String != "null" {
			if err := json.Unmarshal([]byte(ignored.String), &e.Summary.IgnoredTeams); err != nil {
				return nil, fmt.Errorf("failed to decode ignored teams: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return entries, nil
}

// Close closes the underlying connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
