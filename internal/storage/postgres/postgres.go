package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/AaronLay10/TorchBridge/internal/config"
)

// EventRow is one journaled event.
type EventRow struct {
	EventID   int64                  `json:"event_id"`
	Timestamp time.Time              `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   *string                `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	PuzzleID  string                 `json:"puzzle_id"`
	SessionID *string                `json:"session_id,omitempty"`
}

// Client appends events to the crossing journal of one puzzle.
type Client struct {
	db       *sql.DB
	puzzleID string
}

// New connects using the standard libpq environment (PGHOST, PGPORT, PGUSER,
// PGDATABASE, PGPASSWORD or PGPASSWORD_FILE) and ensures the journal table.
func New(puzzleID string) (*Client, error) {
	password, err := config.ResolveSecret("PGPASSWORD")
	if err != nil {
		return nil, err
	}
	connStr := ConnString(
		getEnv("PGHOST", "127.0.0.1"),
		getEnv("PGPORT", "5432"),
		getEnv("PGUSER", "torch"),
		getEnv("PGDATABASE", "torch"),
		password,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	client := &Client{db: db, puzzleID: puzzleID}
	if err := client.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal table: %w", err)
	}
	return client, nil
}

// ConnString builds a lib/pq key=value connection string.
func ConnString(host, port, user, dbname, password string) string {
	if password == "" {
		return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
			connValue(host), connValue(port), connValue(user), connValue(dbname))
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		connValue(host), connValue(port), connValue(user), connValue(password), connValue(dbname))
}

// connValue quotes v when it is empty or holds a space, quote or backslash.
func connValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (c *Client) migrate() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS crossing_events (
			event_id   BIGSERIAL PRIMARY KEY,
			ts         TIMESTAMPTZ NOT NULL,
			level      TEXT NOT NULL,
			event      TEXT NOT NULL,
			msg        TEXT,
			fields     JSONB,
			puzzle_id  TEXT NOT NULL,
			session_id TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_crossing_events_ts ON crossing_events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_crossing_events_session ON crossing_events(puzzle_id, session_id);
	`)
	return err
}

// Append inserts an event.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, sessionID string) error {
	var fieldsJSON []byte
	if fields != nil {
		var err error
		fieldsJSON, err = json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	_, err := c.db.Exec(`
		INSERT INTO crossing_events (ts, level, event, msg, fields, puzzle_id, session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ts, level, event, nullString(msg), fieldsJSON, c.puzzleID, nullString(sessionID))
	return err
}

// Query returns the newest limit events of this puzzle, newest first.
func (c *Client) Query(limit int) ([]EventRow, error) {
	limit = clampLimit(limit)
	rows, err := c.db.Query(`
		SELECT event_id, ts, level, event, msg, fields, puzzle_id, session_id
		FROM crossing_events
		WHERE puzzle_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`, c.puzzleID, limit)
	if err != nil {
		return nil, err
	}
	return scanRows(rows)
}

// QuerySession returns the events of one session, oldest first.
func (c *Client) QuerySession(sessionID string, limit int) ([]EventRow, error) {
	limit = clampLimit(limit)
	rows, err := c.db.Query(`
		SELECT event_id, ts, level, event, msg, fields, puzzle_id, session_id
		FROM crossing_events
		WHERE puzzle_id = $1 AND session_id = $2
		ORDER BY event_id ASC
		LIMIT $3
	`, c.puzzleID, sessionID, limit)
	if err != nil {
		return nil, err
	}
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]EventRow, error) {
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var e EventRow
		var fieldsJSON []byte
		var msg, sessionID sql.NullString

		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Level, &e.Event, &msg, &fieldsJSON, &e.PuzzleID, &sessionID); err != nil {
			return nil, err
		}
		if msg.Valid {
			e.Message = &msg.String
		}
		if sessionID.Valid {
			e.SessionID = &sessionID.String
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 200
	}
	if limit > 10000 {
		return 10000
	}
	return limit
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Ping checks the connection, for readiness reporting.
func (c *Client) Ping() error {
	return c.db.Ping()
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
