package changelog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// SQLiteLog stores change events in SQLite.
type SQLiteLog struct {
	db *sql.DB
}

// NewSQLiteLog opens a change log at dbPath. Use ":memory:" for a
// database that lives as long as the log.
func NewSQLiteLog(dbPath string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	l := &SQLiteLog{db: db}
	if err := l.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return l, nil
}

func (l *SQLiteLog) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS changes (
		token INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL,
		object_id TEXT NOT NULL,
		type_id TEXT NOT NULL,
		change_type TEXT NOT NULL,
		change_time INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_changes_object_id ON changes(object_id);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Append stores event; the token is assigned by the database.
func (l *SQLiteLog) Append(ctx context.Context, event cmis.ChangeEvent) (cmis.ChangeEvent, error) {
	res, err := l.db.ExecContext(ctx,
		"INSERT INTO changes (event_id, object_id, type_id, change_type, change_time) VALUES (?, ?, ?, ?, ?)",
		event.ID, event.ObjectID, event.TypeID, string(event.ChangeType), event.Time.UnixNano(),
	)
	if err != nil {
		return event, fmt.Errorf("insert change: %w", err)
	}
	token, err := res.LastInsertId()
	if err != nil {
		return event, fmt.Errorf("read change token: %w", err)
	}
	event.Token = token
	return event, nil
}

// Changes returns up to maxItems events after the token since.
func (l *SQLiteLog) Changes(ctx context.Context, since int64, maxItems int) ([]cmis.ChangeEvent, bool, error) {
	limit := -1
	if maxItems > 0 {
		limit = maxItems + 1
	}
	rows, err := l.db.QueryContext(ctx,
		"SELECT token, event_id, object_id, type_id, change_type, change_time FROM changes WHERE token > ? ORDER BY token LIMIT ?",
		since, limit,
	)
	if err != nil {
		return nil, false, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var events []cmis.ChangeEvent
	for rows.Next() {
		var e cmis.ChangeEvent
		var changeType string
		var changeTime int64
		if err := rows.Scan(&e.Token, &e.ID, &e.ObjectID, &e.TypeID, &changeType, &changeTime); err != nil {
			return nil, false, fmt.Errorf("scan change: %w", err)
		}
		e.ChangeType = cmis.ChangeType(changeType)
		e.Time = time.Unix(0, changeTime).UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate rows: %w", err)
	}

	if maxItems > 0 && len(events) > maxItems {
		return events[:maxItems], true, nil
	}
	return events, false, nil
}

// LatestToken returns the highest token, 0 for an empty log.
func (l *SQLiteLog) LatestToken(ctx context.Context) (int64, error) {
	var token sql.NullInt64
	if err := l.db.QueryRowContext(ctx, "SELECT MAX(token) FROM changes").Scan(&token); err != nil {
		return 0, fmt.Errorf("query latest token: %w", err)
	}
	return token.Int64, nil
}

// Close closes the database connection.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}
