// Package audit appends lifecycle events (attempt started / submitted /
// expired, order completed) to an append-only table, keyed by the record's
// natural id.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Seq       int64
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

type Log struct{ db *sql.DB }

func NewLog(db *sql.DB) *Log { return &Log{db: db} }

// Record marshals data and appends the event. Audit failures are logged and
// swallowed: the write path they decorate must not fail because of them.
func (l *Log) Record(ctx context.Context, typ, key string, data any) {
	buf, err := json.Marshal(data)
	if err != nil {
		log.Printf("audit: marshal %s/%s: %v", typ, key, err)
		return
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typ, key, string(buf), time.Now().Unix())
	if err != nil {
		log.Printf("audit: append %s/%s: %v", typ, key, err)
	}
}

// Tail returns the most recent events, newest first. Admin/debug surface.
func (l *Log) Tail(ctx context.Context, limit int) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT seq, typ, key, data, created_at FROM event_log ORDER BY seq DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
