package ingest

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentic-research/keeper/api"
	"github.com/ohler55/ojg/oj"
	_ "modernc.org/sqlite"
)

// ControllerTable is the table a SQLite declaration database keeps its
// controller records in. Each row holds one JSON controller object:
//
//	CREATE TABLE controllers (id TEXT PRIMARY KEY, record TEXT NOT NULL)
//
// Rows are read in insertion order.
const ControllerTable = "controllers"

// StreamSQLite iterates over all controller records in a SQLite database,
// calling fn for each one. Only one parsed record is alive at a time.
func StreamSQLite(ctx context.Context, dbPath string, fn func(recordID string, record any) error) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	rows, err := db.QueryContext(ctx, "SELECT id, record FROM "+ControllerTable+" ORDER BY rowid")
	if err != nil {
		return fmt.Errorf("query %s: %w", ControllerTable, err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		parsed, err := oj.ParseString(raw)
		if err != nil {
			return fmt.Errorf("parse record %s: %w", id, err)
		}
		if err := fn(id, parsed); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ParseSQLite reads every controller record of the database at dbPath.
func ParseSQLite(ctx context.Context, dbPath string) (*api.Declarations, error) {
	decls := &api.Declarations{}
	err := StreamSQLite(ctx, dbPath, func(id string, record any) error {
		m, ok := record.(map[string]any)
		if !ok {
			return fmt.Errorf("record %s is %T, not an object", id, record)
		}
		ctrl, err := decodeController(m)
		if err != nil {
			return fmt.Errorf("record %s: %w", id, err)
		}
		decls.Controllers = append(decls.Controllers, ctrl)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decls, nil
}
