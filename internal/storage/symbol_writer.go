package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mvp-joe/symgraph/internal/indexer"
	"github.com/mvp-joe/symgraph/internal/symbol"
)

// SymbolWriter stores the merged outcome of a run in SQLite.
type SymbolWriter struct {
	db *sql.DB
}

// NewSymbolWriter creates a SymbolWriter. The schema must already exist (see Open).
func NewSymbolWriter(db *sql.DB) *SymbolWriter {
	return &SymbolWriter{db: db}
}

// WriteResult replaces whatever the database holds with result, atomically.
func (w *SymbolWriter) WriteResult(result *indexer.Result) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	for _, table := range []string{"enumerators", "members", "symbols", "conflicts"} {
		if _, err := sq.Delete(table).RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if result.Registry != nil {
		if err := w.writeSymbols(tx, result.Registry.Tree()); err != nil {
			return err
		}
	}
	for i, c := range result.Conflicts {
		_, err := sq.Insert("conflicts").
			Columns("position", "qualified_name", "existing_kind", "incoming_kind",
				"existing_file", "existing_line", "incoming_file", "incoming_line").
			Values(i, c.Path.String(), string(c.ExistingKind), string(c.IncomingKind),
				c.Existing.File, c.Existing.Line, c.Incoming.File, c.Incoming.Line).
			RunWith(tx).
			Exec()
		if err != nil {
			return fmt.Errorf("failed to insert conflict at %s: %w", c.Path, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	meta := map[string]string{
		"last_run":        now,
		"files_extracted": strconv.Itoa(result.Stats.FilesExtracted),
		"symbol_count":    strconv.Itoa(result.Stats.Symbols),
	}
	for key, value := range meta {
		_, err := sq.Insert("metadata").
			Columns("key", "value", "updated_at").
			Values(key, value, now).
			Options("OR REPLACE").
			RunWith(tx).
			Exec()
		if err != nil {
			return fmt.Errorf("failed to write metadata %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// writeSymbols inserts the tree depth-first so every parent row precedes its children.
func (w *SymbolWriter) writeSymbols(tx *sql.Tx, roots []symbol.Symbol) error {
	symStmt, err := prepare(tx, sq.Insert("symbols").
		Columns("qualified_name", "parent", "position", "kind", "name", "file_path", "line",
			"declaration_only", "return_type", "params").
		Values("", nil, 0, "", "", "", 0, false, nil, nil))
	if err != nil {
		return err
	}
	defer symStmt.Close()

	memberStmt, err := prepare(tx, sq.Insert("members").
		Columns("symbol", "position", "kind", "name", "return_type", "field_type", "params",
			"is_const", "is_static", "file_path", "line").
		Values("", 0, "", "", nil, nil, nil, false, false, "", 0))
	if err != nil {
		return err
	}
	defer memberStmt.Close()

	enumStmt, err := prepare(tx, sq.Insert("enumerators").
		Columns("symbol", "position", "name", "value", "explicit").
		Values("", 0, "", 0, nil))
	if err != nil {
		return err
	}
	defer enumStmt.Close()

	position := 0
	for s := range symbol.Walk(roots) {
		key := s.QualifiedName()

		var parent any
		if len(s.Path) > 1 {
			parent = s.Path.Parent().String()
		}
		var returnType, params any
		if s.Kind == symbol.KindFunction {
			returnType = s.ReturnType
			if params, err = encodeParams(s.Params); err != nil {
				return err
			}
		}

		if _, err := symStmt.Exec(key, parent, position, string(s.Kind), s.Name,
			s.Location.File, s.Location.Line, s.DeclarationOnly, returnType, params); err != nil {
			return fmt.Errorf("failed to insert symbol %s: %w", key, err)
		}
		position++

		for i, m := range s.Members {
			var ret, typ, mparams any
			if m.Kind.IsCallable() {
				ret = m.ReturnType
				if mparams, err = encodeParams(m.Params); err != nil {
					return err
				}
			} else {
				typ = m.Type
			}
			if _, err := memberStmt.Exec(key, i, string(m.Kind), m.Name, ret, typ, mparams,
				m.IsConst, m.IsStatic, m.Location.File, m.Location.Line); err != nil {
				return fmt.Errorf("failed to insert member %s.%s: %w", key, m.Name, err)
			}
		}

		for i, e := range s.Enumerators {
			var explicit any
			if e.Explicit != "" {
				explicit = e.Explicit
			}
			if _, err := enumStmt.Exec(key, i, e.Name, e.Value, explicit); err != nil {
				return fmt.Errorf("failed to insert enumerator %s.%s: %w", key, e.Name, err)
			}
		}
	}
	return nil
}

// prepare turns a squirrel insert (built with placeholder values) into a
// prepared statement reused for every row.
func prepare(tx *sql.Tx, builder sq.InsertBuilder) (*sql.Stmt, error) {
	sqlStr, _, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL: %w", err)
	}
	stmt, err := tx.Prepare(sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	return stmt, nil
}

func encodeParams(params []string) (string, error) {
	if params == nil {
		params = []string{}
	}
	b, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode params: %w", err)
	}
	return string(b), nil
}
