package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/mvp-joe/symgraph/internal/symbol"
)

// ErrSymbolNotFound is returned by Lookup for an unknown qualified name.
var ErrSymbolNotFound = errors.New("symbol not found")

// SymbolReader rebuilds symbols written by SymbolWriter.
type SymbolReader struct {
	db sq.BaseRunner
}

// NewSymbolReader creates a reader over db.
func NewSymbolReader(db sq.BaseRunner) *SymbolReader {
	return &SymbolReader{db: db}
}

// CountSymbols returns the number of stored symbols.
func CountSymbols(db sq.BaseRunner) (int, error) {
	var n int
	err := sq.Select("COUNT(*)").From("symbols").RunWith(db).QueryRow().Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count symbols: %w", err)
	}
	return n, nil
}

// FindByName returns the paths of every symbol whose own name is name, in tree order.
func (r *SymbolReader) FindByName(name string) ([]symbol.Path, error) {
	rows, err := sq.Select("qualified_name").
		From("symbols").
		Where(sq.Eq{"name": name}).
		OrderBy("position").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols named %s: %w", name, err)
	}
	defer rows.Close()

	var out []symbol.Path
	for rows.Next() {
		var qn string
		if err := rows.Scan(&qn); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		out = append(out, symbol.ParsePath(qn))
	}
	return out, rows.Err()
}

// Lookup rebuilds the symbol stored at path, namespace children included.
func (r *SymbolReader) Lookup(path symbol.Path) (symbol.Symbol, error) {
	var (
		s               symbol.Symbol
		kind            string
		returnType      sql.NullString
		params          sql.NullString
		declarationOnly bool
	)
	err := sq.Select("kind", "name", "file_path", "line", "declaration_only", "return_type", "params").
		From("symbols").
		Where(sq.Eq{"qualified_name": path.String()}).
		RunWith(r.db).
		QueryRow().
		Scan(&kind, &s.Name, &s.Location.File, &s.Location.Line, &declarationOnly, &returnType, &params)
	if errors.Is(err, sql.ErrNoRows) {
		return symbol.Symbol{}, fmt.Errorf("%w: %s", ErrSymbolNotFound, path)
	}
	if err != nil {
		return symbol.Symbol{}, fmt.Errorf("failed to load symbol %s: %w", path, err)
	}

	s.Kind = symbol.Kind(kind)
	s.Path = path
	s.DeclarationOnly = declarationOnly
	s.ReturnType = returnType.String
	if s.Params, err = decodeParams(params); err != nil {
		return symbol.Symbol{}, err
	}

	switch s.Kind {
	case symbol.KindNamespace:
		if s.Children, err = r.children(path); err != nil {
			return symbol.Symbol{}, err
		}
	case symbol.KindClass, symbol.KindStruct:
		if s.Members, err = r.members(path); err != nil {
			return symbol.Symbol{}, err
		}
	case symbol.KindEnum:
		if s.Enumerators, err = r.enumerators(path); err != nil {
			return symbol.Symbol{}, err
		}
	}
	return s, nil
}

func (r *SymbolReader) children(path symbol.Path) ([]symbol.Symbol, error) {
	rows, err := sq.Select("qualified_name").
		From("symbols").
		Where(sq.Eq{"parent": path.String()}).
		OrderBy("position").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query children of %s: %w", path, err)
	}

	var keys []string
	for rows.Next() {
		var qn string
		if err := rows.Scan(&qn); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		keys = append(keys, qn)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows are drained first: the database may allow one open statement at a time
	var out []symbol.Symbol
	for _, key := range keys {
		child, err := r.Lookup(symbol.ParsePath(key))
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

func (r *SymbolReader) members(path symbol.Path) ([]symbol.Member, error) {
	rows, err := sq.Select("kind", "name", "return_type", "field_type", "params", "is_const", "is_static", "file_path", "line").
		From("members").
		Where(sq.Eq{"symbol": path.String()}).
		OrderBy("position").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query members of %s: %w", path, err)
	}
	defer rows.Close()

	var out []symbol.Member
	for rows.Next() {
		var (
			m                   symbol.Member
			kind                string
			ret, typ, rawParams sql.NullString
		)
		if err := rows.Scan(&kind, &m.Name, &ret, &typ, &rawParams, &m.IsConst, &m.IsStatic, &m.Location.File, &m.Location.Line); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.Kind = symbol.MemberKind(kind)
		m.ReturnType = ret.String
		m.Type = typ.String
		if m.Params, err = decodeParams(rawParams); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SymbolReader) enumerators(path symbol.Path) ([]symbol.Enumerator, error) {
	rows, err := sq.Select("name", "value", "explicit").
		From("enumerators").
		Where(sq.Eq{"symbol": path.String()}).
		OrderBy("position").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query enumerators of %s: %w", path, err)
	}
	defer rows.Close()

	var out []symbol.Enumerator
	for rows.Next() {
		var (
			e        symbol.Enumerator
			explicit sql.NullString
		)
		if err := rows.Scan(&e.Name, &e.Value, &explicit); err != nil {
			return nil, fmt.Errorf("failed to scan enumerator: %w", err)
		}
		e.Explicit = explicit.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// decodeParams returns nil for an empty or missing list, matching how
// adapters leave parameterless callables.
func decodeParams(raw sql.NullString) ([]string, error) {
	if !raw.Valid {
		return nil, nil
	}
	var params []string
	if err := json.Unmarshal([]byte(raw.String), &params); err != nil {
		return nil, fmt.Errorf("failed to decode params: %w", err)
	}
	if len(params) == 0 {
		return nil, nil
	}
	return params, nil
}
