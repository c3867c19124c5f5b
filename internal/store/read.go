package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tessera/internal/ir"
)

// ErrModuleNotFound is returned by ReadModule for an unknown name.
var ErrModuleNotFound = errors.New("module not found")

// ListModules returns every stored module, oldest first.
// Ordering: ORDER BY seq ASC, name ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListModules(ctx context.Context) ([]ModuleInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.name, m.seq, m.module_hash, COUNT(mf.name)
		FROM modules m
		LEFT JOIN module_functions mf ON mf.module = m.name
		GROUP BY m.name
		ORDER BY m.seq ASC, m.name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	defer rows.Close()

	infos := []ModuleInfo{}
	for rows.Next() {
		var info ModuleInfo
		if err := rows.Scan(&info.Name, &info.Seq, &info.Hash, &info.Functions); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modules: %w", err)
	}
	return infos, nil
}

// ReadModule loads a stored module. Variables of the decoded functions carry
// positional ids (%0, %1, ...) and no spans.
func (s *Store) ReadModule(ctx context.Context, name string) (*ir.Module, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT seq FROM modules WHERE name = ?`, name).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read module %q: %w", name, ErrModuleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read module %q: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT mf.name, f.body
		FROM module_functions mf
		JOIN functions f ON f.hash = mf.hash
		WHERE mf.module = ?
		ORDER BY mf.name COLLATE BINARY ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("read module %q: %w", name, err)
	}
	defer rows.Close()

	mod := ir.NewModule(name)
	for rows.Next() {
		var fname, body string
		if err := rows.Scan(&fname, &body); err != nil {
			return nil, fmt.Errorf("scan function: %w", err)
		}
		fn, err := ir.DecodeFunction([]byte(body))
		if err != nil {
			return nil, fmt.Errorf("read module %q: function %q: %w", name, fname, err)
		}
		mod.Put(fname, fn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate functions: %w", err)
	}
	return mod, nil
}

// LookupFunction returns the function exported under name by the most
// recently written module that exports it.
func (s *Store) LookupFunction(ctx context.Context, name string) (*ir.Function, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT f.body
		FROM module_functions mf
		JOIN modules m ON m.name = mf.module
		JOIN functions f ON f.hash = mf.hash
		WHERE mf.name = ?
		ORDER BY m.seq DESC
		LIMIT 1
	`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup function %q: %w", name, err)
	}
	fn, err := ir.DecodeFunction([]byte(body))
	if err != nil {
		return nil, false, fmt.Errorf("lookup function %q: %w", name, err)
	}
	return fn, true, nil
}
