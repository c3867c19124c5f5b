package store

import (
	"context"
	"fmt"

	"github.com/roach88/tessera/internal/ir"
)

// ModuleInfo summarizes a stored module.
type ModuleInfo struct {
	Name      string `json:"name"`
	Seq       int64  `json:"seq"`
	Hash      string `json:"hash"`
	Functions int    `json:"functions"`
}

// WriteModule stores m, replacing any earlier module with the same name.
// The module takes the next seq, so its exports shadow older modules.
//
// Function rows are content-addressed and inserted with ON CONFLICT DO
// NOTHING; writing the same function twice is a no-op.
func (s *Store) WriteModule(ctx context.Context, m *ir.Module) (ModuleInfo, error) {
	modHash, err := ir.ModuleHash(m)
	if err != nil {
		return ModuleInfo{}, fmt.Errorf("write module %q: %w", m.Name, err)
	}

	type row struct {
		name, hash, body string
	}
	rows := make([]row, 0, m.Len())
	for _, name := range m.Names() {
		fn, _ := m.Get(name)
		body, err := ir.MarshalFunction(fn)
		if err != nil {
			return ModuleInfo{}, fmt.Errorf("write module %q: function %q: %w", m.Name, name, err)
		}
		hash, err := ir.FunctionHash(fn)
		if err != nil {
			return ModuleInfo{}, fmt.Errorf("write module %q: function %q: %w", m.Name, name, err)
		}
		rows = append(rows, row{name: name, hash: hash, body: string(body)})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ModuleInfo{}, fmt.Errorf("write module %q: begin: %w", m.Name, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM modules`).Scan(&seq); err != nil {
		return ModuleInfo{}, fmt.Errorf("write module %q: next seq: %w", m.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM module_functions WHERE module = ?`, m.Name); err != nil {
		return ModuleInfo{}, fmt.Errorf("write module %q: clear exports: %w", m.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO modules (name, seq, module_hash)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET seq = excluded.seq, module_hash = excluded.module_hash
	`, m.Name, seq, modHash); err != nil {
		return ModuleInfo{}, fmt.Errorf("write module %q: %w", m.Name, err)
	}

	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO functions (hash, name, body)
			VALUES (?, ?, ?)
			ON CONFLICT(hash) DO NOTHING
		`, r.hash, r.name, r.body); err != nil {
			return ModuleInfo{}, fmt.Errorf("write function %q: %w", r.name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO module_functions (module, name, hash)
			VALUES (?, ?, ?)
		`, m.Name, r.name, r.hash); err != nil {
			return ModuleInfo{}, fmt.Errorf("write export %q: %w", r.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ModuleInfo{}, fmt.Errorf("write module %q: commit: %w", m.Name, err)
	}
	return ModuleInfo{Name: m.Name, Seq: seq, Hash: modHash, Functions: len(rows)}, nil
}
