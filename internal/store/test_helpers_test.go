package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/tessera/internal/ir"
	"github.com/roach88/tessera/internal/testutil"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createShapeFunction builds fn name(%x: Tensor) { %y = shape_of(%x); %y }.
func createShapeFunction(name string) *ir.Function {
	ids := testutil.NewSequenceGenerator("v")
	x := ir.NewVar(ids, "x", ir.UnrankedTensor(ir.Span{}), ir.Span{})
	y := ir.NewVar(ids, "y", nil, ir.Span{})
	return &ir.Function{
		Name:   name,
		Params: []*ir.Var{x},
		Body: &ir.Let{
			Bindings: []ir.Binding{{Var: y, Value: &ir.ShapeOf{Tensor: x}}},
			Result:   y,
		},
	}
}

// createAddFunction builds fn name(%a: Tensor[2, 3], %b: Tensor[2, 3]) { add(%a, %b) }.
func createAddFunction(name string) *ir.Function {
	ids := testutil.NewSequenceGenerator("v")
	dims := []ir.Dim{{Value: 2}, {Value: 3}}
	a := ir.NewVar(ids, "a", ir.RankedTensor(dims, ir.Span{}), ir.Span{})
	b := ir.NewVar(ids, "b", ir.RankedTensor(dims, ir.Span{}), ir.Span{})
	return &ir.Function{
		Name:   name,
		Params: []*ir.Var{a, b},
		Body:   &ir.Let{Result: &ir.Add{LHS: a, RHS: b}},
	}
}

// createTestModule builds a module holding the given functions under their own names.
func createTestModule(name string, fns ...*ir.Function) *ir.Module {
	m := ir.NewModule(name)
	for _, fn := range fns {
		m.Put(fn.Name, fn)
	}
	return m
}

// getTableColumns returns the column names of a table.
func getTableColumns(t *testing.T, s *Store, table string) []string {
	t.Helper()
	rows, err := s.db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("pragma_table_info(%s) failed: %v", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan column: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}

// getTableIndexes returns the index names of a table.
func getTableIndexes(t *testing.T, s *Store, table string) []string {
	t.Helper()
	rows, err := s.db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("query indexes of %s failed: %v", table, err)
	}
	defer rows.Close()

	var idx []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan index: %v", err)
		}
		idx = append(idx, name)
	}
	return idx
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
