package store

import (
	"context"
	"testing"

	"github.com/roach88/tessera/internal/compiler"
)

var _ compiler.DefinitionScope = (*Scope)(nil)

func TestScope_ResolveCachesFunction(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.WriteModule(ctx, createTestModule("lib", createShapeFunction("helper"))); err != nil {
		t.Fatalf("WriteModule() failed: %v", err)
	}

	sc := s.Scope()
	first, ok, err := sc.Resolve(ctx, "helper")
	if err != nil || !ok {
		t.Fatalf("Resolve() = %v, %v; want hit", ok, err)
	}
	second, _, _ := sc.Resolve(ctx, "helper")
	if first != second {
		t.Error("Resolve() returned a different *Function on the second call")
	}
}

func TestScope_ResolveMiss(t *testing.T) {
	s := createTestStore(t)

	fn, ok, err := s.Scope().Resolve(context.Background(), "helper")
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if ok || fn != nil {
		t.Errorf("Resolve() = %v, %v; want miss", fn, ok)
	}
}

func TestScope_ResolveAfterClose(t *testing.T) {
	s := createTestStore(t)
	sc := s.Scope()
	s.Close()

	if _, _, err := sc.Resolve(context.Background(), "helper"); err == nil {
		t.Error("expected error resolving against a closed store")
	}
}
