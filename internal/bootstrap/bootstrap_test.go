package bootstrap

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"thumbgen/internal/catalog"
	"thumbgen/internal/infra"
	"thumbgen/internal/infra/credentials"
	"thumbgen/internal/storage"
)

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	st, err := NewStore(ctx, &infra.Config{StorageDriver: "fs", StoragePath: t.TempDir()})
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	if _, ok := st.(*storage.FileStore); !ok {
		t.Fatalf("store type = %T", st)
	}
	if _, err := NewStore(ctx, &infra.Config{StorageDriver: "ftp"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := NewStore(ctx, &infra.Config{StorageDriver: "s3"}); err == nil {
		t.Fatal("expected error for s3 without bucket")
	}
}

func TestNewPlannerAndGenerator(t *testing.T) {
	ctx := context.Background()
	var keys *credentials.Store
	logger := zerolog.Nop()

	p, err := NewPlanner(ctx, &infra.Config{PlannerProvider: "static"}, keys, catalog.Default(), &logger)
	if err != nil || p.Name() != "static" {
		t.Fatalf("static planner: %v, %v", p, err)
	}
	if _, err := NewPlanner(ctx, &infra.Config{PlannerProvider: "gemini"}, keys, catalog.Default(), &logger); err == nil {
		t.Fatal("expected missing gemini key error")
	}
	if _, err := NewPlanner(ctx, &infra.Config{PlannerProvider: "openai"}, keys, catalog.Default(), &logger); err == nil {
		t.Fatal("expected missing openai key error")
	}

	g, err := NewGenerator(ctx, &infra.Config{ImageProvider: "synthetic"}, keys, &logger)
	if err != nil || g.Name() != "synthetic" {
		t.Fatalf("synthetic generator: %v, %v", g, err)
	}
	g, err = NewGenerator(ctx, &infra.Config{ImageProvider: "qwen", QwenAPIKey: "k"}, keys, &logger)
	if err != nil || g.Name() != "qwen" {
		t.Fatalf("qwen generator: %v, %v", g, err)
	}
	if _, err := NewGenerator(ctx, &infra.Config{ImageProvider: "gemini"}, keys, &logger); err == nil {
		t.Fatal("expected missing gemini key error")
	}
}
