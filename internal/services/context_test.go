package services_test

import (
	"context"
	"testing"

	"scdmix/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithItem(ctx, 2)
	ctx = services.WithTarget(ctx, 0)
	ctx = services.WithSource(ctx, "vocal")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if item, ok := services.ItemFromContext(ctx); !ok || item != 2 {
		t.Fatalf("unexpected item: %v %v", item, ok)
	}
	if target, ok := services.TargetFromContext(ctx); !ok || target != 0 {
		t.Fatalf("unexpected target: %v %v", target, ok)
	}
	if source, ok := services.SourceFromContext(ctx); !ok || source != "vocal" {
		t.Fatalf("unexpected source: %v %v", source, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSource(ctx, "")
	ctx = services.WithRunID(ctx, "")
	if _, ok := services.SourceFromContext(ctx); ok {
		t.Fatal("expected no source value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
	if _, ok := services.TargetFromContext(ctx); ok {
		t.Fatal("expected no target value")
	}
}
