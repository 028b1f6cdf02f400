package auth

import (
	"context"
	"errors"
	"testing"
)

func TestWithActor_ActorFromCtx(t *testing.T) {
	ctx := WithActor(context.Background(), "alice")

	got, err := ActorFromCtx(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "alice" {
		t.Fatalf("expected alice, got %q", got)
	}
}

func TestActorFromCtx_EmptyContext(t *testing.T) {
	_, err := ActorFromCtx(context.Background())
	if !errors.Is(err, ErrActorNotFound) {
		t.Fatalf("expected ErrActorNotFound, got %v", err)
	}
}

func TestActorFromCtx_EmptyActor(t *testing.T) {
	ctx := WithActor(context.Background(), "")
	_, err := ActorFromCtx(ctx)
	if !errors.Is(err, ErrActorNotFound) {
		t.Fatalf("expected ErrActorNotFound for empty actor, got %v", err)
	}
}

func TestActorFromCtx_Isolation(t *testing.T) {
	ctx1 := WithActor(context.Background(), "alice")
	ctx2 := WithActor(context.Background(), "bob")

	got1, _ := ActorFromCtx(ctx1)
	got2, _ := ActorFromCtx(ctx2)

	if got1 != "alice" {
		t.Fatalf("ctx1: expected alice, got %q", got1)
	}
	if got2 != "bob" {
		t.Fatalf("ctx2: expected bob, got %q", got2)
	}
}
