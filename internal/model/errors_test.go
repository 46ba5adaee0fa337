package model

import (
	"errors"
	"fmt"
	"testing"

	"minisearch/internal/protocol"
)

func TestCodedErrorIsMatchesByCode(t *testing.T) {
	err := &CodedError{Code: protocol.ErrorCodeToolLoopExceeded, Message: "turn used 6 calls"}
	if !errors.Is(err, ErrToolLoopExceeded) {
		t.Fatalf("expected errors.Is to match by code")
	}
	if errors.Is(err, ErrRateLimited) {
		t.Fatalf("errors with different codes must not match")
	}
}

func TestCodeOfWalksWrapChain(t *testing.T) {
	inner := NotFound("field 999999 not found")
	wrapped := fmt.Errorf("dispatch: %w", inner)

	if got := CodeOf(wrapped); got != protocol.ErrorCodeNotFound {
		t.Fatalf("CodeOf = %q, want %q", got, protocol.ErrorCodeNotFound)
	}
	if got := CodeOf(errors.New("plain")); got != protocol.ErrorCodeUnexpected {
		t.Fatalf("CodeOf(plain) = %q, want %q", got, protocol.ErrorCodeUnexpected)
	}
}

func TestTimeoutWrapsCause(t *testing.T) {
	cause := errors.New("context deadline exceeded")
	err := Timeout("model call timed out", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("Timeout must wrap its cause")
	}
	if !err.Retryable {
		t.Fatalf("timeouts are retryable")
	}
}

func TestOpNameRoundTrip(t *testing.T) {
	ops := []Op{
		OpLookupByID, OpSearchByKeyword, OpListCategory,
		OpResolveEncoding, OpRecommendRelated, OpListCategories, OpListRecommended,
	}
	for _, op := range ops {
		name := op.Name()
		if name == "" {
			t.Fatalf("op %d has no wire name", op)
		}
		back, ok := OpFromName(name)
		if !ok || back != op {
			t.Fatalf("OpFromName(%q) = %v, %v; want %v", name, back, ok, op)
		}
	}
	if _, ok := OpFromName("drop_tables"); ok {
		t.Fatalf("names outside the closed set must not resolve")
	}
}
