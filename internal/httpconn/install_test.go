package httpconn

import (
	"context"
	"testing"
)

func TestInstallStage_PlaintextResolvesH1AndBindsStage(t *testing.T) {
	ch := newFakeChannel("")
	conn, err := installStage(context.Background(), ch, noopHandler(), discardLogger, false, false, 0)
	if err != nil {
		t.Fatalf("installStage failed: %v", err)
	}
	if conn.Version() != V1_1 {
		t.Fatalf("expected V1_1, got %v", conn.Version())
	}
	tail := ch.Tail()
	if tail == nil || tail.Handler() != conn {
		t.Fatal("expected the connection to be bound as the tail stage's handler")
	}
}

func TestInstallStage_TLSWithH2ALPNResolvesH2(t *testing.T) {
	ch := newFakeChannel("h2")
	conn, err := installStage(context.Background(), ch, noopHandler(), discardLogger, true, true, 0)
	if err != nil {
		t.Fatalf("installStage failed: %v", err)
	}
	if conn.Version() != V2 {
		t.Fatalf("expected V2, got %v", conn.Version())
	}
}

func TestInstallStage_FailureRemovesStageAndReturnsError(t *testing.T) {
	ch := newFakeChannel("") // no upstream ALPN stage present
	before := ch.Tail()

	conn, err := installStage(context.Background(), ch, noopHandler(), discardLogger, false, true, 0)
	if err == nil {
		t.Fatal("expected ResolveVersion's invalid-state error to propagate")
	}
	if conn != nil {
		t.Fatal("expected a nil connection on failure")
	}
	if ch.Tail() != before {
		t.Fatal("expected the failed stage to be removed, leaving the pipeline unchanged")
	}
}

func TestInstallStage_AcquiresExactlyOneHoldOnSuccess(t *testing.T) {
	ch := newFakeChannel("")
	conn, err := installStage(context.Background(), ch, noopHandler(), discardLogger, true, false, 0)
	if err != nil {
		t.Fatalf("installStage failed: %v", err)
	}

	// The connection starts with refs == 1 (its own logical reference) plus
	// the one channel-hold installStage acquired on ch; releasing the
	// connection's logical reference must release that hold without
	// panicking on an unbalanced release.
	conn.Release()
}
