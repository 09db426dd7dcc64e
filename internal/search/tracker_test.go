package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestBeginCancelsPreviousSearch(t *testing.T) {
	tr := NewTracker()

	ctx1, gen1, done1 := tr.Begin(context.Background(), "s1")
	defer done1()
	ctx2, gen2, done2 := tr.Begin(context.Background(), "s1")
	defer done2()

	if !errors.Is(ctx1.Err(), context.Canceled) {
		t.Fatalf("expected first search to be cancelled, got %v", ctx1.Err())
	}
	if ctx2.Err() != nil {
		t.Fatalf("expected second search to be running, got %v", ctx2.Err())
	}
	if gen2 <= gen1 {
		t.Fatalf("expected increasing generations, got %d then %d", gen1, gen2)
	}
	if tr.IsCurrent("s1", gen1) {
		t.Fatalf("first generation must be stale")
	}
	if !tr.IsCurrent("s1", gen2) {
		t.Fatalf("second generation must be current")
	}
}

func TestBeginKeysAreIndependent(t *testing.T) {
	tr := NewTracker()

	ctxA, genA, doneA := tr.Begin(context.Background(), "a")
	defer doneA()
	_, _, doneB := tr.Begin(context.Background(), "b")
	defer doneB()

	if ctxA.Err() != nil {
		t.Fatalf("search for another key must not cancel, got %v", ctxA.Err())
	}
	if !tr.IsCurrent("a", genA) {
		t.Fatalf("expected key a to stay current")
	}
}

func TestDoneReleasesIdleKey(t *testing.T) {
	tr := NewTracker()

	ctx, gen, done := tr.Begin(context.Background(), "s")
	if !tr.IsCurrent("s", gen) || tr.Len() != 1 {
		t.Fatalf("running search must be current")
	}
	done()
	done()

	if ctx.Err() == nil {
		t.Fatalf("expected context to be released by done")
	}
	if tr.Len() != 0 {
		t.Fatalf("expected idle key to be dropped, got %d keys", tr.Len())
	}
	if tr.IsCurrent("s", gen) {
		t.Fatalf("finished search must not stay current")
	}
}

func TestSupersededSearchKeepsKeyUntilDone(t *testing.T) {
	tr := NewTracker()

	_, gen1, done1 := tr.Begin(context.Background(), "s")
	_, gen2, done2 := tr.Begin(context.Background(), "s")

	done2()
	if tr.Len() != 1 {
		t.Fatalf("key must stay while the superseded search runs")
	}
	if tr.IsCurrent("s", gen1) {
		t.Fatalf("superseded generation %d must stay stale", gen1)
	}
	if !tr.IsCurrent("s", gen2) {
		t.Fatalf("generation %d must stay current", gen2)
	}

	done1()
	if tr.Len() != 0 {
		t.Fatalf("expected key to be dropped, got %d keys", tr.Len())
	}
}

func TestManySessionsDoNotAccumulate(t *testing.T) {
	tr := NewTracker()

	for i := 0; i < 100; i++ {
		_, _, done := tr.Begin(context.Background(), fmt.Sprintf("session-%d", i))
		done()
	}
	if tr.Len() != 0 {
		t.Fatalf("expected no retained keys, got %d", tr.Len())
	}
}

func TestForgetThenBegin(t *testing.T) {
	tr := NewTracker()

	_, genOld, doneOld := tr.Begin(context.Background(), "s")
	tr.Forget("s")
	if tr.IsCurrent("s", genOld) {
		t.Fatalf("forgotten search must be stale")
	}

	_, gen, done := tr.Begin(context.Background(), "s")
	defer done()
	if gen == genOld {
		t.Fatalf("new search reused generation %d", gen)
	}

	doneOld()
	if !tr.IsCurrent("s", gen) {
		t.Fatalf("finishing a forgotten search must not affect the new one")
	}
}

func TestForget(t *testing.T) {
	tr := NewTracker()

	ctx, gen, done := tr.Begin(context.Background(), "s")
	tr.Forget("s")

	if ctx.Err() == nil {
		t.Fatalf("expected forget to cancel the running search")
	}
	if tr.IsCurrent("s", gen) {
		t.Fatalf("expected search to be stale after forget")
	}

	done()
	if tr.Len() != 0 {
		t.Fatalf("expected no state after forget and done")
	}
}
