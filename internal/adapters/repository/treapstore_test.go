package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
	"github.com/Aimisnotavailable/DEPEDHRMPSB/pkg/metrics"
)

func TestTreapStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	if err := store.Upsert(ctx, "r1", scoring.Standing{ID: "c1", Seq: 1, Score: 72.5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count := store.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	entry, err := store.Rank(ctx, "r1", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 || entry.Score != 72.5 {
		t.Errorf("expected rank 1 score 72.5, got %+v", entry)
	}

	if _, err := store.Rank(ctx, "r1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Rank(ctx, "r2", "c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown round, got %v", err)
	}
}

func TestTreapStore_TiesBreakByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	// Inserted out of sequence order on purpose.
	_ = store.Upsert(ctx, "r1", scoring.Standing{ID: "third", Seq: 3, Score: 82.0})
	_ = store.Upsert(ctx, "r1", scoring.Standing{ID: "second", Seq: 2, Score: 70.5})
	_ = store.Upsert(ctx, "r1", scoring.Standing{ID: "first", Seq: 1, Score: 70.5})

	top, err := store.TopN(ctx, "r1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"third", "first", "second"}
	if len(top) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(top))
	}
	for i, code := range want {
		if top[i].CandidateCode != code || top[i].Rank != i+1 {
			t.Errorf("position %d: expected %s rank %d, got %+v", i, code, i+1, top[i])
		}
	}

	e, _ := store.Rank(ctx, "r1", "second")
	if e.Rank != 3 {
		t.Errorf("expected second at rank 3, got %d", e.Rank)
	}
}

func TestTreapStore_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	_ = store.Upsert(ctx, "r1", scoring.Standing{ID: "a", Seq: 1, Score: 90, Provisional: true})
	_ = store.Upsert(ctx, "r1", scoring.Standing{ID: "b", Seq: 2, Score: 80})
	// A lower composite must move a down; the cache is not a best-score store.
	_ = store.Upsert(ctx, "r1", scoring.Standing{ID: "a", Seq: 1, Score: 60})

	if c := store.Count(ctx); c != 2 {
		t.Errorf("expected count 2, got %d", c)
	}
	top, _ := store.TopN(ctx, "r1", 2)
	if top[0].CandidateCode != "b" || top[1].CandidateCode != "a" {
		t.Errorf("unexpected order: %+v", top)
	}
	if top[1].Provisional {
		t.Error("expected provisional flag to be replaced")
	}
}

func TestTreapStore_RoundsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	_ = store.Upsert(ctx, "r1", scoring.Standing{ID: "a", Seq: 1, Score: 50})
	_ = store.Upsert(ctx, "r2", scoring.Standing{ID: "a", Seq: 1, Score: 99})

	e1, _ := store.Rank(ctx, "r1", "a")
	e2, _ := store.Rank(ctx, "r2", "a")
	if e1.Score != 50 || e2.Score != 99 {
		t.Errorf("rounds leaked into each other: %+v %+v", e1, e2)
	}
	empty, err := store.TopN(ctx, "r3", 5)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty board for unknown round, got %v %v", empty, err)
	}
}

func TestTreapStore_InvalidLimit(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	for _, n := range []int{0, -1} {
		if _, err := store.TopN(ctx, "r1", n); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("limit %d: expected ErrInvalidLimit, got %v", n, err)
		}
	}
}

func TestTreapStore_MatchesSortedOrder(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	rng := rand.New(rand.NewSource(7))
	type rec struct {
		code  string
		seq   int64
		score float64
	}
	var recs []rec
	for i := 1; i <= 500; i++ {
		r := rec{code: fmt.Sprintf("c%03d", i), seq: int64(i), score: float64(rng.Intn(40)) + 0.5}
		recs = append(recs, r)
		_ = store.Upsert(ctx, "r1", scoring.Standing{ID: r.code, Seq: r.seq, Score: r.score})
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].score != recs[j].score {
			return recs[i].score > recs[j].score
		}
		return recs[i].seq < recs[j].seq
	})

	top, err := store.TopN(ctx, "r1", len(recs))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range recs {
		if top[i].CandidateCode != recs[i].code {
			t.Fatalf("position %d: expected %s, got %s", i, recs[i].code, top[i].CandidateCode)
		}
		e, err := store.Rank(ctx, "r1", recs[i].code)
		if err != nil || e.Rank != i+1 {
			t.Fatalf("rank of %s: expected %d, got %d (%v)", recs[i].code, i+1, e.Rank, err)
		}
	}
}

func TestTreapStore_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				code := fmt.Sprintf("w%d-%d", w, i)
				_ = store.Upsert(ctx, "r1", scoring.Standing{ID: code, Seq: int64(w*100 + i), Score: float64(i)})
				_, _ = store.TopN(ctx, "r1", 5)
			}
		}(w)
	}
	wg.Wait()

	if c := store.Count(ctx); c != 800 {
		t.Errorf("expected 800 entries, got %d", c)
	}
}

func TestTreapStore_MetricsUpdateInterval(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx, WithMetricsUpdateInterval(10*time.Millisecond))
	defer store.Close()

	if store.metricsUpdateInterval != 10*time.Millisecond {
		t.Fatalf("expected interval 10ms, got %v", store.metricsUpdateInterval)
	}
	for i := range 3 {
		standing := scoring.Standing{ID: fmt.Sprintf("c%d", i), Seq: int64(i + 1), Score: 50}
		if err := store.Upsert(ctx, "metrics-round", standing); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cachedRecords(t) == 3 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("expected the records gauge to report 3, got %v", cachedRecords(t))
}

func cachedRecords(t *testing.T) float64 {
	t.Helper()
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if strings.HasSuffix(f.GetName(), "repository_leaderboard_records") && len(f.GetMetric()) > 0 {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return -1
}
