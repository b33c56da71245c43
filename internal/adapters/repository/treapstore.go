package repository

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
	types "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/types"
	"github.com/Aimisnotavailable/DEPEDHRMPSB/pkg/metrics"
)

// Treap-based, in-memory Leaderboard implementation, one treap per round.
//
// Ordering: score DESC, then seq ASC. "less" means ranks earlier, so an
// in-order traversal yields the leaderboard from best to worst.

// scoreScale holds composites as integer hundredths; they are already
// rounded to two places, so no precision is lost.
const scoreScale = 100

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	if math.IsNaN(x) {
		return 0
	}
	return scoreFP(math.Round(x * scoreScale))
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

type record struct {
	score       scoreFP
	seq         int64
	provisional bool
}

type node struct {
	code  string
	score scoreFP
	seq   int64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether a ranks before b.
func less(aScore scoreFP, aSeq int64, bScore scoreFP, bSeq int64) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aSeq < bSeq
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// priority hashes the candidate code; it is deterministic per candidate and
// uncorrelated with score, which keeps the treap balanced in expectation.
func priority(code string) uint64 {
	return xxhash.Sum64String(code)
}

func insert(n *node, code string, score scoreFP, seq int64) *node {
	if n == nil {
		return &node{code: code, score: score, seq: seq, prio: priority(code), size: 1}
	}
	if less(score, seq, n.score, n.seq) {
		n.left = insert(n.left, code, score, seq)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, code, score, seq)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, score scoreFP, seq int64) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && seq == n.seq:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, score, seq)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, score, seq)
		}
	case less(score, seq, n.score, n.seq):
		n.left = deleteNode(n.left, score, seq)
	default:
		n.right = deleteNode(n.right, score, seq)
	}
	fix(n)
	return n
}

// position returns the 1-based rank of (score, seq) in O(log n).
func position(n *node, score scoreFP, seq int64) int {
	rank := 0
	for n != nil {
		switch {
		case score == n.score && seq == n.seq:
			return rank + nsize(n.left) + 1
		case less(score, seq, n.score, n.seq):
			n = n.left
		default:
			rank += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, records map[string]record, out *[]types.Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, records, out)
	if len(*out) < limit {
		rec := records[n.code]
		*out = append(*out, types.Entry{
			Rank:          len(*out) + 1,
			CandidateCode: n.code,
			Score:         toFloat(rec.score),
			Provisional:   rec.provisional,
		})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, records, out)
	}
}

type board struct {
	root *node
	byID map[string]record
}

// TreapStore implements Leaderboard.
type TreapStore struct {
	mu                    sync.RWMutex
	boards                map[string]*board
	count                 int
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTreapStore constructs a treap leaderboard and starts its metrics updater.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		boards:                make(map[string]*board),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Upsert implements Leaderboard.Upsert in O(log n) expected time.
func (s *TreapStore) Upsert(ctx context.Context, roundID string, e scoring.Standing) error {
	start := time.Now()
	defer recordUpdate(start)

	ns := toFixedPoint(e.Score)

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[roundID]
	if !ok {
		b = &board{byID: make(map[string]record)}
		s.boards[roundID] = b
	}
	if old, ok := b.byID[e.ID]; ok {
		b.root = deleteNode(b.root, old.score, old.seq)
	} else {
		s.count++
	}
	b.byID[e.ID] = record{score: ns, seq: e.Seq, provisional: e.Provisional}
	b.root = insert(b.root, e.ID, ns, e.Seq)
	return nil
}

// Rank returns the rank of one candidate in O(log n).
func (s *TreapStore) Rank(ctx context.Context, roundID, code string) (types.Entry, error) {
	defer recordQuery(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[roundID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.Entry{}, ErrNotFound
	}
	rec, ok := b.byID[code]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.Entry{}, ErrNotFound
	}
	return types.Entry{
		Rank:          position(b.root, rec.score, rec.seq),
		CandidateCode: code,
		Score:         toFloat(rec.score),
		Provisional:   rec.provisional,
	}, nil
}

// TopN returns the first n entries of a round.
func (s *TreapStore) TopN(ctx context.Context, roundID string, n int) ([]types.Entry, error) {
	defer recordQuery(time.Now())

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[roundID]
	if !ok {
		return []types.Entry{}, nil
	}
	out := make([]types.Entry, 0, min(n, len(b.byID)))
	collectTopN(b.root, n, b.byID, &out)
	return out, nil
}

// Count returns the number of cached entries.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateRepositoryRecordsTotal(s.Count(ctx))
			}
		}
	}()
}
