package goals

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/zamanbank/assistant/internal/analytics"
)

// neighborCount is how many similar users to inspect for finished goals.
const neighborCount = 10

// maxExamples caps how many peer goals are returned to the model.
const maxExamples = 3

// snapshot is one immutable build of the user-feature matrix. Rows align
// with users; columns are standardized.
type snapshot struct {
	users  []int64
	index  map[int64]int
	matrix *mat.Dense
}

// Comparator maintains a standardized feature matrix over all users'
// transactions and answers nearest-neighbor queries against it. Refresh is
// expected to run periodically; Relevant reads the latest snapshot.
type Comparator struct {
	db     Querier
	logger *slog.Logger

	mu   sync.RWMutex
	snap *snapshot
}

// NewComparator creates a Comparator. A nil logger uses slog.Default().
func NewComparator(db Querier, logger *slog.Logger) *Comparator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Comparator{db: db, logger: logger}
}

// Refresh rebuilds the feature snapshot from the full transaction table.
func (c *Comparator) Refresh(ctx context.Context) error {
	txs, err := c.db.AllTransactions(ctx)
	if err != nil {
		return fmt.Errorf("loading transactions: %w", err)
	}
	snap := buildSnapshot(txs)

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	c.logger.Debug("feature snapshot rebuilt", "users", len(snap.users))
	return nil
}

// defaultRefreshInterval backs Run when it is handed a non-positive
// cadence; NewTicker panics on those.
const defaultRefreshInterval = 10 * time.Minute

// Run refreshes immediately and then on every tick until ctx is done.
func (c *Comparator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		c.logger.Warn("non-positive refresh interval, using default",
			"interval", interval, "default", defaultRefreshInterval)
		interval = defaultRefreshInterval
	}
	if err := c.Refresh(ctx); err != nil {
		c.logger.Error("initial feature refresh failed", "error", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.logger.Error("feature refresh failed", "error", err)
			}
		}
	}
}

// Relevant returns up to three most recently finished goals among the
// cosine-nearest users to userID, excluding the user themself.
func (c *Comparator) Relevant(ctx context.Context, userID int64) ([]Goal, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()

	if snap == nil {
		return nil, ErrNotReady
	}
	target, ok := snap.index[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", ErrUnknownUser, userID)
	}

	neighbors := snap.nearest(target, neighborCount)

	var examples []Goal
	for _, row := range neighbors {
		finished, err := c.db.FinishedGoals(ctx, snap.users[row])
		if err != nil {
			return nil, fmt.Errorf("loading goals for user %d: %w", snap.users[row], err)
		}
		examples = append(examples, finished...)
	}

	sort.Slice(examples, func(i, j int) bool {
		return examples[i].Deadline.After(examples[j].Deadline)
	})
	if len(examples) > maxExamples {
		examples = examples[:maxExamples]
	}
	return examples, nil
}

// nearest returns the row indices of the k cosine-closest rows to target,
// target itself excluded.
func (s *snapshot) nearest(target, k int) []int {
	rows, _ := s.matrix.Dims()
	tv := s.matrix.RawRowView(target)

	type scored struct {
		row  int
		dist float64
	}
	others := make([]scored, 0, rows-1)
	for r := 0; r < rows; r++ {
		if r == target {
			continue
		}
		others = append(others, scored{row: r, dist: cosineDistance(tv, s.matrix.RawRowView(r))})
	}
	sort.Slice(others, func(i, j int) bool {
		if others[i].dist != others[j].dist {
			return others[i].dist < others[j].dist
		}
		return s.users[others[i].row] < s.users[others[j].row]
	})
	if len(others) > k {
		others = others[:k]
	}
	out := make([]int, len(others))
	for i, o := range others {
		out[i] = o.row
	}
	return out
}

func cosineDistance(a, b []float64) float64 {
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - floats.Dot(a, b)/(na*nb)
}

// buildSnapshot aggregates transactions into one feature row per user:
// amount mean, std and count, a one-hot of the user's most used currency,
// and per-category transaction counts. Columns are then standardized.
func buildSnapshot(txs []analytics.Transaction) *snapshot {
	type agg struct {
		amounts    []float64
		currencies map[string]int
		categories map[string]int
	}
	byUser := make(map[int64]*agg)
	currencySet := make(map[string]struct{})
	categorySet := make(map[string]struct{})

	for _, tx := range txs {
		a := byUser[tx.UserID]
		if a == nil {
			a = &agg{currencies: make(map[string]int), categories: make(map[string]int)}
			byUser[tx.UserID] = a
		}
		a.amounts = append(a.amounts, tx.Amount)
		a.currencies[tx.Currency]++
		a.categories[tx.Category]++
		currencySet[tx.Currency] = struct{}{}
		categorySet[tx.Category] = struct{}{}
	}

	users := make([]int64, 0, len(byUser))
	for id := range byUser {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	currencies := sortedKeys(currencySet)
	categories := sortedKeys(categorySet)

	cols := 3 + len(currencies) + len(categories)
	matrix := mat.NewDense(max(len(users), 1), max(cols, 1), nil)

	for r, id := range users {
		a := byUser[id]
		mean, std := stat.MeanStdDev(a.amounts, nil)
		if len(a.amounts) < 2 {
			std = 0
		}
		matrix.Set(r, 0, mean)
		matrix.Set(r, 1, std)
		matrix.Set(r, 2, float64(len(a.amounts)))

		mode := mostUsed(a.currencies)
		for ci, cur := range currencies {
			if cur == mode {
				matrix.Set(r, 3+ci, 1)
			}
		}
		for ci, cat := range categories {
			matrix.Set(r, 3+len(currencies)+ci, float64(a.categories[cat]))
		}
	}

	standardize(matrix, len(users), cols)

	index := make(map[int64]int, len(users))
	for r, id := range users {
		index[id] = r
	}
	return &snapshot{users: users, index: index, matrix: matrix}
}

// mostUsed picks the highest-count key, ties broken lexicographically.
func mostUsed(counts map[string]int) string {
	best := ""
	bestCount := -1
	for k, n := range counts {
		if n > bestCount || (n == bestCount && k < best) {
			best, bestCount = k, n
		}
	}
	return best
}

// standardize z-scores each column in place. Constant columns become zero.
func standardize(m *mat.Dense, rows, cols int) {
	if rows < 2 {
		m.Zero()
		return
	}
	col := make([]float64, rows)
	for c := 0; c < cols; c++ {
		mat.Col(col, c, m)
		mean, std := stat.MeanStdDev(col, nil)
		for r := 0; r < rows; r++ {
			if std == 0 {
				m.Set(r, c, 0)
				continue
			}
			m.Set(r, c, (col[r]-mean)/std)
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
