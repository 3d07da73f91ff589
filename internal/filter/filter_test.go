package filter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flashdeck/pkg/types"
)

// mockTracker implements StudyTracker for testing
type mockTracker struct {
	statuses map[int64]types.StudyStatus
	progress map[int64]float64
	studied  map[int64]time.Time
}

func (m *mockTracker) Status(cardID int64) types.StudyStatus {
	if s, ok := m.statuses[cardID]; ok {
		return s
	}
	return types.StatusNew
}

func (m *mockTracker) Progress(cardID int64) float64 {
	return m.progress[cardID]
}

func (m *mockTracker) LastStudied(cardID int64) time.Time {
	return m.studied[cardID]
}

func result(id int64, word string, score int, createdAt time.Time, folderID *int64) *types.SearchResult {
	return &types.SearchResult{
		Card: &types.Card{
			ID:        id,
			Word:      word,
			FolderID:  folderID,
			CreatedAt: createdAt,
		},
		RelevanceScore: score,
		MatchedFields:  []types.FieldTag{types.FieldWord},
	}
}

func TestFolderFilter(t *testing.T) {
	now := time.Now()
	folder5 := int64(5)
	folder9 := int64(9)

	results := []*types.SearchResult{
		result(1, "a", 10, now, &folder5),
		result(2, "b", 10, now, &folder9),
		result(3, "c", 10, now, nil),
	}

	engine := NewEngine()

	t.Run("no folder filter keeps everything", func(t *testing.T) {
		out := engine.Apply(results, types.DefaultFilters())
		assert.Len(t, out, 3)
	})

	t.Run("specific folder", func(t *testing.T) {
		filters := types.DefaultFilters()
		filters.FilterFolder = true
		filters.FolderID = &folder5

		out := engine.Apply(results, filters)
		require.Len(t, out, 1)
		assert.Equal(t, int64(1), out[0].Card.ID)
	})

	t.Run("null folder keeps only unfiled cards", func(t *testing.T) {
		filters := types.DefaultFilters()
		filters.FilterFolder = true

		out := engine.Apply(results, filters)
		require.Len(t, out, 1)
		assert.Equal(t, int64(3), out[0].Card.ID)
	})
}

func TestDateRangeFilterInclusive(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	results := []*types.SearchResult{
		result(1, "before", 10, base.Add(-time.Hour), nil),
		result(2, "start", 10, base, nil),
		result(3, "end", 10, base.Add(24*time.Hour), nil),
		result(4, "after", 10, base.Add(25*time.Hour), nil),
	}

	filters := types.DefaultFilters()
	filters.DateRange = &types.DateRange{Start: base, End: base.Add(24 * time.Hour)}

	out := NewEngine().Apply(results, filters)
	require.Len(t, out, 2)
	assert.Equal(t, int64(2), out[1].Card.ID) // relevance ties break newest first
	assert.Equal(t, int64(3), out[0].Card.ID)
}

func TestStudyStatusFilter(t *testing.T) {
	now := time.Now()
	results := []*types.SearchResult{
		result(1, "a", 10, now, nil),
		result(2, "b", 10, now, nil),
		result(3, "c", 10, now, nil),
	}

	tracker := &mockTracker{
		statuses: map[int64]types.StudyStatus{
			1: types.StatusLearned,
			2: types.StatusLearning,
		},
	}

	filters := types.DefaultFilters()
	filters.StudyStatuses = []types.StudyStatus{types.StatusLearned}

	out := NewEngine(WithTracker(tracker)).Apply(results, filters)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].Card.ID)
}

func TestStudyStatusFilterWithoutTracker(t *testing.T) {
	// Without a tracker every card counts as new
	now := time.Now()
	results := []*types.SearchResult{result(1, "a", 10, now, nil)}

	filters := types.DefaultFilters()
	filters.StudyStatuses = []types.StudyStatus{types.StatusNew}
	assert.Len(t, NewEngine().Apply(results, filters), 1)

	filters.StudyStatuses = []types.StudyStatus{types.StatusLearned}
	assert.Len(t, NewEngine().Apply(results, filters), 0)
}

func TestSortRelevance(t *testing.T) {
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := old.Add(48 * time.Hour)

	results := []*types.SearchResult{
		result(1, "low", 10, recent, nil),
		result(2, "high", 100, old, nil),
		result(3, "tie-old", 50, old, nil),
		result(4, "tie-new", 50, recent, nil),
	}

	out := NewEngine().Apply(results, types.DefaultFilters())
	require.Len(t, out, 4)
	assert.Equal(t, int64(2), out[0].Card.ID)
	assert.Equal(t, int64(4), out[1].Card.ID) // tie broken by newer createdAt
	assert.Equal(t, int64(3), out[2].Card.ID)
	assert.Equal(t, int64(1), out[3].Card.ID)
}

func TestSortDateCreated(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	results := []*types.SearchResult{
		result(1, "mid", 10, base.Add(time.Hour), nil),
		result(2, "new", 10, base.Add(2*time.Hour), nil),
		result(3, "old", 10, base, nil),
	}

	filters := types.DefaultFilters()
	filters.SortBy = types.SortDateCreated
	filters.SortOrder = types.SortAsc

	out := NewEngine().Apply(results, filters)
	assert.Equal(t, []int64{3, 1, 2}, ids(out))

	filters.SortOrder = types.SortDesc
	out = NewEngine().Apply(results, filters)
	assert.Equal(t, []int64{2, 1, 3}, ids(out))
}

func TestSortAlphabetical(t *testing.T) {
	now := time.Now()
	results := []*types.SearchResult{
		result(1, "cherry", 10, now, nil),
		result(2, "apple", 10, now, nil),
		result(3, "Banana", 10, now, nil),
	}

	filters := types.DefaultFilters()
	filters.SortBy = types.SortAlphabetical
	filters.SortOrder = types.SortAsc

	out := NewEngine().Apply(results, filters)
	assert.Equal(t, []int64{2, 3, 1}, ids(out))
}

func TestSortAlphabeticalConcurrent(t *testing.T) {
	// One engine shared by overlapping searches, as the orchestrator uses it
	now := time.Now()
	results := []*types.SearchResult{
		result(1, "cherry", 10, now, nil),
		result(2, "apple", 10, now, nil),
		result(3, "Banana", 10, now, nil),
		result(4, "date", 10, now, nil),
	}

	filters := types.DefaultFilters()
	filters.SortBy = types.SortAlphabetical
	filters.SortOrder = types.SortAsc

	engine := NewEngine()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				out := engine.Apply(results, filters)
				if !assert.Equal(t, []int64{2, 3, 1, 4}, ids(out)) {
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestSortStudyProgress(t *testing.T) {
	now := time.Now()
	results := []*types.SearchResult{
		result(1, "a", 10, now, nil),
		result(2, "b", 10, now, nil),
	}

	filters := types.DefaultFilters()
	filters.SortBy = types.SortStudyProgress
	filters.SortOrder = types.SortDesc

	t.Run("no-op without tracker", func(t *testing.T) {
		out := NewEngine().Apply(results, filters)
		assert.Equal(t, []int64{1, 2}, ids(out))
	})

	t.Run("orders by tracker progress", func(t *testing.T) {
		tracker := &mockTracker{progress: map[int64]float64{1: 0.2, 2: 0.9}}
		out := NewEngine(WithTracker(tracker)).Apply(results, filters)
		assert.Equal(t, []int64{2, 1}, ids(out))
	})
}

func ids(results []*types.SearchResult) []int64 {
	out := make([]int64, len(results))
	for i, r := range results {
		out[i] = r.Card.ID
	}
	return out
}
