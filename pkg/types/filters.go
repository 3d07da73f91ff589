package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SortField selects the ordering applied to search results
type SortField string

const (
	SortRelevance     SortField = "relevance"
	SortDateCreated   SortField = "date_created"
	SortAlphabetical  SortField = "alphabetical"
	SortStudyProgress SortField = "study_progress"
	SortLastStudied   SortField = "last_studied"
)

// SortOrder selects ascending or descending result order
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DateRange bounds results by card creation time (inclusive on both ends)
type DateRange struct {
	Start time.Time
	End   time.Time
}

// SearchFilters narrows and orders search results.
//
// FolderID is tri-state: FilterFolder false means no folder filtering at
// all; FilterFolder true with a nil FolderID keeps only cards that belong
// to no folder; FilterFolder true with a non-nil FolderID keeps only cards
// in that folder.
type SearchFilters struct {
	FilterFolder  bool
	FolderID      *int64
	DateRange     *DateRange
	StudyStatuses []StudyStatus
	SortBy        SortField
	SortOrder     SortOrder
}

// DefaultFilters returns filters with no narrowing and relevance ordering
func DefaultFilters() SearchFilters {
	return SearchFilters{
		SortBy:    SortRelevance,
		SortOrder: SortDesc,
	}
}

// Validate checks filter consistency
func (f SearchFilters) Validate() error {
	if f.DateRange != nil && f.DateRange.Start.After(f.DateRange.End) {
		return fmt.Errorf("%w: date range start after end", ErrInvalidFilters)
	}

	switch f.SortBy {
	case SortRelevance, SortDateCreated, SortAlphabetical, SortStudyProgress, SortLastStudied, "":
	default:
		return fmt.Errorf("%w: unknown sort field %q", ErrInvalidFilters, f.SortBy)
	}

	switch f.SortOrder {
	case SortAsc, SortDesc, "":
	default:
		return fmt.Errorf("%w: unknown sort order %q", ErrInvalidFilters, f.SortOrder)
	}

	return nil
}

// Key returns a deterministic serialization of the filters. Semantically
// identical filter values always produce the same key, so it doubles as the
// cache-key component and the history deduplication key.
func (f SearchFilters) Key() string {
	var b strings.Builder

	b.WriteString("folder:")
	if !f.FilterFolder {
		b.WriteString("any")
	} else if f.FolderID == nil {
		b.WriteString("none")
	} else {
		fmt.Fprintf(&b, "%d", *f.FolderID)
	}

	b.WriteString("|range:")
	if f.DateRange != nil {
		fmt.Fprintf(&b, "%d-%d", f.DateRange.Start.Unix(), f.DateRange.End.Unix())
	}

	b.WriteString("|status:")
	if len(f.StudyStatuses) > 0 {
		statuses := make([]string, len(f.StudyStatuses))
		for i, s := range f.StudyStatuses {
			statuses[i] = string(s)
		}
		sort.Strings(statuses)
		b.WriteString(strings.Join(statuses, ","))
	}

	fmt.Fprintf(&b, "|sort:%s:%s", f.SortBy, f.SortOrder)

	return b.String()
}
