package session

import (
	"sync"
	"time"

	"github.com/kailas-cloud/flagdeck/internal/domain/criteria"
	"github.com/kailas-cloud/flagdeck/internal/domain/record"
	"github.com/kailas-cloud/flagdeck/internal/domain/theme"
	"github.com/kailas-cloud/flagdeck/internal/usecase/filter"
	"github.com/kailas-cloud/flagdeck/internal/usecase/flag"
)

// session is one user's state. All fields are guarded by mu.
type session struct {
	mu        sync.Mutex
	id        string
	createdAt time.Time
	criteria  criteria.Criteria
	view      []record.Record
	flags     *flag.Store
	theme     theme.Theme
}

func newSession(id string, ds record.Dataset, now time.Time) *session {
	c := criteria.Default()
	return &session{
		id:        id,
		createdAt: now,
		criteria:  c,
		view:      filter.Apply(ds, c),
		flags:     flag.NewStore(),
		theme:     theme.Light,
	}
}

// snapshot copies the observable state. Caller must hold mu.
func (s *session) snapshot() Snapshot {
	return Snapshot{
		ID:        s.id,
		CreatedAt: s.createdAt,
		Criteria:  s.criteria,
		Theme:     s.theme,
		ViewSize:  len(s.view),
		Flagged:   s.flags.Len(),
	}
}

// Snapshot is a read-only view of a session's state.
type Snapshot struct {
	ID        string
	CreatedAt time.Time
	Criteria  criteria.Criteria
	Theme     theme.Theme
	ViewSize  int
	Flagged   int
}

// View is a filtered view together with the criteria that produced it.
type View struct {
	Criteria criteria.Criteria
	Records  []record.Record
}

// Paginate returns up to limit records following the record whose row id equals cursor.
// A nil cursor starts at the beginning; an unknown cursor yields an empty page.
// next is the row id to pass as the following cursor, nil when the view is exhausted.
func Paginate(view []record.Record, cursor *int, limit int) (page []record.Record, next *int) {
	start := 0
	if cursor != nil {
		start = len(view)
		for i, r := range view {
			if r.RowID() == *cursor {
				start = i + 1
				break
			}
		}
	}

	end := start + limit
	if limit <= 0 || end > len(view) {
		end = len(view)
	}

	page = view[start:end]
	if end < len(view) && len(page) > 0 {
		n := page[len(page)-1].RowID()
		next = &n
	}
	return page, next
}
