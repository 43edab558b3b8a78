// Package session owns the per-user browsing contexts over the shared dataset.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/kailas-cloud/flagdeck/internal/domain"
	"github.com/kailas-cloud/flagdeck/internal/domain/criteria"
	domflag "github.com/kailas-cloud/flagdeck/internal/domain/flag"
	"github.com/kailas-cloud/flagdeck/internal/domain/record"
	"github.com/kailas-cloud/flagdeck/internal/domain/theme"
	logpkg "github.com/kailas-cloud/flagdeck/internal/logger"
	"github.com/kailas-cloud/flagdeck/internal/metrics"
	"github.com/kailas-cloud/flagdeck/internal/usecase/filter"
)

// Defaults applied by New when Config leaves a field zero.
const (
	DefaultIdleTTL         = 30 * time.Minute
	DefaultCleanupInterval = time.Minute
)

// Config holds session registry settings.
type Config struct {
	IdleTTL         time.Duration
	CleanupInterval time.Duration
	MaxSessions     int // 0 = unlimited
}

// Service owns the per-user session contexts over a shared, immutable dataset.
// Each session is mutated only under its own lock; sessions never share mutable state.
type Service struct {
	dataset     record.Dataset
	sessions    *gocache.Cache
	maxSessions int
	createMu    sync.Mutex
	now         func() time.Time
	newID       func() string
}

// New creates a session service. Sessions expire after cfg.IdleTTL without access.
func New(ds record.Dataset, cfg Config) *Service {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}

	c := gocache.New(cfg.IdleTTL, cfg.CleanupInterval)
	c.OnEvicted(func(string, any) {
		metrics.SessionsActive.Dec()
	})

	return &Service{
		dataset:     ds,
		sessions:    c,
		maxSessions: cfg.MaxSessions,
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
}

// Dataset returns the shared dataset.
func (s *Service) Dataset() record.Dataset { return s.dataset }

// Active returns the number of live sessions.
func (s *Service) Active() int { return s.sessions.ItemCount() }

// Create starts a session with default criteria, an empty flagged set and the light theme.
func (s *Service) Create(ctx context.Context) (Snapshot, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	if s.maxSessions > 0 && s.sessions.ItemCount() >= s.maxSessions {
		return Snapshot{}, domain.ErrSessionLimit
	}

	sess := newSession(s.newID(), s.dataset, s.now())
	if err := s.sessions.Add(sess.id, sess, gocache.DefaultExpiration); err != nil {
		return Snapshot{}, fmt.Errorf("register session: %w", err)
	}
	metrics.SessionsActive.Inc()

	logpkg.FromContext(ctx).Info("session created",
		zap.String("session_id", sess.id),
		zap.Int("dataset_size", s.dataset.Len()),
	)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot(), nil
}

// Get returns the session state.
func (s *Service) Get(_ context.Context, id string) (Snapshot, error) {
	var snap Snapshot
	err := s.with(id, func(sess *session) error {
		snap = sess.snapshot()
		return nil
	})
	return snap, err
}

// Delete ends a session.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, ok := s.sessions.Get(id); !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	s.sessions.Delete(id)
	logpkg.FromContext(ctx).Info("session deleted", zap.String("session_id", id))
	return nil
}

// Options returns the distinct selector values of the dataset.
func (s *Service) Options(_ context.Context, id string) (record.Options, error) {
	if err := s.with(id, func(*session) error { return nil }); err != nil {
		return record.Options{}, err
	}
	return s.dataset.Options(), nil
}

// ApplyCriteria replaces the session criteria wholesale and recomputes the view.
func (s *Service) ApplyCriteria(ctx context.Context, id string, c criteria.Criteria) (View, error) {
	if err := c.Validate(); err != nil {
		return View{}, fmt.Errorf("%w: %w", domain.ErrInvalidCriteria, err)
	}

	var v View
	err := s.with(id, func(sess *session) error {
		sess.criteria = c
		sess.view = filter.Apply(s.dataset, c)
		v = View{Criteria: c, Records: cloneRecords(sess.view)}
		return nil
	})
	if err != nil {
		return View{}, err
	}

	logpkg.FromContext(ctx).Debug("criteria applied",
		zap.Int("view_size", len(v.Records)),
	)
	return v, nil
}

// View returns the current filtered view.
func (s *Service) View(_ context.Context, id string) (View, error) {
	var v View
	err := s.with(id, func(sess *session) error {
		v = View{Criteria: sess.criteria, Records: cloneRecords(sess.view)}
		return nil
	})
	return v, err
}

// Record returns a dataset record by row id, regardless of the current view.
func (s *Service) Record(_ context.Context, id string, rowID int) (record.Record, error) {
	if err := s.with(id, func(*session) error { return nil }); err != nil {
		return record.Record{}, err
	}
	r, ok := s.dataset.At(rowID)
	if !ok {
		return record.Record{}, fmt.Errorf("%w: row %d", domain.ErrRecordNotFound, rowID)
	}
	return r, nil
}

// Flag adds the record with rowID to the session's flagged set.
// A record whose field values are already flagged yields AlreadyFlagged, not an error.
func (s *Service) Flag(ctx context.Context, id string, rowID int) (domflag.Result, record.Record, error) {
	r, ok := s.dataset.At(rowID)
	if !ok {
		if err := s.with(id, func(*session) error { return nil }); err != nil {
			return "", record.Record{}, err
		}
		return "", record.Record{}, fmt.Errorf("%w: row %d", domain.ErrRecordNotFound, rowID)
	}

	var res domflag.Result
	var size int
	err := s.with(id, func(sess *session) error {
		res = sess.flags.Add(r)
		size = sess.flags.Len()
		return nil
	})
	if err != nil {
		return "", record.Record{}, err
	}

	metrics.FlagsTotal.WithLabelValues(string(res)).Inc()
	logpkg.FromContext(ctx).Info("flag action",
		zap.Int("row_id", rowID),
		zap.String("result", string(res)),
		zap.Int("flagged", size),
	)
	return res, r, nil
}

// Flags returns the flagged records in flag order.
func (s *Service) Flags(_ context.Context, id string) ([]record.Record, error) {
	var out []record.Record
	err := s.with(id, func(sess *session) error {
		out = sess.flags.Records()
		return nil
	})
	return out, err
}

// Export serializes the flagged set as CSV.
// An empty flagged set returns domain.ErrNothingFlagged and no payload.
func (s *Service) Export(ctx context.Context, id string) ([]byte, int, error) {
	var (
		data  []byte
		count int
	)
	err := s.with(id, func(sess *session) error {
		count = sess.flags.Len()
		if count == 0 {
			return domain.ErrNothingFlagged
		}
		var err error
		data, err = sess.flags.Export()
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNothingFlagged) {
			metrics.ExportsTotal.WithLabelValues("empty").Inc()
		}
		return nil, 0, err
	}

	metrics.ExportsTotal.WithLabelValues("ok").Inc()
	logpkg.FromContext(ctx).Info("flagged records exported",
		zap.Int("records", count),
		zap.Int("bytes", len(data)),
	)
	return data, count, nil
}

// SetTheme stores the display preference. Cosmetic only.
func (s *Service) SetTheme(_ context.Context, id string, t theme.Theme) (Snapshot, error) {
	if t != theme.Light && t != theme.Dark {
		return Snapshot{}, fmt.Errorf("%w: %q", domain.ErrInvalidTheme, string(t))
	}
	var snap Snapshot
	err := s.with(id, func(sess *session) error {
		sess.theme = t
		snap = sess.snapshot()
		return nil
	})
	return snap, err
}

// with looks up a session, refreshes its idle TTL and runs fn under its lock.
func (s *Service) with(id string, fn func(*session) error) error {
	v, ok := s.sessions.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	sess, ok := v.(*session)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	// Replace fails once Delete or the janitor has dropped the key, so a
	// removed session is never re-inserted behind the gauge's back.
	if err := s.sessions.Replace(id, sess, gocache.DefaultExpiration); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess)
}

func cloneRecords(in []record.Record) []record.Record {
	out := make([]record.Record, len(in))
	copy(out, in)
	return out
}
