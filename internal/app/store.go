package app

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hylla/timebox/internal/domain"
)

// DefaultStorageKey is the namespaced key the activity list is stored under.
const DefaultStorageKey = "timebox.activities"

// Store owns the ordered activity list and the single active activity.
// Every mutation and tick runs under one lock.
type Store struct {
	mu sync.Mutex

	blobs    BlobStore
	key      string
	idGen    IDGenerator
	clock    Clock
	notifier Notifier
	logger   Logger
	loc      *time.Location

	activities  []domain.Activity
	activeID    string
	timer       Timer
	lastSaveErr error
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator overrides activity id generation.
func WithIDGenerator(idGen IDGenerator) Option {
	return func(s *Store) {
		if idGen != nil {
			s.idGen = idGen
		}
	}
}

// WithNotifier sets the overtime notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(logger Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStorageKey overrides the blob key.
func WithStorageKey(key string) Option {
	return func(s *Store) {
		if key = strings.TrimSpace(key); key != "" {
			s.key = key
		}
	}
}

// WithLocation sets the zone used to read edited timestamps that carry no offset.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewStore constructs an empty store. A nil BlobStore keeps everything in memory.
func NewStore(blobs BlobStore, opts ...Option) *Store {
	s := &Store{
		blobs:    blobs,
		key:      DefaultStorageKey,
		idGen:    newActivityID,
		clock:    time.Now,
		notifier: nopNotifier{},
		logger:   log.New(io.Discard),
		loc:      time.Local,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// newActivityID returns a time-ordered UUID so ids sort by creation time.
func newActivityID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// LoadResult summarizes what Load recovered from storage.
type LoadResult struct {
	Loaded    int
	Dropped   int
	Restored  string
	Recovered error
}

// Load replaces the in-memory state with the persisted blob. Unreadable or corrupt data resets to an
// empty collection; the cause is reported in LoadResult.Recovered and never returned as a failure.
// The in-progress record, if any, becomes the active activity again with its countdown measured
// from the wall clock.
func (s *Store) Load(ctx context.Context) LoadResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.activities = nil
	s.activeID = ""

	var res LoadResult
	if s.blobs == nil {
		return res
	}
	data, err := s.blobs.LoadBlob(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrBlobNotFound) {
			res.Recovered = errors.Join(domain.ErrPersistence, err)
			s.logger.Warn("activity storage unreadable, starting empty", "key", s.key, "err", err)
		}
		return res
	}
	activities, dropped, err := DecodeSnapshot(data)
	if err != nil {
		res.Recovered = err
		s.logger.Warn("activity storage corrupt, starting empty", "key", s.key, "err", err)
		return res
	}
	if dropped > 0 {
		s.logger.Warn("dropped invalid stored activities", "key", s.key, "count", dropped)
	}

	now := s.clock()
	for idx := range activities {
		a := &activities[idx]
		if !a.InProgress() {
			continue
		}
		if s.activeID != "" {
			// Only one record may run; older stray ones are closed without inventing an end time.
			a.Status = domain.StatusCompleted
			a.RemainingSeconds = 0
			continue
		}
		a.RemainingSeconds = a.RemainingAt(now)
		s.activeID = a.ID
		s.timer.start(a.RemainingSeconds)
	}
	s.activities = activities
	res.Loaded = len(activities)
	res.Dropped = dropped
	res.Restored = s.activeID
	return res
}

// StartActivity begins a new activity and its countdown.
func (s *Store) StartActivity(ctx context.Context, name string, estimatedMinutes int) (domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx, name, estimatedMinutes)
}

// StartActivityInput parses raw estimate text (a positive whole number of minutes) and starts
// the activity.
func (s *Store) StartActivityInput(ctx context.Context, name, rawMinutes string) (domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID != "" {
		return domain.Activity{}, domain.ErrActivityActive
	}
	if strings.TrimSpace(name) == "" {
		return domain.Activity{}, domain.ErrInvalidName
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(rawMinutes))
	if err != nil {
		return domain.Activity{}, domain.ErrInvalidEstimate
	}
	return s.startLocked(ctx, name, minutes)
}

func (s *Store) startLocked(ctx context.Context, name string, estimatedMinutes int) (domain.Activity, error) {
	if s.activeID != "" {
		return domain.Activity{}, domain.ErrActivityActive
	}
	activity, err := domain.NewActivity(s.idGen(), name, estimatedMinutes, s.clock())
	if err != nil {
		return domain.Activity{}, err
	}
	if s.indexLocked(activity.ID) >= 0 {
		return domain.Activity{}, domain.ErrInvalidID
	}
	s.activities = append([]domain.Activity{activity}, s.activities...)
	s.activeID = activity.ID
	s.timer.start(activity.RemainingSeconds)
	s.persistLocked(ctx)
	return activity.Clone(), nil
}

// CompleteActivity stops the active activity and records its actual duration.
func (s *Store) CompleteActivity(ctx context.Context) (domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(s.activeID)
	if s.activeID == "" || idx < 0 {
		return domain.Activity{}, domain.ErrNoActiveActivity
	}
	s.activities[idx].Complete(s.clock())
	s.finishLocked()
	s.persistLocked(ctx)
	return s.activities[idx].Clone(), nil
}

// DeleteActivity removes a record entirely. The active activity cannot be deleted.
func (s *Store) DeleteActivity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id = strings.TrimSpace(id)
	if id != "" && id == s.activeID {
		return domain.ErrDeleteActive
	}
	idx := s.indexLocked(id)
	if idx < 0 {
		return domain.ErrActivityNotFound
	}
	s.activities = append(s.activities[:idx], s.activities[idx+1:]...)
	s.persistLocked(ctx)
	return nil
}

// Snapshot returns a copy of every record, most recent first.
func (s *Store) Snapshot() []domain.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		out = append(out, a.Clone())
	}
	return out
}

// Active returns a copy of the active activity.
func (s *Store) Active() (domain.Activity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(s.activeID)
	if s.activeID == "" || idx < 0 {
		return domain.Activity{}, false
	}
	return s.activities[idx].Clone(), true
}

// Get returns a copy of one record.
func (s *Store) Get(id string) (domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(strings.TrimSpace(id))
	if idx < 0 {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	return s.activities[idx].Clone(), nil
}

// TimerState returns the countdown phase.
func (s *Store) TimerState() TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer.State()
}

// Generation returns the stamp the tick driver must attach to ticks for the running countdown.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer.Generation()
}

// Tick advances the countdown by one second. Ticks carrying a stale generation, or arriving when
// nothing is active, do nothing.
func (s *Store) Tick(gen uint64) TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == "" || s.timer.State() == TimerIdle || gen != s.timer.Generation() {
		return TickResult{}
	}
	idx := s.indexLocked(s.activeID)
	if idx < 0 {
		return TickResult{}
	}
	a := &s.activities[idx]
	a.RemainingSeconds--
	entered := s.timer.observe(a.RemainingSeconds)
	if entered {
		alertGen := s.timer.Generation()
		s.notifier.Overtime(Alert{
			ActivityID: a.ID,
			Name:       a.Name,
			Generation: alertGen,
			Live:       func() bool { return s.AlertLive(alertGen) },
		})
	}
	return TickResult{
		Applied:          true,
		ActivityID:       a.ID,
		State:            s.timer.State(),
		RemainingSeconds: a.RemainingSeconds,
		EnteredOvertime:  entered,
	}
}

// AlertLive reports whether an alert raised for gen still belongs to the running overtime.
func (s *Store) AlertLive(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID != "" && s.timer.State() == TimerOvertime && s.timer.Generation() == gen
}

// StopTimer halts ticking and pending notifications without completing the activity.
// It is safe to call repeatedly.
func (s *Store) StopTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// LastSaveError returns the most recent persistence failure, or nil after a successful save.
func (s *Store) LastSaveError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaveErr
}

// stopLocked invalidates the current generation and any scheduled alert continuations.
func (s *Store) stopLocked() {
	s.timer.stop()
	s.notifier.Cancel()
}

// finishLocked is the single termination path for the active activity.
func (s *Store) finishLocked() {
	s.stopLocked()
	s.activeID = ""
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for idx := range s.activities {
		if s.activities[idx].ID == id {
			return idx
		}
	}
	return -1
}

// persistLocked writes the whole list. Failures are logged and kept for LastSaveError; the
// in-memory mutation stands either way.
func (s *Store) persistLocked(ctx context.Context) {
	if s.blobs == nil {
		return
	}
	data, err := EncodeSnapshot(s.activities, s.clock())
	if err == nil {
		err = s.blobs.SaveBlob(ctx, s.key, data)
	}
	if err != nil {
		s.lastSaveErr = err
		s.logger.Error("persist activities failed", "key", s.key, "err", err)
		return
	}
	s.lastSaveErr = nil
}
