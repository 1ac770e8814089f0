package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/2beens/pushupjourney/internal/notify"
	"github.com/2beens/pushupjourney/internal/store"
	"github.com/2beens/pushupjourney/internal/telemetry/metrics"
	"github.com/2beens/pushupjourney/internal/telemetry/tracing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=progress

// ProgressKey is the store key of the persisted progress snapshot.
const ProgressKey = "pushup-journey-data"

var ErrInvalidCount = errors.New("count must be a non-negative integer")

type blobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

type dispatcher interface {
	Notify(ctx context.Context, n notify.Notification) error
}

type settingsLoader interface {
	Load(ctx context.Context) notify.Settings
}

// State is the view of the progress handed to presentation adapters.
type State struct {
	Progress        *UserProgress    `json:"progress"`
	Selected        WorkoutDay       `json:"selected"`
	LevelName       string           `json:"levelName"`
	AvailableJokers int              `json:"availableJokers"`
	Achievements    []Achievement    `json:"achievements"`
	NewlyUnlocked   []Achievement    `json:"newlyUnlocked,omitempty"`
	Reconciled      *ReconcileResult `json:"reconciled,omitempty"`
	Changed         bool             `json:"changed"`
}

type ServiceParams struct {
	Store      blobStore
	Dispatcher dispatcher
	Settings   settingsLoader
	Schedule   *Schedule
	Now        func() time.Time
	Metrics    *metrics.Manager
}

// Service owns the in-memory progress of the single user and applies intents to it.
// Every mutation is persisted; persistence and notification failures are logged and ignored.
type Service struct {
	engine     *Engine
	store      blobStore
	dispatcher dispatcher
	settings   settingsLoader
	now        func() time.Time
	metrics    *metrics.Manager

	mu           sync.Mutex
	progress     *UserProgress
	selectedDay  int
	achievements []Achievement
}

func NewService(params ServiceParams) *Service {
	s := &Service{
		engine:     NewEngine(params.Schedule),
		store:      params.Store,
		dispatcher: params.Dispatcher,
		settings:   params.Settings,
		now:        params.Now,
		metrics:    params.Metrics,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.metrics == nil {
		s.metrics = metrics.NewManager("pushups", "progress", prometheus.NewRegistry())
	}
	return s
}

func (s *Service) Schedule() *Schedule {
	return s.engine.Schedule()
}

// Load reads the stored progress and catches up on calendar days that passed since the last run.
func (s *Service) Load(ctx context.Context) State {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress.load")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.loadLocked(ctx)
	span.SetAttributes(
		attribute.Int("days.elapsed", res.DaysElapsed),
		attribute.Int("jokers.consumed", res.JokersConsumed),
		attribute.Bool("streak.reset", res.StreakReset),
	)

	state := s.stateLocked()
	state.Reconciled = &res
	return state
}

// State returns the current snapshot, loading it first if needed.
func (s *Service) State(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx)
	return s.stateLocked()
}

func (s *Service) SetCount(ctx context.Context, count int) (_ State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress.setcount")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if count < 0 {
		return State{}, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}

	return s.mutate(ctx, "set_count", func(p *UserProgress) bool {
		return s.engine.RecordCount(p, count)
	}), nil
}

func (s *Service) ToggleCompleted(ctx context.Context) State {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress.togglecompleted")
	defer span.End()

	return s.mutate(ctx, "toggle_completed", s.engine.ToggleCompleted)
}

func (s *Service) ToggleJoker(ctx context.Context) State {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress.togglejoker")
	defer span.End()

	return s.mutate(ctx, "toggle_joker", s.engine.ToggleJoker)
}

// AdvanceDay moves to the next program day once the active one is completed.
// It is the only interactive intent that re-derives achievements.
func (s *Service) AdvanceDay(ctx context.Context) State {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress.advance")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx)

	finished, ok := s.engine.AdvanceDay(s.progress, s.now())
	s.countIntent("advance_day", ok)
	if !ok {
		return s.stateLocked()
	}
	s.selectedDay = s.progress.CurrentDay
	s.persistLocked(ctx)

	s.notify(ctx, notify.DayCompletedNotification(finished.Day, finished.Actual))
	unlocked := s.refreshAchievementsLocked(ctx, true)

	state := s.stateLocked()
	state.Changed = true
	state.NewlyUnlocked = unlocked
	return state
}

// Navigate selects a past or the active day for display. Progress is not modified.
func (s *Service) Navigate(ctx context.Context, dayNumber int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx)
	if _, err := NavigateTo(s.progress, dayNumber); err != nil {
		return State{}, err
	}
	s.selectedDay = dayNumber
	return s.stateLocked(), nil
}

// Day returns a single day without changing the selection.
func (s *Service) Day(ctx context.Context, dayNumber int) (WorkoutDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx)
	return NavigateTo(s.progress, dayNumber)
}

func (s *Service) Achievements(ctx context.Context) []Achievement {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx)
	return append([]Achievement(nil), s.achievements...)
}

func (s *Service) LevelTable() []LevelInfo {
	return s.engine.Schedule().LevelTable()
}

// WorkoutDoneToday reports whether the active day is already completed.
func (s *Service) WorkoutDoneToday(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx)
	day := s.progress.ActiveDay()
	return day != nil && day.Completed
}

func (s *Service) Export(ctx context.Context) (_ []byte, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress.export")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx)
	return Export(s.progress)
}

// ExportFileName is the suggested file name for an export taken now.
func (s *Service) ExportFileName() string {
	return ExportFileName(s.now())
}

// Import replaces the progress with the exported payload, then catches up like a fresh load.
// An invalid payload leaves the current progress untouched.
func (s *Service) Import(ctx context.Context, data []byte) (_ State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress.import")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	imported, err := Import(data)
	if err != nil {
		s.countIntent("import", false)
		return State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress = imported
	s.selectedDay = imported.CurrentDay
	s.persistLocked(ctx)
	res := s.reconcileLocked(ctx)
	s.refreshAchievementsLocked(ctx, false)
	s.countIntent("import", true)

	state := s.stateLocked()
	state.Reconciled = &res
	state.Changed = true
	return state, nil
}

// Reset wipes both stored blobs and starts over at day 1 with default notification settings.
func (s *Service) Reset(ctx context.Context) State {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress.reset")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, ProgressKey, notify.SettingsKey); err != nil {
		log.Errorf("reset, delete stored data: %s", err)
		s.metrics.CounterPersistFailures.WithLabelValues("delete").Inc()
	}

	s.initLocked(ctx)
	s.refreshAchievementsLocked(ctx, false)
	s.countIntent("reset", true)

	state := s.stateLocked()
	state.Changed = true
	return state
}

func (s *Service) mutate(ctx context.Context, kind string, apply func(p *UserProgress) bool) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked(ctx)

	changed := apply(s.progress)
	s.countIntent(kind, changed)
	if changed {
		s.selectedDay = s.progress.CurrentDay
		s.persistLocked(ctx)
	}

	state := s.stateLocked()
	state.Changed = changed
	return state
}

func (s *Service) ensureLoadedLocked(ctx context.Context) {
	if s.progress == nil {
		s.loadLocked(ctx)
	}
}

func (s *Service) loadLocked(ctx context.Context) ReconcileResult {
	p, err := s.readLocked(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Debugln("no stored progress, starting at day 1")
		s.initLocked(ctx)
	case err != nil:
		log.Errorf("load progress, starting over: %s", err)
		s.metrics.CounterPersistFailures.WithLabelValues("load").Inc()
		s.initLocked(ctx)
	default:
		s.progress = p
		s.selectedDay = p.CurrentDay
	}

	res := s.reconcileLocked(ctx)
	s.refreshAchievementsLocked(ctx, false)
	return res
}

func (s *Service) readLocked(ctx context.Context) (*UserProgress, error) {
	raw, err := s.store.Get(ctx, ProgressKey)
	if err != nil {
		return nil, err
	}
	p, err := Import(raw)
	if err != nil {
		return nil, fmt.Errorf("decode stored progress: %w", err)
	}
	if err := p.Validate(); err != nil {
		log.Warnf("stored progress is inconsistent, keeping it: %s", err)
	}
	return p, nil
}

func (s *Service) initLocked(ctx context.Context) {
	s.progress = NewUserProgress(s.engine.Schedule(), s.now())
	s.selectedDay = s.progress.CurrentDay
	s.persistLocked(ctx)
}

func (s *Service) reconcileLocked(ctx context.Context) ReconcileResult {
	res := s.engine.ReconcileElapsedTime(s.progress, s.now())
	if res.DaysElapsed <= 0 {
		return res
	}

	log.Debugf("reconciled %d elapsed days: advanced %d, jokers used %d, streak reset %t",
		res.DaysElapsed, res.DaysAdvanced, res.JokersConsumed, res.StreakReset)

	s.selectedDay = s.progress.CurrentDay
	s.persistLocked(ctx)

	if res.JokersConsumed > 0 {
		s.metrics.CounterJokersConsumed.Add(float64(res.JokersConsumed))
		s.notify(ctx, notify.StreakSavedNotification(res.JokersConsumed))
	}
	if res.StreakReset {
		s.metrics.CounterStreakResets.Inc()
		s.notify(ctx, notify.StreakResetNotification())
	}
	return res
}

// refreshAchievementsLocked re-derives achievements and returns those that just unlocked.
func (s *Service) refreshAchievementsLocked(ctx context.Context, announce bool) []Achievement {
	next := s.engine.Schedule().DeriveAchievements(s.progress)
	var unlocked []Achievement
	if s.achievements != nil {
		unlocked = NewlyUnlocked(s.achievements, next)
	}
	s.achievements = next

	if !announce || len(unlocked) == 0 {
		return unlocked
	}

	for _, a := range unlocked {
		s.metrics.CounterAchievementsUnlocked.WithLabelValues(a.ID).Inc()
	}
	if s.settings != nil && !s.settings.Load(ctx).AchievementEnabled {
		return unlocked
	}
	for _, a := range unlocked {
		s.notify(ctx, notify.AchievementNotification(a.Name, a.Description))
	}
	return unlocked
}

func (s *Service) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(s.progress)
	if err == nil {
		err = s.store.Set(ctx, ProgressKey, raw)
	}
	if err != nil {
		log.Errorf("save progress: %s", err)
		s.metrics.CounterPersistFailures.WithLabelValues("save").Inc()
	}

	s.metrics.GaugeStreak.Set(float64(s.progress.Streak))
	s.metrics.GaugeLevel.Set(float64(s.progress.Level))
	s.metrics.GaugeCurrentDay.Set(float64(s.progress.CurrentDay))
}

func (s *Service) notify(ctx context.Context, n notify.Notification) {
	if s.dispatcher == nil {
		return
	}
	status := "sent"
	if err := s.dispatcher.Notify(ctx, n); err != nil {
		log.Warnf("dispatch %s notification: %s", n.Kind, err)
		status = "failed"
	}
	s.metrics.CounterNotifications.WithLabelValues(string(n.Kind), status).Inc()
}

func (s *Service) countIntent(kind string, changed bool) {
	s.metrics.CounterIntents.WithLabelValues(kind, strconv.FormatBool(changed)).Inc()
}

func (s *Service) stateLocked() State {
	p := s.progress.Clone()
	selected, ok := p.Day(s.selectedDay)
	if !ok {
		if active := p.ActiveDay(); active != nil {
			selected = *active
		}
	}
	return State{
		Progress:        p,
		Selected:        selected,
		LevelName:       LevelName(p.Level),
		AvailableJokers: p.AvailableJokers(),
		Achievements:    append([]Achievement(nil), s.achievements...),
	}
}
