package notify

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultReminderInterval = time.Minute

type settingsLoader interface {
	Load(ctx context.Context) Settings
}

type ReminderParams struct {
	Settings   settingsLoader
	Dispatcher Dispatcher
	Interval   time.Duration
	Now        func() time.Time
	// WorkoutDone, when set, suppresses the reminder once today's workout is completed.
	WorkoutDone func(ctx context.Context) bool
	OnSent      func(n Notification, err error)
}

// Reminder sends the daily streak reminder at the configured times, at most once per calendar day.
// Its lifecycle is owned by the hosting shell through Run.
type Reminder struct {
	settings    settingsLoader
	dispatcher  Dispatcher
	interval    time.Duration
	now         func() time.Time
	workoutDone func(ctx context.Context) bool
	onSent      func(n Notification, err error)

	mu           sync.Mutex
	lastSentDate string
}

func NewReminder(params ReminderParams) *Reminder {
	r := &Reminder{
		settings:    params.Settings,
		dispatcher:  params.Dispatcher,
		interval:    params.Interval,
		now:         params.Now,
		workoutDone: params.WorkoutDone,
		onSent:      params.OnSent,
	}
	if r.interval <= 0 {
		r.interval = DefaultReminderInterval
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Run checks for a due reminder on every tick until ctx is done.
func (r *Reminder) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Debugf("reminder started, checking every %s", r.interval)
	for {
		select {
		case <-ctx.Done():
			log.Debugln("reminder stopped")
			return
		case <-ticker.C:
			r.Check(ctx)
		}
	}
}

// Check sends the reminder if one is due now. It reports whether a reminder was sent.
func (r *Reminder) Check(ctx context.Context) bool {
	now := r.now()
	today := now.Format("2006-01-02")

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lastSentDate == today {
		return false
	}

	settings := r.settings.Load(ctx)
	if !settings.ShouldRemind(now) {
		return false
	}
	if r.workoutDone != nil && r.workoutDone(ctx) {
		log.Tracef("reminder skipped, workout for %s already done", today)
		return false
	}

	n := ReminderNotification()
	err := r.dispatcher.Notify(ctx, n)
	if err != nil {
		log.Errorf("send reminder: %s", err)
	}
	if r.onSent != nil {
		r.onSent(n, err)
	}
	// failed deliveries are not retried the same day
	r.lastSentDate = today
	return true
}
