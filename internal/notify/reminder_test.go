package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func TestReminder_Check(t *testing.T) {
	ctrl := gomock.NewController(t)
	settingsMock := NewMocksettingsRepo(ctrl)
	settingsMock.EXPECT().Load(gomock.Any()).Return(DefaultSettings()).AnyTimes()

	// 2024-03-04 is a Monday
	clock := &fakeClock{now: time.Date(2024, 3, 4, 17, 59, 0, 0, time.UTC)}
	dispatcher := &recordingDispatcher{}
	var sentCount int
	reminder := NewReminder(ReminderParams{
		Settings:   settingsMock,
		Dispatcher: dispatcher,
		Now:        clock.Now,
		OnSent: func(n Notification, err error) {
			sentCount++
		},
	})
	ctx := context.Background()

	assert.False(t, reminder.Check(ctx))

	clock.Set(time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC))
	assert.True(t, reminder.Check(ctx))
	// once per calendar day, even at the second configured time
	assert.False(t, reminder.Check(ctx))
	clock.Set(time.Date(2024, 3, 4, 21, 0, 0, 0, time.UTC))
	assert.False(t, reminder.Check(ctx))

	clock.Set(time.Date(2024, 3, 5, 21, 0, 0, 0, time.UTC))
	assert.True(t, reminder.Check(ctx))

	assert.Len(t, dispatcher.sent, 2)
	assert.Equal(t, 2, sentCount)
	assert.Equal(t, KindReminder, dispatcher.sent[0].Kind)
}

func TestReminder_CheckRespectsSettings(t *testing.T) {
	ctrl := gomock.NewController(t)
	settingsMock := NewMocksettingsRepo(ctrl)

	disabled := DefaultSettings()
	disabled.SetStreakEnabled(false)
	noMonday := DefaultSettings()
	_ = noMonday.ToggleDay(1)

	gomock.InOrder(
		settingsMock.EXPECT().Load(gomock.Any()).Return(disabled),
		settingsMock.EXPECT().Load(gomock.Any()).Return(noMonday),
	)

	dispatcher := &recordingDispatcher{}
	reminder := NewReminder(ReminderParams{
		Settings:   settingsMock,
		Dispatcher: dispatcher,
		Now: func() time.Time {
			return time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)
		},
	})

	assert.False(t, reminder.Check(context.Background()))
	assert.False(t, reminder.Check(context.Background()))
	assert.Empty(t, dispatcher.sent)
}

func TestReminder_SkipsWhenWorkoutDone(t *testing.T) {
	ctrl := gomock.NewController(t)
	settingsMock := NewMocksettingsRepo(ctrl)
	settingsMock.EXPECT().Load(gomock.Any()).Return(DefaultSettings()).Times(2)

	done := true
	dispatcher := &recordingDispatcher{}
	reminder := NewReminder(ReminderParams{
		Settings:   settingsMock,
		Dispatcher: dispatcher,
		Now: func() time.Time {
			return time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)
		},
		WorkoutDone: func(ctx context.Context) bool {
			return done
		},
	})

	assert.False(t, reminder.Check(context.Background()))
	done = false
	assert.True(t, reminder.Check(context.Background()))
	assert.Len(t, dispatcher.sent, 1)
}

func TestReminder_FailedDeliveryNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	settingsMock := NewMocksettingsRepo(ctrl)
	settingsMock.EXPECT().Load(gomock.Any()).Return(DefaultSettings()).Times(1)

	dispatcher := &recordingDispatcher{err: errors.New("permission denied")}
	var sentErr error
	reminder := NewReminder(ReminderParams{
		Settings:   settingsMock,
		Dispatcher: dispatcher,
		Now: func() time.Time {
			return time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)
		},
		OnSent: func(n Notification, err error) {
			sentErr = err
		},
	})

	assert.True(t, reminder.Check(context.Background()))
	assert.EqualError(t, sentErr, "permission denied")
	assert.False(t, reminder.Check(context.Background()))
}

func TestReminder_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	settingsMock := NewMocksettingsRepo(ctrl)
	settingsMock.EXPECT().Load(gomock.Any()).Return(DefaultSettings()).MinTimes(1)

	sent := make(chan Notification, 1)
	reminder := NewReminder(ReminderParams{
		Settings:   settingsMock,
		Dispatcher: NewLogDispatcher(nil),
		Interval:   5 * time.Millisecond,
		Now: func() time.Time {
			return time.Date(2024, 3, 4, 21, 0, 0, 0, time.UTC)
		},
		OnSent: func(n Notification, err error) {
			sent <- n
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reminder.Run(ctx)
		close(done)
	}()

	select {
	case n := <-sent:
		assert.Equal(t, KindReminder, n.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("reminder not sent")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reminder did not stop")
	}
}

func TestNewReminder_Defaults(t *testing.T) {
	reminder := NewReminder(ReminderParams{})
	assert.Equal(t, DefaultReminderInterval, reminder.interval)
	assert.NotNil(t, reminder.now)
}
