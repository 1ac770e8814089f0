package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/2beens/pushupjourney/internal/config"
	"github.com/2beens/pushupjourney/internal/logging"
	"github.com/2beens/pushupjourney/internal/notify"
	"github.com/2beens/pushupjourney/internal/progress"
	"github.com/2beens/pushupjourney/internal/store"
	"github.com/2beens/pushupjourney/pkg"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// options are set from the persistent flags of the root command.
type options struct {
	env        string
	configPath string
	backend    string
	sqlitePath string
	webhookURL string
	logLevel   string
	today      string
}

// app holds everything a command needs. Built before and closed after every command.
type app struct {
	out        io.Writer
	store      store.Store
	settings   *notify.SettingsStore
	service    *progress.Service
	dispatcher notify.Dispatcher
	now        func() time.Time
	interval   time.Duration
}

func defaultSqlitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pushup-journey.db"
	}
	return filepath.Join(home, ".pushup-journey", "pushup-journey.db")
}

// loadConfig reads the config file when there is one, then applies flag overrides.
func (o *options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{
		StoreBackend: config.StoreBackendSqlite,
		SqlitePath:   defaultSqlitePath(),
	}

	if o.configPath != "" {
		exists, err := pkg.PathExists(o.configPath, false)
		if err != nil {
			return nil, fmt.Errorf("check config file: %w", err)
		}
		if exists {
			cfg, err = config.Load(o.env, o.configPath)
			if err != nil {
				return nil, err
			}
		} else if cmd.Flags().Changed("config") {
			return nil, fmt.Errorf("config file [%s] not found", o.configPath)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.StoreBackend = o.backend
	}
	if flags.Changed("sqlite-path") {
		cfg.SqlitePath = o.sqlitePath
	}
	if flags.Changed("webhook") {
		cfg.NotificationWebhookURL = o.webhookURL
	}
	if cfg.MemoryStoreSizeMB <= 0 {
		cfg.MemoryStoreSizeMB = 10
	}
	if cfg.ReminderCheckInterval <= 0 {
		cfg.ReminderCheckInterval = notify.DefaultReminderInterval
	}
	return cfg, nil
}

func (o *options) clock(cfg *config.Config) (func() time.Time, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if o.today == "" {
		return func() time.Time {
			return time.Now().In(loc)
		}, nil
	}

	day, err := time.ParseInLocation(progress.DateLayout, o.today, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid --today [%s], expected YYYY-MM-DD: %w", o.today, err)
	}
	fixed := day.Add(12 * time.Hour)
	return func() time.Time {
		return fixed
	}, nil
}

func newApp(ctx context.Context, cmd *cobra.Command, o *options) (*app, error) {
	log.SetOutput(cmd.ErrOrStderr())
	log.SetLevel(logging.GetLevel(o.logLevel))

	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	now, err := o.clock(cfg)
	if err != nil {
		return nil, err
	}

	s, err := store.New(ctx, store.ParamsFromConfig(cfg, os.Getenv("PUSHUPS_REDIS_PASS")))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	out := cmd.OutOrStdout()
	var dispatcher notify.Dispatcher = &terminalDispatcher{out: out}
	if cfg.NotificationWebhookURL != "" {
		webhookDispatcher, err := notify.NewWebhookDispatcher(cfg.NotificationWebhookURL, nil)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		dispatcher = notify.MultiDispatcher{dispatcher, webhookDispatcher}
	}

	settings := notify.NewSettingsStore(s)
	return &app{
		out:        out,
		store:      s,
		settings:   settings,
		dispatcher: dispatcher,
		now:        now,
		interval:   cfg.ReminderCheckInterval,
		service: progress.NewService(progress.ServiceParams{
			Store:      s,
			Dispatcher: dispatcher,
			Settings:   settings,
			Schedule:   progress.DefaultSchedule(),
			Now:        now,
		}),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// terminalDispatcher prints notifications as part of the command output.
type terminalDispatcher struct {
	out io.Writer
}

func (d *terminalDispatcher) Notify(_ context.Context, n notify.Notification) error {
	_, err := fmt.Fprintln(d.out, renderNotification(n))
	return err
}
