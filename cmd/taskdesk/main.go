package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/taskdesk/taskdesk/internal/logger"
	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/service"
	"github.com/taskdesk/taskdesk/internal/store"
	"github.com/taskdesk/taskdesk/internal/worker"
)

// App bundles the wired services for the embedding front end.
type App struct {
	Config   *model.AppConfig
	Store    *store.DB
	Users    *service.UserService
	Tasks    *service.TaskService
	Tags     *service.TagService
	Stats    *service.StatsService
	Settings *service.SettingsService
}

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the config file")
	backup := flag.Bool("backup", false, "write a backup and exit")
	restore := flag.String("restore", "", "restore the store from the given backup file and exit")
	flag.Parse()

	if err := run(*configPath, *backup, *restore); err != nil {
		fmt.Fprintln(os.Stderr, "taskdesk:", err)
		os.Exit(1)
	}
}

func run(configPath string, backup bool, restore string) error {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer log.Sync()

	dataDir := cfg.Storage.DataDir
	if dataDir == "" {
		dataDir = model.DefaultDataDir()
	}

	db, err := store.Open(dataDir, log)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Maintenance flags run one operation and exit.
	if backup {
		path, err := db.Backup(ctx, "")
		if err != nil {
			return err
		}
		log.Info("backup written", zap.String("path", path))
		return nil
	}
	if restore != "" {
		if err := db.Restore(ctx, restore); err != nil {
			return err
		}
		log.Info("store restored", zap.String("path", restore))
		return nil
	}

	app, err := newApp(cfg, configPath, db, log)
	if err != nil {
		return err
	}

	if cfg.Notifications.Enabled {
		reminder := worker.NewReminder(db, app.Tasks, log, cfg.Notifications)
		go reminder.Start(ctx)
	}
	if cfg.Storage.AutoBackup {
		backups := worker.NewBackup(db, log, cfg.Storage)
		go backups.Start(ctx)
	}

	log.Info("taskdesk started", zap.String("data_dir", dataDir))
	<-ctx.Done()
	log.Info("taskdesk stopped")
	return nil
}

func newApp(cfg *model.AppConfig, configPath string, db *store.DB, log *zap.Logger) (*App, error) {
	users, err := service.NewUserService(db, log, cfg.Security)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:   cfg,
		Store:    db,
		Users:    users,
		Tasks:    service.NewTaskService(db, log),
		Tags:     service.NewTagService(db, log),
		Stats:    service.NewStatsService(db, log),
		Settings: service.NewSettingsService(db, log, configPath, cfg),
	}, nil
}
