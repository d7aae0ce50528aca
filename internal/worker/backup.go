package worker

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/taskdesk/taskdesk/internal/model"
	"github.com/taskdesk/taskdesk/internal/store"
)

// Backup writes a periodic snapshot of the store and prunes old ones.
type Backup struct {
	db          *store.DB
	log         *zap.Logger
	interval    time.Duration
	maxBackups  int
	checkPeriod time.Duration
}

// NewBackup creates the worker from the storage config.
func NewBackup(db *store.DB, log *zap.Logger, cfg model.StorageConfig) *Backup {
	return &Backup{
		db:          db,
		log:         log,
		interval:    time.Duration(cfg.BackupIntervalDays) * 24 * time.Hour,
		maxBackups:  cfg.MaxBackupCount,
		checkPeriod: time.Hour,
	}
}

// Start runs the backup loop until the context is canceled. One check
// runs immediately on start; a snapshot is only written when the newest
// existing backup is older than the configured interval.
func (b *Backup) Start(ctx context.Context) {
	b.log.Info("backup worker started", zap.Duration("interval", b.interval))

	ticker := time.NewTicker(b.checkPeriod)
	defer ticker.Stop()

	b.check(ctx)
	for {
		select {
		case <-ctx.Done():
			b.log.Info("backup worker stopped")
			return
		case <-ticker.C:
			b.check(ctx)
		}
	}
}

func (b *Backup) check(ctx context.Context) {
	if !b.due() {
		return
	}

	path, err := b.db.Backup(ctx, "")
	if err != nil {
		b.log.Error("writing scheduled backup", zap.Error(err))
		return
	}
	b.log.Info("backup written", zap.String("path", path))

	if b.maxBackups > 0 {
		removed, err := b.db.PruneBackups(b.maxBackups)
		if err != nil {
			b.log.Error("pruning old backups", zap.Error(err))
			return
		}
		if removed > 0 {
			b.log.Info("old backups pruned", zap.Int("removed", removed))
		}
	}
}

// due reports whether the newest backup is older than the interval. A
// missing or unreadable backup counts as due.
func (b *Backup) due() bool {
	backups, err := b.db.ListBackups()
	if err != nil {
		b.log.Error("listing backups", zap.Error(err))
		return false
	}
	if len(backups) == 0 {
		return true
	}

	newest := backups[len(backups)-1]
	info, err := os.Stat(newest)
	if err != nil {
		return true
	}
	return time.Since(info.ModTime()) > b.interval
}
