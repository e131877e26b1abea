package noticestate

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"
	"time"
)

// VersionDetector reads a version token; two different values mean the
// database changed.
type VersionDetector func(ctx context.Context, db *sql.DB) (int64, error)

// DataVersion reads PRAGMA data_version, which moves when another
// connection commits to the same database file.
func DataVersion(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v)
	return v, err
}

// SettingsRevision reads the newest settings write time. It also sees
// writes made through the watcher's own pool.
func SettingsRevision(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(updated_at), 0) FROM settings").Scan(&v)
	return v, err
}

// ReloadOptions tune a Reloader.
type ReloadOptions struct {
	// Interval is the polling period. Default: 1s.
	Interval time.Duration
	// Debounce is the quiet period after a change before the action runs.
	// Further changes restart it. 0 fires immediately.
	Debounce time.Duration
	// Detector defaults to DataVersion.
	Detector VersionDetector
	Logger   *slog.Logger
}

func (o *ReloadOptions) defaults() {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Detector == nil {
		o.Detector = DataVersion
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Reloader polls the database and runs an action after it changed.
type Reloader struct {
	db      *sql.DB
	opts    ReloadOptions
	version atomic.Int64
	reloads atomic.Int64
}

// NewReloader returns a Reloader; OnChange starts it.
func NewReloader(db *sql.DB, opts ReloadOptions) *Reloader {
	opts.defaults()
	return &Reloader{db: db, opts: opts}
}

// Reloads counts successful actions.
func (w *Reloader) Reloads() int64 { return w.reloads.Load() }

// OnChange blocks until ctx is done. A failed action leaves the version
// where it was so the next poll retries.
func (w *Reloader) OnChange(ctx context.Context, action func() error) {
	log := w.opts.Logger
	if v, err := w.opts.Detector(ctx, w.db); err != nil {
		log.Warn("noticestate: initial version check failed", "error", err)
	} else {
		w.version.Store(v)
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var debounce *time.Timer
	var debounceCh <-chan time.Time
	pending := int64(-1)

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case <-ticker.C:
			cur, err := w.opts.Detector(ctx, w.db)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("noticestate: version check failed", "error", err)
				}
				continue
			}
			if cur == w.version.Load() || cur == pending {
				continue
			}
			pending = cur
			if w.opts.Debounce <= 0 {
				w.fire(action, pending)
				pending = -1
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(w.opts.Debounce)
			debounceCh = debounce.C

		case <-debounceCh:
			debounceCh = nil
			if pending >= 0 {
				w.fire(action, pending)
				pending = -1
			}
		}
	}
}

func (w *Reloader) fire(action func() error, ver int64) {
	if err := action(); err != nil {
		w.opts.Logger.Error("noticestate: reload failed", "error", err, "version", ver)
		return
	}
	w.reloads.Add(1)
	w.version.Store(ver)
}
