package noticestate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/noticepanel/bridge"
	"github.com/hazyhaar/noticepanel/dbopen"
)

const settingsKey = "panel"

// Settings are the stored panel options.
type Settings struct {
	AllowedRoles      []string `json:"allowed_roles"`
	IncludeUpdateNag  bool     `json:"include_update_nag"`
	AutoOpenCritical  bool     `json:"auto_open_critical"`
	FiltersEnabled    bool     `json:"filters_enabled"`
	AllowedScreens    []string `json:"allowed_screens"`
	EmptyStateHelpURL string   `json:"empty_state_help_url,omitempty"`
}

// DefaultSettings fill every field the stored value omits.
func DefaultSettings() Settings {
	return Settings{
		AllowedRoles:     []string{"administrator"},
		AutoOpenCritical: true,
		FiltersEnabled:   true,
		AllowedScreens:   []string{},
	}
}

// Normalize cleans role and screen lists: trimmed, lowercased, deduplicated,
// empties dropped. An empty role list falls back to the default.
func (s *Settings) Normalize() {
	s.AllowedRoles = cleanList(s.AllowedRoles, func(r string) string {
		return strings.ToLower(strings.TrimSpace(r))
	})
	if len(s.AllowedRoles) == 0 {
		s.AllowedRoles = DefaultSettings().AllowedRoles
	}
	s.AllowedScreens = cleanList(s.AllowedScreens, NormalizeScreenID)
	s.EmptyStateHelpURL = strings.TrimSpace(s.EmptyStateHelpURL)
}

func cleanList(in []string, norm func(string) string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = norm(v); v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// RoleAllowed reports whether role may manage notices.
func (s Settings) RoleAllowed(role string) bool {
	return role != "" && slices.Contains(s.AllowedRoles, strings.ToLower(role))
}

// Bridge converts the stored options to the bootstrap shape.
func (s Settings) Bridge() bridge.Settings {
	return bridge.Settings{
		IncludeUpdateNag:  s.IncludeUpdateNag,
		AutoOpenCritical:  s.AutoOpenCritical,
		FiltersEnabled:    s.FiltersEnabled,
		AllowedScreens:    slices.Clone(s.AllowedScreens),
		EmptyStateHelpURL: s.EmptyStateHelpURL,
	}
}

// SettingsRepo reads and writes Settings, caching the merged value until
// Save or Invalidate.
type SettingsRepo struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.Mutex
	cached *Settings
}

// NewSettingsRepo wraps db. The schema must already exist.
func NewSettingsRepo(db *sql.DB, logger *slog.Logger) *SettingsRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsRepo{db: db, logger: logger}
}

// Get returns the stored settings merged over the defaults.
func (r *SettingsRepo) Get(ctx context.Context) (Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != nil {
		return clone(*r.cached), nil
	}

	s := DefaultSettings()
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingsKey).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Settings{}, fmt.Errorf("noticestate: load settings: %w", err)
	default:
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			// A corrupt row must not take the panel down.
			r.logger.Warn("noticestate: settings row unreadable, using defaults", "error", err)
			s = DefaultSettings()
		}
	}
	s.Normalize()
	r.cached = &s
	return clone(s), nil
}

// Save normalizes and stores s.
func (r *SettingsRepo) Save(ctx context.Context, s Settings) (Settings, error) {
	s.Normalize()
	data, err := json.Marshal(s)
	if err != nil {
		return Settings{}, fmt.Errorf("noticestate: encode settings: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = dbopen.Exec(ctx, r.db,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		settingsKey, string(data), time.Now().UnixNano())
	if err != nil {
		return Settings{}, fmt.Errorf("noticestate: save settings: %w", err)
	}
	r.cached = &s
	return clone(s), nil
}

// EnsureDefaults stores the defaults when nothing is stored yet.
func (r *SettingsRepo) EnsureDefaults(ctx context.Context) error {
	data, err := json.Marshal(DefaultSettings())
	if err != nil {
		return err
	}
	_, err = dbopen.Exec(ctx, r.db,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT (key) DO NOTHING`,
		settingsKey, string(data), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("noticestate: ensure settings: %w", err)
	}
	return nil
}

// Invalidate drops the cached value.
func (r *SettingsRepo) Invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}

// Watch invalidates the cache whenever another connection writes to the
// database, until ctx is cancelled.
func (r *SettingsRepo) Watch(ctx context.Context, opts ReloadOptions) {
	if opts.Logger == nil {
		opts.Logger = r.logger
	}
	NewReloader(r.db, opts).OnChange(ctx, func() error {
		r.Invalidate()
		r.logger.Info("noticestate: settings reloaded")
		return nil
	})
}

func clone(s Settings) Settings {
	s.AllowedRoles = slices.Clone(s.AllowedRoles)
	s.AllowedScreens = slices.Clone(s.AllowedScreens)
	return s
}
