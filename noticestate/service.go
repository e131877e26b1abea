package noticestate

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/noticepanel/auth"
	"github.com/hazyhaar/noticepanel/bridge"
	"github.com/hazyhaar/noticepanel/idgen"
)

// Error codes specific to the service; the update codes live in bridge.
const (
	CodeScreenNotAllowed = "screen_not_allowed"
	CodeInternal         = "internal"
)

// Config wires a Service.
type Config struct {
	// DB holds the Schema tables. Required.
	DB *sql.DB
	// Secret signs session tokens and nonces. At least auth.MinSecretLen bytes.
	Secret []byte
	// RESTURL is the update endpoint advertised in bootstraps. When empty it
	// is derived from the bootstrap request.
	RESTURL string
	// NonceTTL bounds the nonce lifetime. Default: 12h.
	NonceTTL time.Duration
	// I18n overrides the built-in labels.
	I18n bridge.I18n
	// MaxBody caps request bodies. Default: 64 KiB.
	MaxBody int64
	Logger  *slog.Logger
}

func (c *Config) defaults() {
	if c.NonceTTL <= 0 {
		c.NonceTTL = 12 * time.Hour
	}
	if c.MaxBody <= 0 {
		c.MaxBody = 64 << 10
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Service serves the notice state endpoints.
type Service struct {
	cfg       Config
	dismissed *DismissedStore
	settings  *SettingsRepo
	i18n      bridge.I18n
	logger    *slog.Logger
}

// New validates cfg and returns a Service.
func New(cfg Config) (*Service, error) {
	if cfg.DB == nil {
		return nil, errors.New("noticestate: nil db")
	}
	if err := auth.ValidateSecret(cfg.Secret); err != nil {
		return nil, fmt.Errorf("noticestate: %w", err)
	}
	cfg.defaults()

	i18n := bridge.DefaultI18n()
	for k, v := range cfg.I18n {
		i18n[k] = v
	}
	return &Service{
		cfg:       cfg,
		dismissed: NewDismissedStore(cfg.DB),
		settings:  NewSettingsRepo(cfg.DB, cfg.Logger),
		i18n:      i18n,
		logger:    cfg.Logger,
	}, nil
}

// Settings exposes the settings repository.
func (s *Service) Settings() *SettingsRepo { return s.settings }

// Dismissed exposes the dismissal store.
func (s *Service) Dismissed() *DismissedStore { return s.dismissed }

// Router returns the HTTP handler.
//
//	POST /notices      persist a dismissal update
//	GET  /bootstrap    panel bootstrap for ?screen=
//	GET  /settings     stored settings
//	PUT  /settings     replace settings
//	GET  /healthz      liveness
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(traceID(s.logger))
	r.Use(securityHeaders)
	r.Use(maxBody(s.cfg.MaxBody))
	r.Use(auth.Middleware(s.cfg.Secret))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/notices", s.handleUpdate)
	r.Get("/bootstrap", s.handleBootstrap)
	r.Get("/settings", s.handleGetSettings)
	r.Put("/settings", s.handlePutSettings)
	return r
}

// authorize returns the caller's claims when their role may manage notices
// and the token carries one of scopes. Page nonces only reach POST /notices.
func (s *Service) authorize(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, Settings, bool) {
	settings, err := s.settings.Get(r.Context())
	if err != nil {
		requestLogger(r.Context()).Error("noticestate: settings", "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "settings unavailable")
		return nil, Settings{}, false
	}
	claims := auth.GetClaims(r.Context())
	if claims == nil || claims.UserID == "" || !claims.HasScope(scopes...) || !settings.RoleAllowed(claims.Role) {
		writeError(w, http.StatusForbidden, bridge.CodeForbidden, "you cannot manage notices")
		return nil, Settings{}, false
	}
	return claims, settings, true
}

func (s *Service) handleUpdate(w http.ResponseWriter, r *http.Request) {
	claims, _, ok := s.authorize(w, r, auth.ScopeNotices, auth.ScopeSession)
	if !ok {
		return
	}

	var u bridge.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, bridge.CodeBadRequest, "invalid JSON body")
		return
	}
	ids := u.IDs()
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, bridge.CodeMissingNotice, "no notice id supplied")
		return
	}
	dismissed := u.DismissedOr(true)

	if err := s.dismissed.Set(r.Context(), claims.UserID, ids, dismissed); err != nil {
		requestLogger(r.Context()).Error("noticestate: persist", "error", err, "user", claims.UserID)
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not store the update")
		return
	}
	requestLogger(r.Context()).Info("noticestate: notices updated",
		"user", claims.UserID, "count", len(ids), "dismissed", dismissed)
	writeJSON(w, http.StatusOK, bridge.NewResponse(ids, dismissed))
}

func (s *Service) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	claims, settings, ok := s.authorize(w, r, auth.ScopeSession)
	if !ok {
		return
	}
	screen := NormalizeScreenID(r.URL.Query().Get("screen"))
	if !ScreenAllowed(settings.AllowedScreens, screen) {
		writeError(w, http.StatusNotFound, CodeScreenNotAllowed, "the panel is disabled on this screen")
		return
	}

	dismissed, err := s.dismissed.List(r.Context(), claims.UserID)
	if err != nil {
		requestLogger(r.Context()).Error("noticestate: list dismissed", "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not load dismissed notices")
		return
	}
	nonce, err := s.Nonce(claims.UserID, claims.Role)
	if err != nil {
		requestLogger(r.Context()).Error("noticestate: nonce", "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not issue a nonce")
		return
	}

	writeJSON(w, http.StatusOK, bridge.Bootstrap{
		I18n:      s.i18n,
		REST:      bridge.REST{URL: s.restURL(r), Nonce: nonce},
		Settings:  settings.Bridge(),
		Dismissed: dismissed,
	})
}

// Nonce issues the short-lived token the panel presents to POST /notices.
func (s *Service) Nonce(userID, role string) (string, error) {
	c := &auth.Claims{UserID: userID, Role: role, Scope: auth.ScopeNotices}
	c.ID = idgen.New()
	return auth.GenerateToken(s.cfg.Secret, c, s.cfg.NonceTTL)
}

func (s *Service) restURL(r *http.Request) string {
	if s.cfg.RESTURL != "" {
		return s.cfg.RESTURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = strings.ToLower(p)
	}
	return scheme + "://" + r.Host + "/notices"
}

func (s *Service) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	_, settings, ok := s.authorize(w, r, auth.ScopeSession)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Service) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	claims, _, ok := s.authorize(w, r, auth.ScopeSession)
	if !ok {
		return
	}
	next := DefaultSettings()
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeError(w, http.StatusBadRequest, bridge.CodeBadRequest, "invalid JSON body")
		return
	}
	saved, err := s.settings.Save(r.Context(), next)
	if err != nil {
		requestLogger(r.Context()).Error("noticestate: save settings", "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not save settings")
		return
	}
	requestLogger(r.Context()).Info("noticestate: settings saved", "user", claims.UserID)
	writeJSON(w, http.StatusOK, saved)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, bridge.ErrorBody{Code: errCode, Message: msg})
}
