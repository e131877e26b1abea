package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// Bootstrap is the initial state handed to the panel.
type Bootstrap struct {
	I18n      I18n     `json:"i18n"`
	REST      REST     `json:"rest"`
	Settings  Settings `json:"settings"`
	Dismissed []string `json:"dismissed"`
}

// REST locates the persistence endpoint.
type REST struct {
	URL   string `json:"url"`
	Nonce string `json:"nonce"`
}

// Settings are the panel switches.
type Settings struct {
	IncludeUpdateNag  bool     `json:"includeUpdateNag"`
	AutoOpenCritical  bool     `json:"autoOpenCritical"`
	FiltersEnabled    bool     `json:"filtersEnabled"`
	AllowedScreens    []string `json:"allowedScreens"`
	EmptyStateHelpURL string   `json:"emptyStateHelpUrl"`
}

// DefaultSettings applies when the payload omits a field.
func DefaultSettings() Settings {
	return Settings{
		AutoOpenCritical: true,
		FiltersEnabled:   true,
		AllowedScreens:   []string{},
	}
}

// UnmarshalJSON keeps the defaults of absent boolean fields.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw struct {
		IncludeUpdateNag  *bool    `json:"includeUpdateNag"`
		AutoOpenCritical  *bool    `json:"autoOpenCritical"`
		FiltersEnabled    *bool    `json:"filtersEnabled"`
		AllowedScreens    []string `json:"allowedScreens"`
		EmptyStateHelpURL string   `json:"emptyStateHelpUrl"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = DefaultSettings()
	if raw.IncludeUpdateNag != nil {
		s.IncludeUpdateNag = *raw.IncludeUpdateNag
	}
	if raw.AutoOpenCritical != nil {
		s.AutoOpenCritical = *raw.AutoOpenCritical
	}
	if raw.FiltersEnabled != nil {
		s.FiltersEnabled = *raw.FiltersEnabled
	}
	if raw.AllowedScreens != nil {
		s.AllowedScreens = raw.AllowedScreens
	}
	s.EmptyStateHelpURL = raw.EmptyStateHelpURL
	return nil
}

// ParseBootstrap decodes a payload. Missing sections fall back to defaults
// and the dismissed ids are sanitised.
func ParseBootstrap(data []byte) (*Bootstrap, error) {
	b := &Bootstrap{Settings: DefaultSettings()}
	if err := json.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("bridge: parse bootstrap: %w", err)
	}
	b.Dismissed = SanitizeIDs(b.Dismissed)
	if b.I18n == nil {
		b.I18n = I18n{}
	}
	return b, nil
}

// LoadBootstrap reads a payload from a JSON file.
func LoadBootstrap(path string) (*Bootstrap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bridge: read bootstrap: %w", err)
	}
	return ParseBootstrap(data)
}

// FetchBootstrap GETs the payload for screen from a notice state service.
// token authenticates the user; it is sent as a bearer token.
func FetchBootstrap(ctx context.Context, hc *http.Client, url, token string) (*Bootstrap, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("bridge: bootstrap request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge: fetch bootstrap: %w", err)
	}
	defer resp.Body.Close()

	body, err := limitedReadAll(resp.Body, maxResponseBody)
	if err != nil {
		return nil, fmt.Errorf("bridge: read bootstrap: %w", err)
	}
	if err := statusError(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return ParseBootstrap(body)
}
