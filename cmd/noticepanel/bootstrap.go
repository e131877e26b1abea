package main

import (
	"context"
	"net/url"

	"github.com/hazyhaar/noticepanel/bridge"
	"github.com/hazyhaar/noticepanel/config"
)

// loadBootstrap resolves the panel state: a file, the service, or the
// panel section of the config when neither is set.
func loadBootstrap(ctx context.Context, cfg *config.Config) (*bridge.Bootstrap, error) {
	switch {
	case cfg.Bridge.BootstrapFile != "":
		return bridge.LoadBootstrap(cfg.Bridge.BootstrapFile)
	case cfg.Bridge.BootstrapURL != "":
		u, err := url.Parse(cfg.Bridge.BootstrapURL)
		if err != nil {
			return nil, err
		}
		if cfg.Bridge.Screen != "" {
			q := u.Query()
			q.Set("screen", cfg.Bridge.Screen)
			u.RawQuery = q.Encode()
		}
		return bridge.FetchBootstrap(ctx, nil, u.String(), cfg.Bridge.Token)
	}

	s := bridge.DefaultSettings()
	s.AutoOpenCritical = cfg.Panel.AutoOpenCritical
	s.IncludeUpdateNag = cfg.Panel.IncludeUpdateNag
	s.FiltersEnabled = cfg.Panel.FiltersEnabled
	return &bridge.Bootstrap{I18n: bridge.DefaultI18n(), Settings: s}, nil
}
