package main

import (
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/noticepanel/auth"
	"github.com/hazyhaar/noticepanel/bridge"
	"github.com/hazyhaar/noticepanel/livepage"
	"github.com/hazyhaar/noticepanel/panel"
)

const version = "0.3.0"

var watchMCP bool

var watchCmd = &cobra.Command{
	Use:   "watch <url>",
	Short: "Mount the panel on a live admin page and stream its views",
	Long: `watch opens the page in Chrome, injects the panel and keeps it in sync
with the page. Every rendered view is printed as one JSON line. With --mcp
the panel tools are served over streamable HTTP on server.addr/mcp to
callers holding a session token.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		serveMCP := watchMCP || cfg.Server.MCP
		if serveMCP && cfg.Server.Secret == "" {
			return errors.New("server.secret is required to serve MCP")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		boot, err := loadBootstrap(ctx, cfg)
		if err != nil {
			return err
		}

		m := livepage.NewManager(livepage.BrowserConfig{
			RemoteURL: cfg.Browser.RemoteURL,
			Headful:   cfg.Browser.Headful,
			Logger:    logger,
		})
		if err := m.Start(ctx); err != nil {
			return err
		}
		defer m.Close()

		tab, err := m.OpenTab(ctx, args[0])
		if err != nil {
			return err
		}

		var persister panel.Persister
		if boot.REST.URL != "" {
			persister = bridge.NewClient(boot.REST, bridge.WithLogger(logger))
		} else {
			logger.Warn("noticepanel: no persistence endpoint, dismissals stay local")
		}

		sess, err := livepage.Attach(ctx, tab, livepage.SessionConfig{
			Bootstrap: boot,
			Persister: persister,
			Renderer:  panel.JSONLines(cmd.OutOrStdout()),
			Root:      cfg.Panel.Root,
			Logger:    logger,

			HighlightDuration: cfg.Panel.Highlight,
		})
		if err != nil {
			return err
		}
		defer sess.Close()

		if !serveMCP {
			<-ctx.Done()
			return nil
		}

		srv := mcp.NewServer(&mcp.Implementation{Name: "noticepanel", Version: version}, nil)
		sess.Controller().RegisterMCP(srv)

		// The tools act for the user behind the page, so callers need a
		// session token minted with "noticepanel token".
		r := chi.NewRouter()
		r.Use(auth.Middleware([]byte(cfg.Server.Secret)))
		r.Use(auth.RequireScope(auth.ScopeSession))
		r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil))
		return listen(ctx, &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		})
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchMCP, "mcp", false, "serve the panel tools over MCP on server.addr")
	rootCmd.AddCommand(watchCmd)
}
