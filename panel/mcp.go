package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/noticepanel/kit"
	"github.com/hazyhaar/noticepanel/notice"
)

// ErrUnknownAction is returned for a bulk action other than read or unread.
var ErrUnknownAction = errors.New("panel: unknown action")

// Codes reported by the panel tools.
const (
	CodeUnknownNotice = "unknown_notice"
	CodeUnknownFilter = "unknown_filter"
	CodeUnknownAction = "unknown_action"
)

var toolErrorCodes = kit.ErrorCodes{
	ErrUnknownNotice:        CodeUnknownNotice,
	notice.ErrUnknownFilter: CodeUnknownFilter,
	ErrUnknownAction:        CodeUnknownAction,
}

// RegisterMCP exposes the panel on an MCP server so an agent can read and
// triage the notices of the page being watched.
func (c *Controller) RegisterMCP(srv *mcp.Server) {
	tools := kit.NewTools(srv,
		kit.WithMiddleware(logCalls(c.logger)),
		kit.WithErrorCodes(toolErrorCodes),
	)
	kit.AddTool(tools, listTool, c.listNotices)
	kit.AddTool(tools, setDismissedTool, c.setDismissedCall)
	kit.AddTool(tools, bulkTool, c.bulkCall)
	kit.AddTool(tools, revealTool, c.revealCall)
	kit.AddTool(tools, toggleTool, c.toggleCall)
}

// logCalls logs every tool call with its caller attributes.
func logCalls(logger *slog.Logger) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := append(kit.LogAttrs(ctx), "duration", time.Since(start))
			if err != nil {
				logger.Warn("panel: tool failed", append(attrs, "error", err)...)
				return nil, err
			}
			logger.Debug("panel: tool", attrs...)
			return resp, nil
		}
	}
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- list ---

var listTool = &mcp.Tool{
	Name:        "notices_list",
	Description: "List the notices collected from the page, filtered by severity and free text. Archived notices are hidden unless show_dismissed is set.",
	InputSchema: inputSchema(map[string]any{
		"filter":         map[string]any{"type": "string", "enum": []string{"all", "error", "warning", "success", "info"}},
		"search":         map[string]any{"type": "string", "description": "Case-insensitive substring of the notice text"},
		"show_dismissed": map[string]any{"type": "boolean"},
	}, nil),
}

type listReq struct {
	Filter        string `json:"filter"`
	Search        string `json:"search"`
	ShowDismissed bool   `json:"show_dismissed"`
}

type listResp struct {
	Items   []Item            `json:"items"`
	Empty   notice.EmptyState `json:"empty"`
	Message string            `json:"message,omitempty"`
	Active  int               `json:"active"`
}

func (c *Controller) listNotices(_ context.Context, r *listReq) (any, error) {
	f, err := notice.ParseFilter(r.Filter)
	if err != nil {
		return nil, err
	}
	crit := notice.Criteria{Filter: f, Search: r.Search, ShowDismissed: r.ShowDismissed}

	c.mu.Lock()
	defer c.mu.Unlock()
	proj := notice.Project(c.store.Notices(), crit)
	out := listResp{
		Items:   make([]Item, 0, len(proj.Visible)),
		Empty:   proj.Empty,
		Message: emptyMessage(c.cfg.I18n, proj.Empty),
		Active:  c.store.ActiveCount(),
	}
	for _, n := range proj.Visible {
		out.Items = append(out.Items, buildItem(c.cfg.I18n, n))
	}
	return out, nil
}

// --- set dismissed ---

var setDismissedTool = &mcp.Tool{
	Name:        "notices_set_dismissed",
	Description: "Archive (dismissed=true, the default) or restore one notice by id.",
	InputSchema: inputSchema(map[string]any{
		"id":        map[string]any{"type": "string"},
		"dismissed": map[string]any{"type": "boolean"},
	}, []string{"id"}),
}

type setDismissedReq struct {
	ID        string `json:"id"`
	Dismissed *bool  `json:"dismissed"`
}

func (c *Controller) setDismissedCall(_ context.Context, r *setDismissedReq) (any, error) {
	d := true
	if r.Dismissed != nil {
		d = *r.Dismissed
	}
	if err := c.SetDismissed(r.ID, d); err != nil {
		return nil, fmt.Errorf("%s: %w", r.ID, err)
	}
	return map[string]any{"id": r.ID, "dismissed": d, "active": c.ActiveCount()}, nil
}

// --- bulk ---

var bulkTool = &mcp.Tool{
	Name:        "notices_bulk",
	Description: "Mark every notice matching the current filter and search as read or unread.",
	InputSchema: inputSchema(map[string]any{
		"action": map[string]any{"type": "string", "enum": []string{"read", "unread"}},
	}, []string{"action"}),
}

type bulkReq struct {
	Action string `json:"action"`
}

func (c *Controller) bulkCall(_ context.Context, r *bulkReq) (any, error) {
	var n int
	switch r.Action {
	case "read":
		n = c.MarkAllRead()
	case "unread":
		n = c.MarkAllUnread()
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownAction, r.Action)
	}
	return map[string]any{"changed": n, "active": c.ActiveCount()}, nil
}

// --- reveal ---

var revealTool = &mcp.Tool{
	Name:        "notices_reveal",
	Description: "Show the original notice in the page, scroll to it and close the panel.",
	InputSchema: inputSchema(map[string]any{
		"id": map[string]any{"type": "string"},
	}, []string{"id"}),
}

type revealReq struct {
	ID string `json:"id"`
}

func (c *Controller) revealCall(_ context.Context, r *revealReq) (any, error) {
	if err := c.Reveal(r.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", r.ID, err)
	}
	return map[string]any{"id": r.ID}, nil
}

// --- toggle ---

var toggleTool = &mcp.Tool{
	Name:        "panel_toggle",
	Description: "Open the panel if closed, close it if open.",
	InputSchema: inputSchema(map[string]any{}, nil),
}

func (c *Controller) toggleCall(_ context.Context, _ *struct{}) (any, error) {
	c.Toggle()
	return map[string]any{"open": c.IsOpen()}, nil
}
