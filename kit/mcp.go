package kit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Codes shared by every tool.
const (
	CodeInvalidArguments = "invalid_arguments"
	CodeFailed           = "failed"
)

// ToolError is the JSON body of a failed tool call.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

func (e *ToolError) Error() string { return e.Code + ": " + e.Message }

// ErrorCodes maps sentinel errors to the codes reported to tool callers.
// Errors matching none of them are reported as CodeFailed.
type ErrorCodes map[error]string

func (m ErrorCodes) code(err error) string {
	for sentinel, code := range m {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeFailed
}

// Tools registers endpoints on one MCP server with shared middleware and
// error codes.
type Tools struct {
	srv   *mcp.Server
	mw    Middleware
	codes ErrorCodes
}

type ToolsOption func(*Tools)

// WithMiddleware wraps every endpoint; the first middleware is the outermost.
func WithMiddleware(mws ...Middleware) ToolsOption {
	return func(t *Tools) { t.mw = Chain(mws...) }
}

func WithErrorCodes(codes ErrorCodes) ToolsOption {
	return func(t *Tools) { t.codes = codes }
}

func NewTools(srv *mcp.Server, opts ...ToolsOption) *Tools {
	t := &Tools{srv: srv, mw: Chain()}
	for _, o := range opts {
		o(t)
	}
	return t
}

// AddTool registers endpoint as tool. Arguments are decoded into a new Req;
// each call gets the mcp transport and a fresh trace id in its context.
// Failures come back as tool results flagged IsError whose text is a
// ToolError, never as protocol errors.
func AddTool[Req any](t *Tools, tool *mcp.Tool, endpoint func(context.Context, *Req) (any, error)) {
	ep := t.mw(func(ctx context.Context, req any) (any, error) {
		return endpoint(ctx, req.(*Req))
	})
	t.srv.AddTool(tool, func(ctx context.Context, call *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		traceID := NewTraceID()
		ctx = WithTraceID(WithTransport(ctx, TransportMCP), traceID)

		var req Req
		if len(call.Params.Arguments) > 0 {
			if err := json.Unmarshal(call.Params.Arguments, &req); err != nil {
				return toolFailure(CodeInvalidArguments, err, traceID), nil
			}
		}
		resp, err := ep(ctx, &req)
		if err != nil {
			return toolFailure(t.codes.code(err), err, traceID), nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return toolFailure(CodeFailed, fmt.Errorf("marshal: %w", err), traceID), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func toolFailure(code string, err error, traceID string) *mcp.CallToolResult {
	body, _ := json.Marshal(ToolError{Code: code, Message: err.Error(), TraceID: traceID})
	var res mcp.CallToolResult
	res.SetError(errors.New(string(body)))
	return &res
}

// DecodeResult turns a tool result received by a client back into its
// payload or a *ToolError.
func DecodeResult(res *mcp.CallToolResult, v any) error {
	if len(res.Content) == 0 {
		return errors.New("kit: empty tool result")
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		return fmt.Errorf("kit: unexpected content %T", res.Content[0])
	}
	if res.IsError {
		var te ToolError
		if err := json.Unmarshal([]byte(tc.Text), &te); err != nil {
			return &ToolError{Code: CodeFailed, Message: tc.Text}
		}
		return &te
	}
	if v == nil {
		return nil
	}
	return json.Unmarshal([]byte(tc.Text), v)
}
