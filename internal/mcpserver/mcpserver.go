// Package mcpserver exposes the tracker as Model Context Protocol tools so an
// assistant can list, add and check statutes.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raysh454/lawtrack/internal/app"
	"github.com/raysh454/lawtrack/internal/logging"
	"github.com/raysh454/lawtrack/internal/model"
	"github.com/raysh454/lawtrack/internal/tracker"
)

const defaultHistoryLimit = 20

// Server wraps an MCP server whose tools delegate to the orchestrator.
type Server struct {
	srv    *mcp.Server
	orch   *app.Orchestrator
	logger logging.Logger
}

func New(orch *app.Orchestrator, version string, logger logging.Logger) (*Server, error) {
	if orch == nil {
		return nil, errors.New("mcpserver: nil orchestrator provided")
	}
	if logger == nil {
		return nil, errors.New("mcpserver: nil logger provided")
	}
	s := &Server{
		srv:    mcp.NewServer(&mcp.Implementation{Name: "lawtrack", Version: version}, nil),
		orch:   orch,
		logger: logger.With(logging.Field{Key: "component", Value: "mcp"}),
	}
	s.registerListTool()
	s.registerAddTool()
	s.registerCheckTool()
	s.registerHistoryTool()
	s.registerRelatedTool()
	return s, nil
}

// MCP returns the underlying server for custom transports.
func (s *Server) MCP() *mcp.Server { return s.srv }

// Run serves over stdio until ctx ends or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting on stdio")
	return s.srv.Run(ctx, &mcp.StdioTransport{})
}

type endpoint func(ctx context.Context, args json.RawMessage) (any, error)

// addTool registers fn as a tool. Errors come back as tool errors and the
// result is returned as JSON text.
func (s *Server) addTool(tool *mcp.Tool, fn endpoint) {
	s.srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := fn(ctx, req.Params.Arguments)
		if err != nil {
			s.logger.Warn("tool call failed",
				logging.Field{Key: "tool", Value: tool.Name},
				logging.Field{Key: "error", Value: err.Error()})
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
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

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// --- list_tracked_laws ---

type lawSummary struct {
	Name        string  `json:"name"`
	PubDate     string  `json:"pub_date"`
	LastChecked *string `json:"last_checked"`
	ChangeCount int     `json:"change_count"`
	Category    string  `json:"category"`
}

func (s *Server) registerListTool() {
	tool := &mcp.Tool{
		Name:        "list_tracked_laws",
		Description: "List the statutes currently tracked, with their publication date and change count.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	s.addTool(tool, func(ctx context.Context, _ json.RawMessage) (any, error) {
		laws, err := s.orch.ListLaws(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]lawSummary, 0, len(laws))
		for _, l := range laws {
			sum := lawSummary{
				Name:        l.Name,
				PubDate:     l.LastPubDate,
				ChangeCount: l.ChangeCount,
				Category:    s.orch.LawInfo(l.Name).Category,
			}
			if l.LastChecked != nil {
				ts := l.LastChecked.Format("2006-01-02 15:04:05")
				sum.LastChecked = &ts
			}
			out = append(out, sum)
		}
		return map[string]any{"count": len(out), "laws": out}, nil
	})
}

// --- add_law ---

type nameReq struct {
	Name string `json:"name"`
}

func (s *Server) registerAddTool() {
	tool := &mcp.Tool{
		Name:        "add_law",
		Description: "Start tracking a statute by its Korean name.",
		InputSchema: inputSchema(map[string]any{
			"name": map[string]any{"type": "string", "description": "Statute name, e.g. 사립학교법"},
		}, []string{"name"}),
	}
	s.addTool(tool, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var r nameReq
		if err := decodeArgs(raw, &r); err != nil {
			return nil, err
		}
		law, err := s.orch.AddLaw(ctx, r.Name)
		if err != nil {
			return nil, err
		}
		return law, nil
	})
}

// --- check_updates ---

type checkResp struct {
	Checked   int                  `json:"checked"`
	Changed   int                  `json:"changed"`
	Unchanged int                  `json:"unchanged"`
	Failed    []string             `json:"failed"`
	Updates   []model.UpdateRecord `json:"updates"`
}

func (s *Server) registerCheckTool() {
	tool := &mcp.Tool{
		Name:        "check_updates",
		Description: "Check every tracked statute for a new publication and record the changes found.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	s.addTool(tool, func(ctx context.Context, _ json.RawMessage) (any, error) {
		report, err := s.orch.CheckUpdates(ctx)
		if err != nil {
			return nil, err
		}
		resp := checkResp{
			Checked:   len(report.Outcomes),
			Changed:   report.Succeeded,
			Unchanged: report.Unchanged,
			Failed:    []string{},
			Updates:   report.Updates,
		}
		for _, o := range report.Outcomes {
			if o.State == tracker.StateFailed {
				resp.Failed = append(resp.Failed, o.Name+": "+o.Reason)
			}
		}
		if resp.Updates == nil {
			resp.Updates = []model.UpdateRecord{}
		}
		return resp, nil
	})
}

// --- update_history ---

type historyReq struct {
	Limit int `json:"limit"`
}

func (s *Server) registerHistoryTool() {
	tool := &mcp.Tool{
		Name:        "update_history",
		Description: "Recent recorded statute changes, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum records (default 20)"},
		}, nil),
	}
	s.addTool(tool, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var r historyReq
		if err := decodeArgs(raw, &r); err != nil {
			return nil, err
		}
		if r.Limit <= 0 {
			r.Limit = defaultHistoryLimit
		}
		recs, err := s.orch.History(ctx, r.Limit)
		if err != nil {
			return nil, err
		}
		if recs == nil {
			recs = []model.UpdateRecord{}
		}
		return map[string]any{"records": recs}, nil
	})
}

// --- related_laws ---

func (s *Server) registerRelatedTool() {
	tool := &mcp.Tool{
		Name:        "related_laws",
		Description: "Category, description and related statutes for a statute name.",
		InputSchema: inputSchema(map[string]any{
			"name": map[string]any{"type": "string", "description": "Full or partial statute name"},
		}, []string{"name"}),
	}
	s.addTool(tool, func(_ context.Context, raw json.RawMessage) (any, error) {
		var r nameReq
		if err := decodeArgs(raw, &r); err != nil {
			return nil, err
		}
		if r.Name == "" {
			return nil, errors.New("name is required")
		}
		return s.orch.LawInfo(r.Name), nil
	})
}
