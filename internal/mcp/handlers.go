package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/brushport/internal/config"
	"github.com/hpungsan/brushport/internal/errors"
	"github.com/hpungsan/brushport/internal/ops"
	"github.com/hpungsan/brushport/internal/report"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	cfg     *config.Config
	baseDir string
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg *config.Config, baseDir string, logger *slog.Logger) *Handlers {
	return &Handlers{cfg: cfg, baseDir: baseDir, logger: logger}
}

// ConvertRequest represents the arguments for brush_convert.
type ConvertRequest struct {
	Source     string `json:"source"`
	OutDir     string `json:"out_dir"`
	Template   string `json:"template,omitempty"`
	SkipStamps bool   `json:"skip_stamps,omitempty"`
}

// InspectRequest represents the arguments for brush_inspect.
type InspectRequest struct {
	Source   string `json:"source"`
	Template string `json:"template,omitempty"`
	Format   string `json:"format,omitempty"`
}

// HandleConvert handles the brush_convert tool call.
func (h *Handlers) HandleConvert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ConvertRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Source == "" || input.OutDir == "" {
		return errorResult(errors.NewInvalidRequest("source and out_dir are required")), nil
	}

	templatePath, err := ops.ResolveTemplate(input.Template, h.cfg, h.baseDir)
	if err != nil {
		return errorResult(err), nil
	}

	cfg := *h.cfg
	cfg.SkipStamps = cfg.SkipStamps || input.SkipStamps

	result, err := ops.Convert(ctx, &cfg, ops.ConvertInput{
		Source:       input.Source,
		OutDir:       input.OutDir,
		TemplatePath: templatePath,
		Logger:       h.logger,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleInspect handles the brush_inspect tool call.
func (h *Handlers) HandleInspect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[InspectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Source == "" {
		return errorResult(errors.NewInvalidRequest("source is required")), nil
	}
	if input.Format != "" && input.Format != "json" && input.Format != "markdown" {
		return errorResult(errors.NewInvalidRequest("format must be one of: json, markdown")), nil
	}

	templatePath := input.Template
	if templatePath == "" {
		if p, err := ops.ResolveTemplate("", h.cfg, h.baseDir); err == nil {
			templatePath = p
		}
	}

	result, err := ops.Inspect(ctx, ops.InspectInput{
		Source:       input.Source,
		TemplatePath: templatePath,
		Logger:       h.logger,
	})
	if err != nil {
		return errorResult(err), nil
	}

	if input.Format == "markdown" {
		return mcp.NewToolResultText(report.InspectMarkdown(result)), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var bErr *errors.BrushError
	if stderrors.As(err, &bErr) {
		errorObj := map[string]any{
			"code":    bErr.Code,
			"scope":   bErr.Scope.String(),
			"message": bErr.Message,
		}
		if bErr.Code != errors.ErrInternal && bErr.Details != nil {
			errorObj["details"] = bErr.Details
		}
		if bErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"scope":   errors.ScopeRun.String(),
				"message": "an internal error occurred",
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
