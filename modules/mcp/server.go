// Package mcp exposes the context engine over the Model Context Protocol:
// assemble_context, list_skills, and load_skill tools served over stdio.
// This is the composition point only; the engine does the work.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	ctxengine "github.com/jmertens/ctxweave/internal/context"
	"github.com/jmertens/ctxweave/internal/session"
	"github.com/jmertens/ctxweave/internal/skill"
)

// Deps bundles the engine pieces the MCP tools need.
type Deps struct {
	Assembler *ctxengine.Assembler
	Skills    *skill.Catalog
	History   session.HistoryStore
	Logger    *slog.Logger

	// MaxTokens resolves the default token ceiling for a task type.
	MaxTokens func(taskType string) int

	// Profile resolves the per-request budget shape for a task type. Nil
	// leaves the assembler's configured default shape.
	Profile func(taskType string) ctxengine.BudgetProfile

	// Version is the server version reported to clients.
	Version string
}

// NewServer creates the MCP server with all tools registered.
func NewServer(deps Deps) *server.MCPServer {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxTokens == nil {
		deps.MaxTokens = func(string) int { return 32768 }
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}

	s := server.NewMCPServer(
		"ctxweave",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s.AddTool(assembleContextTool(), handleAssembleContext(deps))
	s.AddTool(listSkillsTool(), handleListSkills(deps))
	s.AddTool(loadSkillTool(), handleLoadSkill(deps))

	return s
}

// ServeStdio runs the server over stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func assembleContextTool() mcp.Tool {
	return mcp.NewTool("assemble_context",
		mcp.WithDescription("Assemble a full agent context for a session: system layers, active skills, memory, and compressed history within a token budget."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session whose history is assembled."),
		),
		mcp.WithString("task_type",
			mcp.Description("Task type driving skill activation and budget profile selection."),
		),
		mcp.WithNumber("max_tokens",
			mcp.Description("Hard token ceiling. Defaults to the task type's profile."),
		),
		mcp.WithBoolean("subagent",
			mcp.Description("Build a subagent prompt instead of the main one."),
		),
		mcp.WithString("manual_skills",
			mcp.Description("Comma-separated skill names to activate explicitly."),
		),
	)
}

func handleAssembleContext(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		taskType := req.GetString("task_type", "")
		maxTokens := int(req.GetFloat("max_tokens", 0))
		if maxTokens == 0 {
			maxTokens = deps.MaxTokens(taskType)
		}
		var profile *ctxengine.BudgetProfile
		if deps.Profile != nil {
			p := deps.Profile(taskType)
			profile = &p
		}

		var manual []string
		if raw := req.GetString("manual_skills", ""); raw != "" {
			for _, name := range strings.Split(raw, ",") {
				if name = strings.TrimSpace(name); name != "" {
					manual = append(manual, name)
				}
			}
		}

		var messages []session.Message
		if deps.History != nil {
			messages, err = deps.History.Messages(sessionID)
			if err != nil {
				return mcp.NewToolResultError("reading history: " + err.Error()), nil
			}
		}

		result, err := deps.Assembler.BuildContext(ctx, ctxengine.BuildRequest{
			SessionID:    sessionID,
			TaskType:     taskType,
			MaxTokens:    maxTokens,
			Profile:      profile,
			Subagent:     req.GetBool("subagent", false),
			Messages:     messages,
			ManualSkills: manual,
		})
		if err != nil {
			if errors.Is(err, ctxengine.ErrBudgetInfeasible) {
				return mcp.NewToolResultError(fmt.Sprintf("budget of %d tokens cannot cover the system floor", maxTokens)), nil
			}
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError("encoding result: " + err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func listSkillsTool() mcp.Tool {
	return mcp.NewTool("list_skills",
		mcp.WithDescription("List all registered skills with their metadata: name, description, trigger mode, tags, keywords, and source."),
	)
}

func handleListSkills(deps Deps) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		type entry struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Tags        []string `json:"tags,omitempty"`
			Trigger     string   `json:"trigger"`
			Keywords    []string `json:"keywords,omitempty"`
			Source      string   `json:"source"`
		}

		skills := deps.Skills.List(nil)
		entries := make([]entry, len(skills))
		for i, s := range skills {
			entries[i] = entry{
				Name:        s.Name,
				Description: s.Description,
				Tags:        s.Tags,
				Trigger:     string(s.Trigger),
				Keywords:    s.Keywords,
				Source:      s.SourceName,
			}
		}

		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return mcp.NewToolResultError("encoding skills: " + err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func loadSkillTool() mcp.Tool {
	return mcp.NewTool("load_skill",
		mcp.WithDescription("Load the full markdown content of a named skill."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Skill name as returned by list_skills."),
		),
	)
}

func handleLoadSkill(deps Deps) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		content, err := deps.Skills.Load(name)
		if err != nil {
			if errors.Is(err, skill.ErrSkillNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("skill %q is not registered", name)), nil
			}
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(content), nil
	}
}
