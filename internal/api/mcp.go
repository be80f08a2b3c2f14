package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/zadiki/folio/internal/assistant"
	"github.com/zadiki/folio/internal/profile"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Profile *profile.Store
	// NewWidget builds a fresh widget for each ask call.
	NewWidget func() *assistant.Widget
	Version   string
}

// NewMCPServer creates an MCP server exposing the profile and the assistant.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"folio",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("folio serves one professional profile. Read it directly or ask the career assistant about it."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask the career assistant a question about the profile. Each call is a new conversation."),
			mcp.WithString("question", mcp.Description("The question to ask"), mcp.Required()),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("get_section",
			mcp.WithDescription("Return one section of the profile as JSON."),
			mcp.WithString("section",
				mcp.Description("Section name"),
				mcp.Required(),
				mcp.Enum(profile.SectionExperience, profile.SectionSkills, profile.SectionAchievements, profile.SectionEducation),
			),
		),
		mcpGetSection(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"profile://record",
			"Profile",
			mcp.WithResourceDescription("The full profile record as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		res, err := deps.NewWidget().Ask(ctx, question)
		if err != nil {
			return mcpError(fmt.Sprintf("ask failed: %v", err)), nil
		}
		if !res.Dispatched {
			return mcpError("question must not be blank"), nil
		}
		return mcpText(res.Reply.Text), nil
	}
}

func mcpGetSection(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("section")
		if err != nil {
			return mcpError("section is required"), nil
		}

		section, err := deps.Profile.Section(name)
		if errors.Is(err, profile.ErrUnknownSection) {
			return mcpError(fmt.Sprintf("unknown section %q", name)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("loading section: %v", err)), nil
		}

		b, err := json.Marshal(section)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal section: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := deps.Profile.JSON()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
