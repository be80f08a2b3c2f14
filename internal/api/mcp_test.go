package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/zadiki/folio/internal/assistant"
	"github.com/zadiki/folio/internal/completion"
	"github.com/zadiki/folio/internal/profile"
)

// --- helpers ---

func newTestMCPDeps(c completion.Completer) MCPDeps {
	store := profile.Default()
	return MCPDeps{
		Profile: store,
		NewWidget: func() *assistant.Widget {
			return assistant.New(c, store)
		},
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_Ask(t *testing.T) {
	handler := mcpAsk(newTestMCPDeps(&mockCompleter{reply: "Nairobi, Kenya"}))

	result, err := handler(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
		"question": "What is his current location?",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	if got := toolText(t, result); got != "Nairobi, Kenya" {
		t.Errorf("reply = %q", got)
	}
}

func TestMCPTool_Ask_FailureIsReply(t *testing.T) {
	handler := mcpAsk(newTestMCPDeps(&mockCompleter{err: errors.New("down")}))

	result, _ := handler(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
		"question": "hi",
	}))
	if result.IsError {
		t.Fatalf("completion failure should be a normal reply, got error %q", toolText(t, result))
	}
	if got := toolText(t, result); got != assistant.FailureMessage {
		t.Errorf("reply = %q", got)
	}
}

func TestMCPTool_Ask_Validation(t *testing.T) {
	mc := &mockCompleter{reply: "x"}
	handler := mcpAsk(newTestMCPDeps(mc))

	for _, args := range []map[string]interface{}{{}, {"question": "   "}} {
		result, err := handler(context.Background(), makeCallToolRequest("ask", args))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Errorf("args %v: expected tool error", args)
		}
	}
	if mc.callCount() != 0 {
		t.Errorf("invalid questions sent %d requests", mc.callCount())
	}
}

func TestMCPTool_GetSection(t *testing.T) {
	deps := newTestMCPDeps(&mockCompleter{})
	handler := mcpGetSection(deps)

	result, err := handler(context.Background(), makeCallToolRequest("get_section", map[string]interface{}{
		"section": "experience",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var entries []profile.Experience
	if err := json.Unmarshal([]byte(toolText(t, result)), &entries); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(entries) != len(deps.Profile.Profile().Experience) {
		t.Errorf("got %d entries", len(entries))
	}
}

func TestMCPTool_GetSection_Unknown(t *testing.T) {
	handler := mcpGetSection(newTestMCPDeps(&mockCompleter{}))

	result, _ := handler(context.Background(), makeCallToolRequest("get_section", map[string]interface{}{
		"section": "hobbies",
	}))
	if !result.IsError {
		t.Fatal("expected tool error for unknown section")
	}
	if !strings.Contains(toolText(t, result), "hobbies") {
		t.Errorf("error = %q", toolText(t, result))
	}
}

func TestMCPResource_Profile(t *testing.T) {
	deps := newTestMCPDeps(&mockCompleter{})
	handler := mcpResourceProfile(deps)

	contents, err := handler(context.Background(), makeReadResourceRequest("profile://record"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.MIMEType != "application/json" || tc.URI != "profile://record" {
		t.Errorf("contents = %+v", tc)
	}
	want, _ := deps.Profile.JSON()
	if tc.Text != string(want) {
		t.Error("resource text differs from the profile JSON")
	}
}

func TestMCPServer_ConcurrentAsks(t *testing.T) {
	mc := &mockCompleter{reply: "ok"}
	handler := mcpAsk(newTestMCPDeps(mc))

	var wg sync.WaitGroup
	errs := make(chan string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := handler(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
				"question": "concurrent",
			}))
			if err != nil || result.IsError {
				errs <- "ask failed"
			}
		}()
	}
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Fatal(e)
	}
	if mc.callCount() != 10 {
		t.Errorf("sent %d requests, want 10", mc.callCount())
	}
}

func TestNewMCPServer(t *testing.T) {
	if s := NewMCPServer(newTestMCPDeps(&mockCompleter{})); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}
