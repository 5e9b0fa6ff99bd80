package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"splusls/internal/logging"
)

func newTestServer() *Server {
	s := NewServer("splus-mcp", "test", logging.Nop())
	s.RegisterTool(Tool{
		Name:        "echo",
		Description: "Echo the text argument",
		InputSchema: InputSchema{
			Type:       "object",
			Properties: map[string]Property{"text": {Type: "string"}},
			Required:   []string{"text"},
		},
	}, func(ctx context.Context, args map[string]any) (*ToolsCallResult, error) {
		text, _ := args["text"].(string)
		if text == "" {
			return nil, errors.New("text is required")
		}
		return TextResult(text), nil
	})
	return s
}

// exchange runs the server over input and decodes every response line.
func exchange(t *testing.T, s *Server, input string) []map[string]any {
	t.Helper()
	var out strings.Builder
	if err := s.Serve(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	var responses []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	for scanner.Scan() {
		var resp map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("response %q is not JSON: %v", scanner.Text(), err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func errorCode(resp map[string]any) int {
	e, ok := resp["error"].(map[string]any)
	if !ok {
		return 0
	}
	code, _ := e["code"].(float64)
	return int(code)
}

func TestInitializeAndList(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}
{"jsonrpc":"2.0","method":"notifications/initialized"}

{"jsonrpc":"2.0","id":2,"method":"tools/list"}
{"jsonrpc":"2.0","id":3,"method":"ping"}
`
	responses := exchange(t, newTestServer(), input)
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3: %v", len(responses), responses)
	}

	init := responses[0]["result"].(map[string]any)
	if init["protocolVersion"] != ProtocolVersion {
		t.Errorf("protocolVersion = %v", init["protocolVersion"])
	}
	info := init["serverInfo"].(map[string]any)
	if info["name"] != "splus-mcp" || info["version"] != "test" {
		t.Errorf("serverInfo = %v", info)
	}

	tools := responses[1]["result"].(map[string]any)["tools"].([]any)
	if len(tools) != 1 || tools[0].(map[string]any)["name"] != "echo" {
		t.Errorf("tools = %v", tools)
	}
	if responses[2]["id"].(float64) != 3 {
		t.Errorf("ping id = %v", responses[2]["id"])
	}
}

func TestToolsCall(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		code    int
		isError bool
		text    string
	}{
		{
			name: "success",
			line: `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`,
			text: "hi",
		},
		{
			name:    "handler error becomes an error result",
			line:    `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo"}}`,
			isError: true,
			text:    "text is required",
		},
		{
			name: "unknown tool",
			line: `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope"}}`,
			code: MethodNotFound,
		},
		{
			name: "missing params",
			line: `{"jsonrpc":"2.0","id":1,"method":"tools/call"}`,
			code: InvalidParams,
		},
		{
			name: "unknown method",
			line: `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`,
			code: MethodNotFound,
		},
		{
			name: "malformed JSON",
			line: `{"jsonrpc":`,
			code: ParseError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := exchange(t, newTestServer(), tt.line+"\n")
			if len(responses) != 1 {
				t.Fatalf("got %d responses, want 1", len(responses))
			}
			resp := responses[0]
			if got := errorCode(resp); got != tt.code {
				t.Fatalf("error code = %d, want %d (%v)", got, tt.code, resp)
			}
			if tt.code != 0 {
				return
			}
			result := resp["result"].(map[string]any)
			isError, _ := result["isError"].(bool)
			if isError != tt.isError {
				t.Errorf("isError = %v, want %v", isError, tt.isError)
			}
			content := result["content"].([]any)
			if got := content[0].(map[string]any)["text"]; got != tt.text {
				t.Errorf("text = %v, want %q", got, tt.text)
			}
		})
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out strings.Builder
	input := `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n"
	if err := newTestServer().Serve(ctx, strings.NewReader(input), &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Serve() wrote %q after cancellation", out.String())
	}
}
