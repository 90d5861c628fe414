package mcpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"codescope/pkg/config"
	"codescope/pkg/engine"
	"codescope/pkg/llm"
	"codescope/pkg/logging"
)

func TestMain(m *testing.M) {
	logging.SetForTesting(zap.NewNop())
	os.Exit(m.Run())
}

type canned struct{ reply string }

func (c *canned) Generate(context.Context, string) (string, error) { return c.reply, nil }

func testServer(t *testing.T, reply string) *Server {
	t.Helper()
	cfg := &config.Config{
		Model:         "test-model",
		TokenCeiling:  config.DefaultTokenCeiling,
		RetryDeadline: time.Second,
		RetryBackoff:  time.Millisecond,
		Stagger:       time.Millisecond,
		MaxConcurrent: 2,
		MaxFileSize:   config.DefaultMaxFileSize,
		APIKeys:       []string{"test-key"},
	}
	factory := llm.Factory(func(context.Context, string) (llm.Client, error) {
		return &canned{reply: reply}, nil
	})
	return New(engine.NewWithFactory(cfg, factory), "test")
}

// run feeds newline-delimited requests through the server and returns
// one decoded response per request line.
func run(t *testing.T, s *Server, requests ...string) []Message {
	t.Helper()
	var out bytes.Buffer
	s.SetStreams(strings.NewReader(strings.Join(requests, "\n")+"\n"), &out)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var responses []Message
	scanner := bufio.NewScanner(&out)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			t.Fatalf("bad response line %q: %v", scanner.Text(), err)
		}
		responses = append(responses, msg)
	}
	return responses
}

func resultText(t *testing.T, msg Message) (string, bool) {
	t.Helper()
	data, err := json.Marshal(msg.Result)
	if err != nil {
		t.Fatal(err)
	}
	var res toolResult
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("result is not a tool result: %v", err)
	}
	if len(res.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	return res.Content[0].Text, res.IsError
}

func TestInitializeAndToolsList(t *testing.T) {
	responses := run(t, testServer(t, "ok"),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)
	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2 (notification must not be answered)", len(responses))
	}

	init, _ := json.Marshal(responses[0].Result)
	if !strings.Contains(string(init), "codescope") {
		t.Errorf("initialize result missing server info: %s", init)
	}

	list, _ := json.Marshal(responses[1].Result)
	for _, tool := range []string{"set_workspace", "create_groups", "analyze_groups", "ask"} {
		if !strings.Contains(string(list), tool) {
			t.Errorf("tools/list missing %q", tool)
		}
	}
}

func TestToolCallFlow(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0644); err != nil {
		t.Fatal(err)
	}

	setWS, _ := json.Marshal(map[string]any{
		"name":      "set_workspace",
		"arguments": map[string]string{"path": root},
	})
	ask, _ := json.Marshal(map[string]any{
		"name":      "ask",
		"arguments": map[string]string{"question": "what is this?"},
	})

	responses := run(t, testServer(t, "a tiny Go module"),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":`+string(setWS)+`}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":`+string(ask)+`}`,
	)
	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2", len(responses))
	}

	text, isErr := resultText(t, responses[0])
	if isErr || !strings.Contains(text, root) {
		t.Errorf("set_workspace result = %q (isError=%v)", text, isErr)
	}

	answer, isErr := resultText(t, responses[1])
	if isErr || answer != "a tiny Go module" {
		t.Errorf("ask result = %q (isError=%v)", answer, isErr)
	}
}

func TestToolErrorsAreInBand(t *testing.T) {
	ask, _ := json.Marshal(map[string]any{
		"name":      "ask",
		"arguments": map[string]string{"question": "anything"},
	})
	responses := run(t, testServer(t, "unused"),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":`+string(ask)+`}`,
	)
	// No workspace configured: the tool fails, but as a tool result,
	// not a protocol error.
	if responses[0].Error != nil {
		t.Fatalf("expected in-band tool error, got protocol error %v", responses[0].Error)
	}
	text, isErr := resultText(t, responses[0])
	if !isErr || !strings.Contains(text, "workspace") {
		t.Errorf("tool error = %q (isError=%v)", text, isErr)
	}
}

func TestUnknownMethodAndParseError(t *testing.T) {
	responses := run(t, testServer(t, "ok"),
		`{"jsonrpc":"2.0","id":1,"method":"bogus/method"}`,
		`this is not json`,
	)
	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2", len(responses))
	}
	if responses[0].Error == nil || responses[0].Error.Code != MethodNotFound {
		t.Errorf("response[0].Error = %v, want MethodNotFound", responses[0].Error)
	}
	if responses[1].Error == nil || responses[1].Error.Code != ParseError {
		t.Errorf("response[1].Error = %v, want ParseError", responses[1].Error)
	}
}
