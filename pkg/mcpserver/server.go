package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"codescope/pkg/engine"
	"codescope/pkg/logging"
)

const protocolVersion = "2024-11-05"

// Server runs the MCP message loop. Stdout carries only JSON-RPC;
// logging goes to the rotating file and stderr.
type Server struct {
	engine  *engine.Engine
	version string
	stdin   io.Reader
	stdout  io.Writer
	logger  *zap.Logger
}

// New builds a server over stdin/stdout.
func New(eng *engine.Engine, version string) *Server {
	return &Server{
		engine:  eng,
		version: version,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		logger:  logging.Get(),
	}
}

// SetStreams overrides the transport streams (tests).
func (s *Server) SetStreams(in io.Reader, out io.Writer) {
	s.stdin = in
	s.stdout = out
}

// Start processes messages until stdin closes.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("mcp server starting", zap.String("version", s.version))

	scanner := bufio.NewScanner(s.stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			s.write(errorMessage(nil, ParseError, fmt.Sprintf("failed to parse message: %v", err)))
			continue
		}

		response := s.handle(ctx, &msg)
		if response != nil {
			s.write(response)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	s.logger.Info("mcp server shutting down (EOF)")
	return nil
}

func (s *Server) handle(ctx context.Context, msg *Message) *Message {
	if msg.isNotification() {
		// notifications/initialized and friends need no reply.
		return nil
	}

	switch msg.Method {
	case "initialize":
		return resultMessage(msg.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo": map[string]any{
				"name":    "codescope",
				"version": s.version,
			},
		})
	case "ping":
		return resultMessage(msg.ID, map[string]any{})
	case "tools/list":
		return resultMessage(msg.ID, map[string]any{"tools": toolDefinitions()})
	case "tools/call":
		return s.handleToolCall(ctx, msg)
	default:
		return errorMessage(msg.ID, MethodNotFound, fmt.Sprintf("unknown method %q", msg.Method))
	}
}

func (s *Server) handleToolCall(ctx context.Context, msg *Message) *Message {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return errorMessage(msg.ID, InvalidParams, fmt.Sprintf("bad tools/call params: %v", err))
	}

	s.logger.Info("tool call", zap.String("tool", params.Name))

	result, err := s.dispatch(ctx, params.Name, params.Arguments)
	if err != nil {
		// Tool-level failures are reported in-band so the client can
		// show them to the model; protocol-level errors stay above.
		return resultMessage(msg.ID, errorResult(err.Error()))
	}
	return resultMessage(msg.ID, result)
}

func (s *Server) write(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to marshal response", zap.Error(err))
		return
	}
	data = append(data, '\n')
	if _, err := s.stdout.Write(data); err != nil {
		s.logger.Error("failed to write response", zap.Error(err))
	}
}
