package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
)

func toolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "set_workspace",
			Description: "Point codescope at the source tree to analyze. Must be called before the other tools.",
			InputSchema: objectSchema(map[string]any{
				"path": map[string]any{"type": "string", "description": "Absolute path of the source tree"},
			}, []string{"path"}),
		},
		{
			Name:        "create_groups",
			Description: "Scan the workspace and partition its files into token-bounded groups. Returns the group plan; call analyze_groups afterwards.",
			InputSchema: objectSchema(map[string]any{}, nil),
		},
		{
			Name:        "analyze_groups",
			Description: "Analyze every group from the saved plan against a question and return the merged report. Requires create_groups first.",
			InputSchema: objectSchema(map[string]any{
				"question": map[string]any{"type": "string", "description": "The question to answer about the codebase"},
			}, []string{"question"}),
		},
		{
			Name:        "ask",
			Description: "One-shot question answering: scan, group, analyze and merge in a single call.",
			InputSchema: objectSchema(map[string]any{
				"question": map[string]any{"type": "string", "description": "The question to answer about the codebase"},
			}, []string{"question"}),
		},
	}
}

func objectSchema(props map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (s *Server) dispatch(ctx context.Context, name string, rawArgs json.RawMessage) (*toolResult, error) {
	args := map[string]string{}
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, fmt.Errorf("bad arguments: %w", err)
		}
	}

	switch name {
	case "set_workspace":
		path := args["path"]
		if path == "" {
			return nil, fmt.Errorf("set_workspace: path is required")
		}
		ws, err := s.engine.SetWorkspace(path)
		if err != nil {
			return nil, err
		}
		return textResult(fmt.Sprintf("workspace set to %s", ws.Root)), nil

	case "create_groups":
		plan, err := s.engine.CreateGroups(ctx)
		if err != nil {
			return nil, err
		}
		data, err := plan.Encode()
		if err != nil {
			return nil, err
		}
		return textResult(string(data)), nil

	case "analyze_groups":
		question := args["question"]
		report, err := s.engine.AnalyzeGroups(ctx, question)
		if err != nil {
			return nil, err
		}
		return textResult(report), nil

	case "ask":
		question := args["question"]
		answer, err := s.engine.Ask(ctx, question)
		if err != nil {
			return nil, err
		}
		return textResult(answer), nil

	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}
