package resource

import (
	"fmt"
	"strings"
)

// ToolType is how the backend invokes a tool.
type ToolType string

const (
	ToolFunction ToolType = "function"
	ToolMCP      ToolType = "mcp"
	ToolAPI      ToolType = "api"
)

var ToolTypes = []ToolType{ToolFunction, ToolMCP, ToolAPI}

// Label is the human-readable type name.
func (t ToolType) Label() string {
	switch t {
	case ToolFunction:
		return "Function Tool"
	case ToolMCP:
		return "MCP Tool"
	case ToolAPI:
		return "API Tool"
	}
	return string(t)
}

func ParseToolType(s string) (ToolType, error) {
	v := ToolType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range ToolTypes {
		if t == v {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid tool type %q", s)
}

// ToolSpec is the client-writable part of a tool. Code applies to function
// tools, APISpec to api tools and MCPConfig to mcp tools.
type ToolSpec struct {
	Name        string         `json:"name"`
	ToolType    ToolType       `json:"tool_type"`
	Description string         `json:"description"`
	Config      map[string]any `json:"config,omitempty"`
	Code        string         `json:"code"`
	APISpec     map[string]any `json:"api_spec,omitempty"`
	MCPConfig   map[string]any `json:"mcp_config,omitempty"`
}

type Tool struct {
	ID string `json:"id"`
	ToolSpec
	Status Status `json:"status,omitempty"`
}

func (t Tool) RecordID() string    { return t.ID }
func (t Tool) DisplayName() string { return t.Name }
func (t Tool) Summary() string     { return t.Description }
func (t Tool) Category() string    { return string(t.ToolType) }

func (t Tool) Spec() ToolSpec { return t.ToolSpec }
