package resource

import (
	"fmt"
	"strings"
)

// AgentType selects the agent implementation on the backend.
type AgentType string

const (
	AgentReact    AgentType = "react"
	AgentChat     AgentType = "chat"
	AgentWorkflow AgentType = "workflow"
	AgentLocal    AgentType = "local"
	AgentParallel AgentType = "parallel"
	AgentRemote   AgentType = "remote"
	AgentSSE      AgentType = "sse"
)

// AgentTypes in the order the backend reports them.
var AgentTypes = []AgentType{AgentReact, AgentChat, AgentWorkflow, AgentLocal, AgentParallel, AgentRemote, AgentSSE}

// ParseAgentType is case-insensitive.
func ParseAgentType(s string) (AgentType, error) {
	v := AgentType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range AgentTypes {
		if t == v {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid agent type %q", s)
}

// AgentSpec is the client-writable part of an agent.
type AgentSpec struct {
	Name             string         `json:"name"`
	AgentType        AgentType      `json:"agent_type"`
	Description      string         `json:"description"`
	IsMaster         bool           `json:"is_master"`
	Tools            []string       `json:"tools"`
	SubAgents        []string       `json:"sub_agents"`
	LLMModel         string         `json:"llm_model"`
	AdditionalPrompt string         `json:"additional_prompt"`
	Timeout          *int           `json:"timeout,omitempty"`
	TrustMode        bool           `json:"trust_mode"`
	Config           map[string]any `json:"config,omitempty"`
}

// Agent is an agent as returned by the backend.
type Agent struct {
	ID string `json:"id"`
	AgentSpec
	Status Status `json:"status,omitempty"`
}

func (a Agent) RecordID() string    { return a.ID }
func (a Agent) DisplayName() string { return a.Name }
func (a Agent) Summary() string     { return a.Description }
func (a Agent) Category() string    { return string(a.AgentType) }

// Spec returns the writable fields, with slices copied.
func (a Agent) Spec() AgentSpec {
	s := a.AgentSpec
	s.Tools = append([]string{}, a.Tools...)
	s.SubAgents = append([]string{}, a.SubAgents...)
	return s
}
