package resource

// Dataset is a full snapshot of every collection.
type Dataset struct {
	Agents    []Agent
	Tools     []Tool
	Workflows []Workflow
	MAS       []MAS
	System    SystemConfig
}

func intPtr(v int) *int { return &v }

// Demo returns the fixed demonstration dataset. Each call builds fresh
// values so callers may mutate the result.
func Demo() Dataset {
	return Dataset{
		Agents: []Agent{
			{ID: "1", Status: StatusActive, AgentSpec: AgentSpec{
				Name:        "master_agent",
				AgentType:   AgentReact,
				Description: "Routes requests to the specialist agents",
				IsMaster:    true,
				Tools:       []string{},
				SubAgents:   []string{"2", "3", "4"},
				LLMModel:    "default_llm",
				Timeout:     intPtr(120),
			}},
			{ID: "2", Status: StatusActive, AgentSpec: AgentSpec{
				Name:        "time_agent",
				AgentType:   AgentReact,
				Description: "Answers questions about the current time and time zones",
				Tools:       []string{"1"},
				SubAgents:   []string{},
				LLMModel:    "default_llm",
			}},
			{ID: "3", Status: StatusActive, AgentSpec: AgentSpec{
				Name:             "file_agent",
				AgentType:        AgentReact,
				Description:      "Reads and writes files in the workspace",
				Tools:            []string{"2"},
				SubAgents:        []string{},
				LLMModel:         "default_llm",
				AdditionalPrompt: "Never delete files without confirmation.",
				TrustMode:        true,
			}},
			{ID: "4", Status: StatusInactive, AgentSpec: AgentSpec{
				Name:        "search_agent",
				AgentType:   AgentChat,
				Description: "Looks things up on the web",
				Tools:       []string{"3"},
				SubAgents:   []string{},
				LLMModel:    "default_llm",
				Timeout:     intPtr(30),
			}},
		},
		Tools: []Tool{
			{ID: "1", Status: StatusActive, ToolSpec: ToolSpec{
				Name:        "time_tools",
				ToolType:    ToolFunction,
				Description: "Current time and time zone conversion",
				Code:        "def get_current_time(timezone: str) -> str: ...",
			}},
			{ID: "2", Status: StatusActive, ToolSpec: ToolSpec{
				Name:        "file_tools",
				ToolType:    ToolMCP,
				Description: "Filesystem access over MCP",
				MCPConfig:   map[string]any{"command": "npx", "args": []any{"-y", "@modelcontextprotocol/server-filesystem", "./local_file"}},
			}},
			{ID: "3", Status: StatusActive, ToolSpec: ToolSpec{
				Name:        "web_search",
				ToolType:    ToolAPI,
				Description: "HTTP search API",
				APISpec:     map[string]any{"method": "GET", "url": "https://search.example.com/q"},
			}},
		},
		Workflows: []Workflow{
			{ID: "1", Status: StatusActive, WorkflowSpec: WorkflowSpec{
				Name:        "time_report",
				Description: "Collect the time, then write it to a file",
				Agents:      []string{"2", "3"},
				Connections: []map[string]any{{"from": "2", "to": "3"}},
			}},
			{ID: "2", Status: StatusInactive, WorkflowSpec: WorkflowSpec{
				Name:        "research",
				Description: "Search, then summarize through the master agent",
				Agents:      []string{"4", "1"},
				Connections: []map[string]any{{"from": "4", "to": "1"}},
			}},
		},
		MAS: []MAS{
			{ID: "1", Status: StatusActive, MASSpec: MASSpec{
				Name:        "assistant",
				Description: "Master agent with time and file helpers",
				OxySpace: []map[string]any{
					{"ref": "agent", "id": "1"},
					{"ref": "agent", "id": "2"},
					{"ref": "agent", "id": "3"},
				},
				WelcomeMessage: "Hi, I can tell the time and read files.",
			}},
			{ID: "2", Status: StatusInactive, MASSpec: MASSpec{
				Name:        "research_desk",
				Description: "Search and summarize",
				OxySpace: []map[string]any{
					{"ref": "agent", "id": "4"},
					{"ref": "workflow", "id": "2"},
				},
			}},
		},
		System: SystemConfig{
			LLMConfigs: []LLMConfig{{
				Name:          "default_llm",
				APIKey:        "***",
				BaseURL:       "https://api.example.com",
				ModelName:     "example-model",
				DefaultParams: map[string]any{"temperature": 0.7, "max_tokens": 1000},
			}},
			DatabaseConfigs: []DatabaseConfig{{
				Type:             "elasticsearch",
				ConnectionString: "http://localhost:9200",
				Config:           map[string]any{"index_prefix": "oxygent_"},
			}},
			LogLevel: "INFO",
			CacheDir: "/tmp/oxygent_cache",
			AdditionalConfig: map[string]any{
				"web_service_port":  8000,
				"enable_monitoring": true,
			},
		},
	}
}
