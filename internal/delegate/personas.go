package delegate

import (
	"encoding/json"
	"os"

	"github.com/nextlevelbuilder/openclaw/internal/config"
)

// Persona is a predefined agent personality for delegation.
type Persona struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt"`
	Model        string `json:"model,omitempty"`
}

// defaultPersonas are the built-in delegation roles. Config agent_personas
// entries override by id.
var defaultPersonas = []Persona{
	{
		ID:   "researcher",
		Name: "Researcher",
		SystemPrompt: "You are a thorough researcher. Your role is to gather and summarize information, " +
			"cite sources when possible, and present clear, structured answers. Stay factual and concise.",
	},
	{
		ID:   "coder",
		Name: "Coder",
		SystemPrompt: "You are a pragmatic software engineer. Write clean, working code. Prefer standard libraries " +
			"and clear logic. Include minimal comments only where necessary. Output code first, brief explanation after.",
	},
	{
		ID:   "reviewer",
		Name: "Reviewer",
		SystemPrompt: "You are a critical reviewer. Analyze the given content for correctness, style, security, " +
			"and maintainability. List concrete issues and short suggestions. Be concise and actionable.",
	},
	{
		ID:   "writer",
		Name: "Writer",
		SystemPrompt: "You are a clear technical writer. Explain concepts in plain language, use structure (headers, lists), " +
			"and avoid jargon unless necessary. Keep answers focused and readable.",
	},
	{
		ID:   "home_assistant",
		Name: "Home Assistant",
		SystemPrompt: "Home Assistant specialist. Use MCP to list/control entities, call services, check states; " +
			"suggest automations. Be concise and precise with entity IDs and service names. After adding or " +
			"changing scripts/automations/helpers, verify via MCP (e.g. get state or list the entity) and report " +
			"clearly: \"Success: <entity_id> available\" or \"Failed: <entity_id> not found\". Use MCP server name " +
			"\"home-assistant\" (with hyphen), never \"home_assistant\".",
	},
}

// LoadPersonas returns the persona map, defaults first, then config
// overrides by id.
func LoadPersonas(cfg *config.Config) map[string]Persona {
	out := make(map[string]Persona, len(defaultPersonas))
	for _, p := range defaultPersonas {
		out[p.ID] = p
	}
	if cfg == nil {
		return out
	}
	for _, pc := range cfg.AgentPersonas {
		if pc.ID == "" {
			continue
		}
		p := Persona{ID: pc.ID, Name: pc.Name, SystemPrompt: pc.SystemPrompt, Model: pc.Model}
		if p.Name == "" {
			p.Name = pc.ID
		}
		out[p.ID] = p
	}
	return out
}

// PersonaIDs lists the known persona ids (for not-found errors and tool
// discovery).
func PersonaIDs(personas map[string]Persona) []string {
	ids := make([]string, 0, len(personas))
	for id := range personas {
		ids = append(ids, id)
	}
	return ids
}

// haTokenFromMCPConfig reads the Home Assistant access token out of an MCP
// config file ({"mcpServers": {"home-assistant": {"env": {...}}}}).
func haTokenFromMCPConfig(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(config.ExpandHome(path))
	if err != nil {
		return ""
	}
	var doc struct {
		MCPServers  map[string]mcpServerEntry `json:"mcpServers"`
		MCPServers2 map[string]mcpServerEntry `json:"mcp_servers"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return ""
	}
	servers := doc.MCPServers
	if servers == nil {
		servers = doc.MCPServers2
	}
	for _, key := range []string{"home-assistant", "home_assistant"} {
		if srv, ok := servers[key]; ok {
			if v := srv.Env["HOME_ASSISTANT_ACCESS_TOKEN"]; v != "" {
				return v
			}
			if v := srv.Env["HOME_ASSISTANT_TOKEN"]; v != "" {
				return v
			}
		}
	}
	return ""
}

type mcpServerEntry struct {
	Env map[string]string `json:"env"`
}
