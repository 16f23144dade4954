package config

// Config is the root configuration, loaded from ~/.cursor-enhanced-config.json.
type Config struct {
	CursorAgentPath string                    `json:"cursor_agent_path,omitempty"`
	CursorAPIKey    string                    `json:"cursor_api_key,omitempty"`
	MCPConfigPath   string                    `json:"mcp_config_path,omitempty"`
	SystemPrompts   map[string]string         `json:"system_prompts,omitempty"`
	AgentPersonas   []PersonaConfig           `json:"agent_personas,omitempty"`
	Delegate        DelegateConfig            `json:"delegate,omitempty"`
	Channels        ChannelsConfig            `json:"channels,omitempty"`
	Telegram        TelegramPolicyConfig      `json:"telegram,omitempty"`
	Weather         WeatherConfig             `json:"weather,omitempty"`
	Compaction      *CompactionConfig         `json:"compaction,omitempty"`
	Reach           ReachConfig               `json:"reach,omitempty"`
}

// PersonaConfig overrides or adds a delegate persona by id.
type PersonaConfig struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Model        string `json:"model,omitempty"`
}

// DelegateConfig configures sub-agent execution.
type DelegateConfig struct {
	CursorAgentPath        string            `json:"cursor_agent_path,omitempty"`
	TimeoutSeconds         int               `json:"timeout_seconds,omitempty"`          // default 3600, min 60
	DetachedTimeoutSeconds int               `json:"detached_timeout_seconds,omitempty"` // default 3600
	MCPConfigByPersona     map[string]string `json:"mcp_config_by_persona,omitempty"`
	HomeAssistantToken     string            `json:"home_assistant_token,omitempty"`
}

// ChannelsConfig holds per-channel transport settings.
type ChannelsConfig struct {
	Telegram TelegramChannelConfig `json:"telegram,omitempty"`
}

// TelegramChannelConfig holds the bot transport settings.
// The token is also read from env TELEGRAM_BOT_TOKEN (env wins).
type TelegramChannelConfig struct {
	BotToken string `json:"botToken,omitempty"`
}

// TelegramPolicyConfig controls who may talk to the bot.
type TelegramPolicyConfig struct {
	DMPolicy  string   `json:"dm_policy,omitempty"` // "pairing" (default) or "open"
	AllowFrom []string `json:"allow_from,omitempty"` // user ids or "*" (open mode)
	Debug     bool     `json:"debug,omitempty"`
}

// WeatherConfig configures the weather tool.
type WeatherConfig struct {
	DefaultCity  string `json:"default_city,omitempty"`
	ForecastDays int    `json:"forecast_days,omitempty"` // clamped to 1..16
}

// CompactionConfig tunes summarization and the pre-compaction memory flush.
type CompactionConfig struct {
	MemoryFlush *MemoryFlushConfig `json:"memoryFlush,omitempty"`
}

// MemoryFlushConfig gates the advisory durable-memory write before compaction.
type MemoryFlushConfig struct {
	Enabled             *bool `json:"enabled,omitempty"`
	SoftThresholdTokens int   `json:"softThresholdTokens,omitempty"` // default 4000
	ReserveTokensFloor  int   `json:"reserveTokensFloor,omitempty"`  // default 20000
}

// ReachConfig tunes the scheduler loop.
type ReachConfig struct {
	TickSeconds     int    `json:"tick_seconds,omitempty"` // default 90
	DefaultTimezone string `json:"default_timezone,omitempty"`
}

// DelegateTimeout returns the effective delegate timeout in seconds.
func (c *Config) DelegateTimeout(requested int) int {
	t := requested
	if t <= 0 {
		t = c.Delegate.TimeoutSeconds
	}
	if t <= 0 {
		t = 3600
	}
	if t < 60 {
		t = 60
	}
	return t
}

// MemoryFlushSettings resolves the effective memory-flush settings.
// Returns nil when the flush is disabled.
func (c *Config) MemoryFlushSettings() *MemoryFlushConfig {
	mf := &MemoryFlushConfig{}
	if c.Compaction != nil && c.Compaction.MemoryFlush != nil {
		mf = c.Compaction.MemoryFlush
		if mf.Enabled != nil && !*mf.Enabled {
			return nil
		}
	}
	out := &MemoryFlushConfig{
		SoftThresholdTokens: mf.SoftThresholdTokens,
		ReserveTokensFloor:  mf.ReserveTokensFloor,
	}
	if out.SoftThresholdTokens <= 0 {
		out.SoftThresholdTokens = 4000
	}
	if out.ReserveTokensFloor <= 0 {
		out.ReserveTokensFloor = 20000
	}
	return out
}
