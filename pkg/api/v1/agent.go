package v1

// Language selects the localized system prompt and human-facing messages an
// Agent uses for a task.
type Language string

const (
	LanguageChinese Language = "cn"
	LanguageEnglish Language = "en"
)

// AgentConfig parameterizes a single task's Agent loop. Immutable per task.
type AgentConfig struct {
	// MaxSteps bounds the number of loop iterations. Default 100, must be >=1.
	MaxSteps int `json:"maxSteps" mapstructure:"maxSteps"`

	// DeviceID pins the task to a specific device. When empty, the first
	// device reported by ConnectionManager.ListDevices is auto-selected at
	// task start and held for the task's lifetime.
	DeviceID string `json:"deviceId,omitempty" mapstructure:"deviceId"`

	Language   Language `json:"language" mapstructure:"language"`
	Verbose    bool     `json:"verbose" mapstructure:"verbose"`
	Recording  bool     `json:"recording" mapstructure:"recording"`
}

// DefaultAgentConfig returns the documented defaults: 100 max steps, English.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxSteps: 100,
		Language: LanguageEnglish,
	}
}
