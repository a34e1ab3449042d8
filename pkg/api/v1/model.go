package v1

import "time"

// ModelConfig parameterizes a single task's calls to the vision-language
// model. Immutable for the lifetime of the task.
type ModelConfig struct {
	Endpoint          string        `json:"endpoint" mapstructure:"endpoint"`
	APIKey            string        `json:"-" mapstructure:"apiKey"`
	Model             string        `json:"model" mapstructure:"model"`
	MaxTokens         int           `json:"maxTokens" mapstructure:"maxTokens"`
	Temperature       float64       `json:"temperature" mapstructure:"temperature"`
	TopP              float64       `json:"topP" mapstructure:"topP"`
	FrequencyPenalty  float64       `json:"frequencyPenalty" mapstructure:"frequencyPenalty"`
	BaseTimeout       time.Duration `json:"baseTimeout" mapstructure:"baseTimeout"`
	MaxTimeout        time.Duration `json:"maxTimeout" mapstructure:"maxTimeout"`
	RetryCount        int           `json:"retryCount" mapstructure:"retryCount"`
	RetryDelays       []time.Duration `json:"retryDelays" mapstructure:"retryDelays"`
	ContentFactor     time.Duration `json:"contentFactor" mapstructure:"contentFactor"`
	ImageFactor       time.Duration `json:"imageFactor" mapstructure:"imageFactor"`
	RetryGrowthFactor float64       `json:"retryGrowthFactor" mapstructure:"retryGrowthFactor"`
}

// DefaultModelConfig returns sane defaults matching the timeout formula
// described for the model client: ~60s for a single-image step.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		MaxTokens:         1024,
		Temperature:       0.0,
		TopP:              0.9,
		FrequencyPenalty:  0.0,
		BaseTimeout:       30 * time.Second,
		MaxTimeout:        180 * time.Second,
		RetryCount:        3,
		RetryDelays:       []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
		ContentFactor:     time.Millisecond * 2,
		ImageFactor:       30 * time.Second,
		RetryGrowthFactor: 1.5,
	}
}

// MessageRole is the role of a chat message per the OpenAI-compatible schema.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ContentPartType distinguishes text from image parts in a multimodal
// message.
type ContentPartType string

const (
	ContentText  ContentPartType = "text"
	ContentImage ContentPartType = "image"
)

// ContentPart is one part of a multimodal message's content. For ContentImage,
// ImageURL holds a data: URL (`data:image/png;base64,<...>`).
type ContentPart struct {
	Type     ContentPartType `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL string          `json:"imageUrl,omitempty"`
}

// Message is one turn of the conversation context sent to the model.
type Message struct {
	Role  MessageRole   `json:"role"`
	Parts []ContentPart `json:"parts"`
}

// TextLen returns the total character count across all text parts, used by
// the adaptive timeout formula.
func (m Message) TextLen() int {
	n := 0
	for _, p := range m.Parts {
		if p.Type == ContentText {
			n += len(p.Text)
		}
	}
	return n
}

// ImageCount returns the number of image parts in the message.
func (m Message) ImageCount() int {
	n := 0
	for _, p := range m.Parts {
		if p.Type == ContentImage {
			n++
		}
	}
	return n
}

// ModelReply is the parsed result of a single ModelClient.Request call.
type ModelReply struct {
	Thought           string `json:"thought"`
	ActionText        string `json:"actionText"`
	RawBytes          []byte `json:"-"`
	RequestDurationMs int64  `json:"requestDurationMs"`
}
