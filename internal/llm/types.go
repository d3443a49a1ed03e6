package llm

// TaskType identifies the pipeline stage a call belongs to. A setting row may
// pin a different model per task; otherwise the provider default is used.
type TaskType string

const (
	TaskTopicExtraction TaskType = "topic_extraction"
	TaskSummarization   TaskType = "summarization"
	TaskExploration     TaskType = "exploration"
	TaskMerge           TaskType = "merge"
)

// ContentPart is one element of a multi-part message content.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ChatMessage is the gateway-side message shape. Content and Parts are
// mutually exclusive; Parts wins when both are set.
type ChatMessage struct {
	Role    string
	Content string
	Parts   []ContentPart
}

// JSONSchema describes a structured-output contract passed to providers that
// support response_format with strict json_schema.
type JSONSchema struct {
	Name   string
	Schema map[string]interface{}
}

// ClientConfig is the resolved per-call provider configuration.
type ClientConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

// Request is a fully-resolved completion request.
type Request struct {
	Messages  []ChatMessage
	MaxTokens int
	Schema    *JSONSchema
}
