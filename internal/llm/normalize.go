package llm

import "strings"

// wireMessage is the provider-facing message shape. Content is either a plain
// string or an array of parts.
type wireMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// normalizeMessages converts gateway messages to the provider wire shape:
// a single textual part collapses to a plain string, multi-part content stays
// an array, and tool/function-role messages are flattened to user text since
// OpenAI-compatible providers reject orphan tool messages.
func normalizeMessages(messages []ChatMessage) []wireMessage {
	wire := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = "user"
		}

		if role == "tool" || role == "function" {
			wire = append(wire, wireMessage{Role: "user", Content: flattenToText(m)})
			continue
		}

		switch {
		case len(m.Parts) == 1 && m.Parts[0].Type == "text":
			wire = append(wire, wireMessage{Role: role, Content: m.Parts[0].Text})
		case len(m.Parts) > 0:
			wire = append(wire, wireMessage{Role: role, Content: m.Parts})
		default:
			wire = append(wire, wireMessage{Role: role, Content: m.Content})
		}
	}
	return wire
}

func flattenToText(m ChatMessage) string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	texts := make([]string, 0, len(m.Parts))
	for _, p := range m.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}
