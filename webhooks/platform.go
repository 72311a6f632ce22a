package webhooks

import (
	"fmt"
	"strings"
)

// PlatformHandler is the two-operation contract every messaging-platform
// webhook implements (§4.11 "Platform endpoints"): verify (subscribe
// challenge) and receive (extract sender + text from the platform's
// envelope).
type PlatformHandler interface {
	// Verify answers a subscription challenge. ok is false if verification fails.
	Verify(mode, token, challenge string) (response string, ok bool)
	// Receive extracts the sender identity and message text from a raw
	// platform payload. ok is false when the payload carries no message
	// (e.g. a delivery receipt or typing indicator).
	Receive(payload []byte) (sender, text string, ok bool)
	// MaxMessageLength is the platform's outbound chunking limit.
	MaxMessageLength() int
}

// ParsedCommand is a "/workflow_name rest-of-message" command.
type ParsedCommand struct {
	WorkflowName string
	Input        string
}

// ParseCommand parses a message of the form "/workflow_name <input>",
// grounded on WhatsAppWebhookHandler.parse_workflow_command.
func ParseCommand(message string) (ParsedCommand, bool) {
	message = strings.TrimSpace(message)
	if !strings.HasPrefix(message, "/") {
		return ParsedCommand{}, false
	}
	parts := strings.SplitN(message[1:], " ", 2)
	if parts[0] == "" {
		return ParsedCommand{}, false
	}
	input := ""
	if len(parts) == 2 {
		input = strings.TrimSpace(parts[1])
	}
	return ParsedCommand{WorkflowName: parts[0], Input: input}, true
}

// ChunkMessage splits text into chunks no longer than limit, breaking on
// whitespace where possible so a platform's length limit is never exceeded.
func ChunkMessage(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], ' ')
		if cut <= 0 {
			cut = limit
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func formatAck(workflowName string) string {
	return fmt.Sprintf("Running %s...", workflowName)
}
