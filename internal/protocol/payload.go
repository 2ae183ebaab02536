// Package protocol parses the message payload shapes the orchestration
// platform is known to send. The inbound format varies (flat fields,
// nested part arrays, double-encoded JSON, form-encoded params), so
// parsing is a fixed list of shape recognizers tried in priority order.
package protocol

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Inbound is the normalized result of payload parsing.
type Inbound struct {
	Text      string
	UserID    string
	ChannelID string
}

// WebhookRequest is the alternate ingress format.
type WebhookRequest struct {
	Text      string `json:"text"`
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
}

// ParseA2A extracts the user-visible text and identity fields from an
// A2A request body. The second return value is false when no known
// shape matched.
func ParseA2A(raw []byte) (Inbound, bool) {
	text, ok := extractMessageContent(raw, 0)
	if !ok {
		return Inbound{}, false
	}
	in := Inbound{Text: text}
	in.UserID, in.ChannelID = extractIdentity(raw)
	return in, true
}

// extractMessageContent tries each recognizer in priority order. depth
// guards against pathological re-encoded payloads.
func extractMessageContent(raw []byte, depth int) (string, bool) {
	if depth > 2 {
		return "", false
	}

	if text, ok := matchMessageParts(raw); ok {
		return cleanMatch(text)
	}
	if text, ok := matchFlatFields(raw); ok {
		return cleanMatch(text)
	}
	if inner, ok := matchDoubleEncoded(raw); ok {
		trimmed := strings.TrimSpace(inner)
		if strings.HasPrefix(trimmed, "{") {
			return extractMessageContent([]byte(trimmed), depth+1)
		}
		return cleanMatch(inner)
	}
	if text, ok := matchFormParams(raw); ok {
		return cleanMatch(text)
	}
	return "", false
}

func cleanMatch(text string) (string, bool) {
	text = strings.TrimSpace(text)
	return text, text != ""
}

// matchMessageParts handles the nested JSON-RPC style shape:
// {params:{message:{parts:[{kind:"text",text:...}|"..."|{data:...}]}}}.
func matchMessageParts(raw []byte) (string, bool) {
	var env struct {
		Params struct {
			Message json.RawMessage `json:"message"`
		} `json:"params"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Params.Message) == 0 {
		return "", false
	}

	var msg struct {
		Parts []json.RawMessage `json:"parts"`
		Text  string            `json:"text"`
	}
	if err := json.Unmarshal(env.Params.Message, &msg); err != nil {
		// message is not an object; a bare string is the text itself.
		var s string
		if json.Unmarshal(env.Params.Message, &s) == nil {
			return s, true
		}
		return "", false
	}

	if len(msg.Parts) > 0 {
		var joined []string
		for _, rawPart := range msg.Parts {
			if text, ok := partText(rawPart); ok {
				joined = append(joined, text)
			}
		}
		if len(joined) > 0 {
			return strings.Join(joined, " "), true
		}
	}

	if msg.Text != "" {
		return msg.Text, true
	}

	// Last resort: surface the whole message object so the bot can at
	// least respond to something.
	return string(env.Params.Message), true
}

func partText(raw []byte) (string, bool) {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s, s != ""
	}
	var part struct {
		Kind string `json:"kind"`
		Text string `json:"text"`
		Data string `json:"data"`
	}
	if json.Unmarshal(raw, &part) != nil {
		return "", false
	}
	if part.Kind != "" && part.Kind != "text" {
		return "", false
	}
	if part.Text != "" {
		return part.Text, true
	}
	if part.Data != "" {
		return part.Data, true
	}
	return "", false
}

// matchFlatFields handles {prompt:...} and {message:...} where message
// may itself be a string or an object.
func matchFlatFields(raw []byte) (string, bool) {
	var flat struct {
		Prompt  string          `json:"prompt"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &flat); err != nil {
		return "", false
	}
	if flat.Prompt != "" {
		return flat.Prompt, true
	}
	if len(flat.Message) == 0 {
		return "", false
	}
	var s string
	if json.Unmarshal(flat.Message, &s) == nil {
		return s, true
	}
	return string(flat.Message), true
}

// matchDoubleEncoded unwraps a body that is itself a JSON-encoded string.
func matchDoubleEncoded(raw []byte) (string, bool) {
	var inner string
	if err := json.Unmarshal(raw, &inner); err != nil {
		return "", false
	}
	return inner, true
}

// matchFormParams handles form-encoded bodies carrying params=<json>.
func matchFormParams(raw []byte) (string, bool) {
	body := strings.TrimSpace(string(raw))
	if body == "" || strings.HasPrefix(body, "{") || !strings.Contains(body, "=") {
		return "", false
	}
	values, err := url.ParseQuery(body)
	if err != nil {
		return "", false
	}
	params := values.Get("params")
	if params == "" {
		return "", false
	}
	wrapped := `{"params":` + params + `}`
	return matchMessageParts([]byte(wrapped))
}

// extractIdentity pulls whichever user/channel identifier spelling the
// payload carries.
func extractIdentity(raw []byte) (userID, channelID string) {
	var ids struct {
		UserID       string `json:"userId"`
		UserIDSnake  string `json:"user_id"`
		ChannelID    string `json:"channelId"`
		ChannelSnake string `json:"channel_id"`
	}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return "", ""
	}
	userID = ids.UserID
	if userID == "" {
		userID = ids.UserIDSnake
	}
	channelID = ids.ChannelID
	if channelID == "" {
		channelID = ids.ChannelSnake
	}
	return userID, channelID
}
