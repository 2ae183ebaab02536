// Package prompt assembles and bounds the text sent to the completion
// API.
package prompt

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// TruncationMarker is appended when prepared text is cut at the limit.
const TruncationMarker = "..."

// ErrEmptyContent reports that cleaning left nothing to summarize.
var ErrEmptyContent = errors.New("no content found to summarize")

var whitespaceRun = regexp.MustCompile(`\s+`)

// PrepareText collapses whitespace runs, trims the result, and bounds
// it to maxLength characters plus the truncation marker.
func PrepareText(text string, maxLength int) (string, error) {
	cleaned := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if cleaned == "" {
		return "", ErrEmptyContent
	}
	if maxLength > 0 && len(cleaned) > maxLength {
		return Truncate(cleaned, maxLength) + TruncationMarker, nil
	}
	return cleaned, nil
}

// Truncate bounds text to at most max bytes, backing up so the cut
// never splits a multi-byte rune.
func Truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// Mode selects the summary style.
type Mode string

const (
	ModeBrief    Mode = "brief"
	ModeDetailed Mode = "detailed"
)

// DetectMode infers the requested summary style from the message text.
// Brief is the default.
func DetectMode(text string) Mode {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "detailed") {
		return ModeDetailed
	}
	return ModeBrief
}

// SystemPrompt is the persona and style guidance sent with every
// completion request.
const SystemPrompt = `You are SummarizeBot, a helpful assistant that summarizes content.

Guidelines:
- If user asks for "brief" summary, provide 3-5 bullet points
- If user asks for "detailed" summary, provide 2-3 paragraphs
- Default to brief format if not specified
- Be casual and friendly
- If they just say "@bot summarize" with no content, ask what they want summarized`

// BuildUserPrompt combines the user's message with any scraped or
// extracted resource text.
func BuildUserPrompt(message, sourceLabel, resourceText string) string {
	if resourceText == "" {
		return message
	}
	var sb strings.Builder
	sb.WriteString(message)
	sb.WriteString("\nScraped content from ")
	sb.WriteString(sourceLabel)
	sb.WriteString(":\n")
	sb.WriteString(resourceText)
	return sb.String()
}

// FormatSummary prefixes a generated summary with a mode header.
func FormatSummary(content string, mode Mode) string {
	if mode == ModeDetailed {
		return "Here's a detailed summary:\n\n" + content
	}
	return "Here's a brief summary in bullet points:\n\n" + content
}
