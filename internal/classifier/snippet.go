// Package classifier decides whether a headline is of national or local
// interest by asking a chat-completion model for a strict JSON verdict.
package classifier

import (
	"fmt"
	"unicode/utf8"
)

// SnippetLimit is the number of runes of body text sent to the model.
const SnippetLimit = 200

const ellipsis = "…"

// SystemPrompt fixes the output contract the model must follow.
const SystemPrompt = `You are a JSON-only classifier. Input is a news article title and snippet.
You must respond with exactly one JSON object, no extra text, in this form:

{
  "scope": "LOCAL" or "GLOBAL",
  "cityState": "<City Name>, <State Code>" or null
}

- If GLOBAL, cityState must be null.
- If LOCAL, cityState must match one city from the US cities list.`

// Snippet truncates body to SnippetLimit runes, appending an ellipsis when
// anything was cut.
func Snippet(body string) string {
	if utf8.RuneCountInString(body) <= SnippetLimit {
		return body
	}
	n := 0
	for i := range body {
		if n == SnippetLimit {
			return body[:i] + ellipsis
		}
		n++
	}
	return body
}

// UserPrompt renders the per-article message.
func UserPrompt(title, snippet string) string {
	return fmt.Sprintf("Title: %s\n\nSnippet: %s", title, snippet)
}
