package extraction

import (
	"strings"
)

// DefaultMaxLines caps how many non-empty lines of a document reach the model.
const DefaultMaxLines = 200

// DefaultMinChars is the shortest normalized text worth a model call.
const DefaultMinChars = 20

// SystemPrompt frames the model as a strict extractor.
const SystemPrompt = "You extract calendar events from course documents and answer with JSON only."

const instructions = `Extract calendar events from the document text below.

Output contract:
Return a JSON array. Each element is an object with exactly these fields:
  "title": string
  "start": ISO-8601 string
  "end": ISO-8601 string or null
  "allDay": boolean
  "extendedProps": {"course": string or null, "location": string or null, "raw_line": string or null}
If the output has to be a JSON object, return {"events": <the array>} and nothing else.

Rules:
1. Only include events that the text clearly supports.
2. A date without a time is an all-day event: "allDay": true, "start" is YYYY-MM-DD and "end" is null.
3. A time range fills both "start" and "end".
4. A recurring weekday and time (for example "Lectures every Monday 10:00-11:30") produces one representative occurrence.
5. Times use 24-hour ISO format with seconds: YYYY-MM-DDTHH:MM:SS.
6. Include ambiguous lines with your best interpretation and copy the source line into "raw_line".
7. Output the JSON only. No prose, no comments, no code fences.

Document text:
`

// Normalize prepares raw document text for the prompt: line endings become
// "\n", lines are trimmed, empty lines dropped and only the first maxLines
// non-empty lines are kept. A non-positive maxLines means DefaultMaxLines.
func Normalize(text string, maxLines int) string {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	kept := make([]string, 0, maxLines)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, line)
		if len(kept) == maxLines {
			break
		}
	}
	return strings.Join(kept, "\n")
}

// BuildPrompt returns the full user prompt for already normalized text.
// The same text always yields the same prompt.
func BuildPrompt(normalized string) string {
	return instructions + normalized
}
