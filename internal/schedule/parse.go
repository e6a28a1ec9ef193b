package schedule

import (
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/gjson"
)

// ParseError marks a hard parse failure for a generation round: the
// response was not JSON, or it lacked a schedule_items array.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parsing llm response: " + e.Reason
}

// ParseItems extracts the raw schedule_items records from a model
// response. The response may be wrapped in markdown fences and may
// contain unescaped control characters inside string values; both are
// repaired before parsing. Structural healing of the records themselves
// happens later in Sanitize.
func ParseItems(response string) ([]map[string]any, error) {
	cleaned := stripFences(response)
	cleaned = escapeControlChars(cleaned)

	if !gjson.Valid(cleaned) {
		repaired, err := jsonrepair.JSONRepair(cleaned)
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
		}
		cleaned = repaired
		if !gjson.Valid(cleaned) {
			return nil, &ParseError{Reason: "response is not valid JSON even after repair"}
		}
	}

	items := gjson.Get(cleaned, "schedule_items")
	if !items.Exists() {
		return nil, &ParseError{Reason: "missing schedule_items field"}
	}
	if !items.IsArray() {
		return nil, &ParseError{Reason: "schedule_items is not an array"}
	}

	var records []map[string]any
	for _, el := range items.Array() {
		if m, ok := el.Value().(map[string]any); ok {
			records = append(records, m)
		}
	}
	return records, nil
}

// stripFences removes a surrounding markdown code block, with or
// without a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimLeft(s[7:], " \n\r\t")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimLeft(s[3:], " \n\r\t")
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimRight(s[:len(s)-3], " \n\r\t")
	}
	return strings.TrimSpace(s)
}

// escapeControlChars escapes raw control characters that appear inside
// JSON string values. Models occasionally emit literal newlines or tabs
// inside descriptions, which strict JSON rejects. Characters outside
// strings are left alone.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		switch {
		case inString && r == '\\':
			b.WriteRune(r)
			escaped = true
		case r == '"':
			inString = !inString
			b.WriteRune(r)
		case inString && r < 0x20:
			switch r {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			case '\b':
				b.WriteString(`\b`)
			case '\f':
				b.WriteString(`\f`)
			default:
				fmt.Fprintf(&b, `\u%04x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
