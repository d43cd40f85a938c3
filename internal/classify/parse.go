package classify

import (
	"fmt"
	"strconv"
	"strings"
)

// Fields is the structured summary extracted from a relevant response.
type Fields struct {
	Score  int
	Topic  string
	Event  string
	Impact string
	Data   string
}

var fieldLabels = []string{"TOPIC:", "EVENT:", "IMPACT:", "DATA:"}

// ParseResponse interprets one model reply. The expected format is:
//
//	SCORE: <n>          (optional priority line)
//	TOPIC: ...
//	EVENT: ...
//	IMPACT: ...
//	DATA: ...
//
// or the single word IRRELEVANT as the leading token for a rejection.
// relevant is false for rejections. A reply that is neither a rejection nor
// carries all four labeled fields returns an error; callers treat that as a
// rejection and log a warning. Parsing is pure: the same input always
// produces the same result.
func ParseResponse(text string) (f Fields, relevant bool, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Fields{}, false, fmt.Errorf("empty response")
	}
	if strings.HasPrefix(strings.ToUpper(text), "IRRELEVANT") {
		return Fields{}, false, nil
	}

	values := map[string]*strings.Builder{}
	var current *strings.Builder

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if i == 0 && strings.HasPrefix(strings.ToUpper(trimmed), "SCORE:") {
			raw := strings.TrimSpace(trimmed[len("SCORE:"):])
			if n, convErr := strconv.Atoi(raw); convErr == nil {
				f.Score = n
			}
			continue
		}

		matched := false
		for _, label := range fieldLabels {
			if strings.HasPrefix(strings.ToUpper(trimmed), label) {
				b := &strings.Builder{}
				b.WriteString(strings.TrimSpace(trimmed[len(label):]))
				values[label] = b
				current = b
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		// Unlabeled line: continuation of the previous field, if any.
		if current != nil && trimmed != "" {
			current.WriteString(" ")
			current.WriteString(trimmed)
		}
	}

	for _, label := range fieldLabels {
		b, ok := values[label]
		if !ok || strings.TrimSpace(b.String()) == "" {
			return Fields{}, false, fmt.Errorf("response missing %s field", strings.TrimSuffix(label, ":"))
		}
	}

	f.Topic = values["TOPIC:"].String()
	f.Event = values["EVENT:"].String()
	f.Impact = values["IMPACT:"].String()
	f.Data = values["DATA:"].String()
	return f, true, nil
}
