package model

import (
	"regexp"
	"strings"
)

var checklistLine = regexp.MustCompile(`^[-*]\s*\[(x|X| |)\]\s*(.*)$`)

// ChecklistItem is one line of a checklist-style card description.
type ChecklistItem struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// ParseChecklist splits a card description into checklist items.
// The second return value is false unless every non-empty line is a
// "- [ ] text" style entry.
func ParseChecklist(description string) ([]ChecklistItem, bool) {
	var items []ChecklistItem
	for _, line := range strings.Split(strings.ReplaceAll(description, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := checklistLine.FindStringSubmatch(line)
		if m == nil {
			return nil, false
		}
		items = append(items, ChecklistItem{
			Text:    m[2],
			Checked: strings.EqualFold(m[1], "x"),
		})
	}
	if len(items) == 0 {
		return nil, false
	}
	return items, true
}

// FormatChecklist renders items back into a card description.
func FormatChecklist(items []ChecklistItem) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		mark := " "
		if it.Checked {
			mark = "x"
		}
		lines = append(lines, "- ["+mark+"] "+it.Text)
	}
	return strings.Join(lines, "\n")
}
