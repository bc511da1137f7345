package domain

import "strings"

// DefaultRulesText is used in prompts when no rule table is available.
const DefaultRulesText = "依台灣稅務規範。"

// RuleTable is the externally supplied business-rule table. Rows are kept
// verbatim; the core never interprets them.
type RuleTable struct {
	Source string     `json:"source"`
	Header []string   `json:"header,omitempty"`
	Rows   [][]string `json:"rows"`
}

func (t *RuleTable) Empty() bool {
	return t == nil || (len(t.Header) == 0 && len(t.Rows) == 0)
}

// Text renders the table tab-separated, header first.
func (t *RuleTable) Text() string {
	if t.Empty() {
		return DefaultRulesText
	}
	var b strings.Builder
	if len(t.Header) > 0 {
		b.WriteString(strings.Join(t.Header, "\t"))
		b.WriteString("\n")
	}
	for _, row := range t.Rows {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
