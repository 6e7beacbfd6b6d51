package retrieval

import (
	"fmt"
	"strconv"
	"strings"
)

// ContextSeparator separates passages in a context block.
const ContextSeparator = "\n\n---\n\n"

// Passage is one retrieved unit of source text.
type Passage struct {
	// ID is the 1-based position in the retrieval result.
	ID int
	// Page is the 1-based source page, zero when unknown.
	Page  int
	Text  string
	Score float64
}

// Label returns the human-readable source reference of the passage.
func (p Passage) Label() string {
	page := "?"
	if p.Page > 0 {
		page = strconv.Itoa(p.Page)
	}
	return fmt.Sprintf("[Source %d | page %s]", p.ID, page)
}

// BuildContext joins labelled passages in the given order.
func BuildContext(passages []Passage) string {
	parts := make([]string, 0, len(passages))
	for _, p := range passages {
		parts = append(parts, p.Label()+"\n"+p.Text)
	}
	return strings.Join(parts, ContextSeparator)
}
