package summary

import (
	"fmt"
	"io"
	"strings"
)

// dotID quotes name unless it is a plain DOT identifier.
func dotID(name string) string {
	plain := name != ""
	for i := 0; i < len(name) && plain; i++ {
		c := name[i]
		plain = c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || i > 0 && c >= '0' && c <= '9'
	}
	if plain {
		return name
	}
	return quote(name)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// Write prints s in the summary format.
func Write(w io.Writer, s *Summary) error {
	var b strings.Builder
	if s.Comment != "" {
		fmt.Fprintf(&b, "// %s\n", s.Comment)
	}
	fmt.Fprintf(&b, "digraph %s {\n", dotID(s.Name))
	b.WriteString("  node [shape=record];\n")
	for _, n := range s.Nodes {
		fmt.Fprintf(&b, "  n%d [label=%s];\n", n.ID, quote(n.record()))
	}
	for _, e := range s.Edges {
		fmt.Fprintf(&b, "  n%d -> n%d [label=%s];\n", s.Nodes[e.From].ID, s.Nodes[e.To].ID, quote(e.Label.String()))
	}
	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteAll prints several summaries separated by blank lines.
func WriteAll(w io.Writer, ss []*Summary) error {
	for i, s := range ss {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := Write(w, s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Summary) String() string {
	var b strings.Builder
	_ = Write(&b, s)
	return b.String()
}
