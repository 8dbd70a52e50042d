package sketch

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// String prints the sketch as an indented tree. A node reached a second time
// is printed as a back-reference "-> #id".
func (s *Sketch) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sketch %s\n", s.Var)
	seen := make(map[NodeID]bool, len(s.nodes))
	var walk func(id NodeID, depth int, label string)
	walk = func(id NodeID, depth int, label string) {
		b.WriteString(strings.Repeat("  ", depth))
		if label != "" {
			b.WriteString(label)
			b.WriteString(": ")
		}
		if seen[id] {
			fmt.Fprintf(&b, "-> #%d\n", id)
			return
		}
		seen[id] = true
		n := s.nodes[id]
		fmt.Fprintf(&b, "#%d%s %s", id, n.Variance.Symbol(), n.Elem)
		if n.Conflict {
			b.WriteString(" !")
		}
		b.WriteByte('\n')
		for _, e := range n.edges {
			walk(e.To, depth+1, e.Label.String())
		}
	}
	walk(s.Root, 1, "")
	return b.String()
}

type docEdge struct {
	Label string `yaml:"label" json:"label"`
	To    NodeID `yaml:"to" json:"to"`
}

type docNode struct {
	ID       NodeID    `yaml:"id" json:"id"`
	Name     string    `yaml:"name" json:"name"`
	Variance string    `yaml:"variance" json:"variance"`
	Elem     string    `yaml:"elem" json:"elem"`
	Conflict bool      `yaml:"conflict,omitempty" json:"conflict,omitempty"`
	Edges    []docEdge `yaml:"edges,omitempty" json:"edges,omitempty"`
}

// Doc is the flat serialisable form of a sketch.
type Doc struct {
	Var   string    `yaml:"var" json:"var"`
	Root  NodeID    `yaml:"root" json:"root"`
	Nodes []docNode `yaml:"nodes" json:"nodes"`
}

// Doc flattens the sketch.
func (s *Sketch) Doc() Doc {
	d := Doc{Var: s.Var.String(), Root: s.Root, Nodes: make([]docNode, 0, len(s.nodes))}
	for _, n := range s.nodes {
		dn := docNode{ID: n.ID, Name: n.Name, Variance: n.Variance.String(), Elem: n.Elem, Conflict: n.Conflict}
		for _, e := range n.edges {
			dn.Edges = append(dn.Edges, docEdge{Label: e.Label.String(), To: e.To})
		}
		d.Nodes = append(d.Nodes, dn)
	}
	return d
}

// MarshalYAML implements yaml.Marshaler.
func (s *Sketch) MarshalYAML() (any, error) { return s.Doc(), nil }

// YAML encodes the sketch with two-space indentation.
func (s *Sketch) YAML() ([]byte, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode sketch %s: %w", s.Var, err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}
