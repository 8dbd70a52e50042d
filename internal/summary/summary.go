// Package summary reads and writes solved constraint graphs in a DOT-like
// text format so a callee can be instantiated at call sites without being
// solved again.
//
// One file holds any number of graphs, each preceded by a "// name" comment:
//
//	// memcpy
//	digraph memcpy {
//	  node [shape=record];
//	  n0 [label="{0|dst⊕|c0 pointer}"];
//	  n1 [label="{1|dst.store8⊖|c1 unknown}"];
//	  n1 -> n0 [label="forget store8"];
//	}
//
// A node label is a record of the node number, its key and its value class
// (class number and pointer-or-number value). Nodes that share a class
// number share one class when the graph is rebuilt.
package summary

import (
	"fmt"
	"strconv"
	"strings"

	"retype/internal/cgraph"
	"retype/internal/pni"
	"retype/internal/schema"
	"retype/internal/source"
)

// Node is one graph node of a summary.
type Node struct {
	ID    int
	Key   cgraph.NodeKey
	Class int
	Value pni.Value
	Span  source.Span
}

// Edge connects two summary nodes by index.
type Edge struct {
	From, To int
	Label    schema.EdgeLabel
	Span     source.Span
}

// Summary is the persisted form of one function's graph.
type Summary struct {
	Comment string
	Name    string
	Nodes   []Node
	Edges   []Edge
}

// FromGraph captures every node and edge of g except the start and end
// terminals. Nodes are numbered in key order and classes by first use, so
// equal graphs give equal text.
func FromGraph(g *cgraph.Graph) *Summary {
	s := &Summary{Comment: g.Name, Name: g.Name}
	index := map[cgraph.NodeID]int{}
	classes := map[pni.Handle]int{}
	for _, id := range g.Nodes() {
		if id == g.Start() || id == g.End() {
			continue
		}
		owner := g.PNI().Find(g.Node(id).Class)
		c, ok := classes[owner]
		if !ok {
			c = len(classes)
			classes[owner] = c
		}
		index[id] = len(s.Nodes)
		s.Nodes = append(s.Nodes, Node{ID: len(s.Nodes), Key: g.KeyOf(id), Class: c, Value: g.Value(id)})
	}
	for _, e := range g.Edges() {
		from, ok1 := index[e.From]
		to, ok2 := index[e.To]
		if !ok1 || !ok2 {
			continue
		}
		s.Edges = append(s.Edges, Edge{From: from, To: to, Label: e.Label})
	}
	return s
}

// ToGraph rebuilds a solved graph. Edges go through the usual checks, so a
// summary that breaks a graph invariant is rejected with an
// *cgraph.InvariantError.
func ToGraph(s *Summary, opts cgraph.Options) (*cgraph.Graph, error) {
	g := cgraph.New(s.Name, opts)
	classes := map[int]pni.Handle{}
	ids := make([]cgraph.NodeID, len(s.Nodes))
	for i, n := range s.Nodes {
		h, ok := classes[n.Class]
		if !ok {
			h = g.PNI().New(n.Value)
			classes[n.Class] = h
		}
		ids[i] = g.InsertNodeWithClass(n.Key, h)
	}
	for _, e := range s.Edges {
		if e.From < 0 || e.From >= len(ids) || e.To < 0 || e.To >= len(ids) {
			return nil, fmt.Errorf("summary %s: edge %d -> %d out of range", s.Name, e.From, e.To)
		}
		if _, err := g.AddEdge(ids[e.From], ids[e.To], e.Label); err != nil {
			return nil, fmt.Errorf("summary %s: %w", s.Name, err)
		}
	}
	g.Solve()
	return g, nil
}

// recordEscaper escapes the characters DOT gives meaning inside record labels.
var recordEscaper = strings.NewReplacer(`\`, `\\`, "{", `\{`, "}", `\}`, "|", `\|`, "<", `\<`, ">", `\>`, " ", `\ `)

func (n Node) record() string {
	return fmt.Sprintf("{%d|%s|c%d %s}", n.ID, recordEscaper.Replace(n.Key.String()), n.Class, recordEscaper.Replace(n.Value.String()))
}

// splitRecord undoes record(): it strips the braces and splits on unescaped
// bars, removing the escapes.
func splitRecord(s string) ([]string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, false
	}
	s = s[1 : len(s)-1]
	var (
		fields []string
		b      strings.Builder
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			i++
			b.WriteByte(s[i])
		case c == '|':
			fields = append(fields, b.String())
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	return append(fields, b.String()), true
}

func parseRecord(label string) (id int, key cgraph.NodeKey, class int, v pni.Value, err error) {
	fields, ok := splitRecord(label)
	if !ok || len(fields) != 3 {
		return 0, key, 0, v, fmt.Errorf("node label %q is not a {id|key|class} record", label)
	}
	if id, err = strconv.Atoi(strings.TrimSpace(fields[0])); err != nil {
		return 0, key, 0, v, fmt.Errorf("node number %q: %w", fields[0], err)
	}
	if key, err = cgraph.ParseNodeKey(fields[1]); err != nil {
		return 0, key, 0, v, err
	}
	cls, val, ok := strings.Cut(strings.TrimSpace(fields[2]), " ")
	if !ok || !strings.HasPrefix(cls, "c") {
		return 0, key, 0, v, fmt.Errorf("class %q should read \"cN value\"", fields[2])
	}
	if class, err = strconv.Atoi(cls[1:]); err != nil {
		return 0, key, 0, v, fmt.Errorf("class number %q: %w", cls, err)
	}
	v, err = parseValue(val)
	return id, key, class, v, err
}

// parseValue reads pni.Value.String: a kind, "primitive(name)" and an
// optional "!" conflict marker.
func parseValue(s string) (pni.Value, error) {
	var v pni.Value
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutSuffix(s, "!"); ok {
		v.Conflict = true
		s = rest
	}
	if rest, ok := strings.CutPrefix(s, "primitive("); ok {
		name, ok := strings.CutSuffix(rest, ")")
		if !ok || name == "" {
			return v, fmt.Errorf("malformed primitive value %q", s)
		}
		v.Kind, v.Prim = pni.NotApplicable, name
		return v, nil
	}
	k, ok := pni.ParsePtrOrNum(s)
	if !ok || k == pni.NotApplicable {
		return v, fmt.Errorf("unknown value %q", s)
	}
	v.Kind = k
	return v, nil
}
