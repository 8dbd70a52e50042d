package schema

import (
	"cmp"
	"fmt"
	"strings"
)

// EdgeKind enumerates constraint-graph edge labels.
type EdgeKind uint8

const (
	// EdgeOne is the identity (ε) edge.
	EdgeOne EdgeKind = iota
	// EdgeRecall goes from a variable to the variable extended by one label.
	EdgeRecall
	// EdgeForget goes from a variable to its parent, dropping one label.
	EdgeForget
	// EdgeRecallBase leaves the start node into a base variable.
	EdgeRecallBase
	// EdgeForgetBase leaves a base variable into the end node.
	EdgeForgetBase
)

// EdgeLabel is a tagged union: Field is set for recall/forget edges, Base and
// Variance for the base edges.
type EdgeLabel struct {
	Kind     EdgeKind
	Field    FieldLabel
	Base     TypeVariable
	Variance Variance
}

// One is the identity edge label.
func One() EdgeLabel { return EdgeLabel{Kind: EdgeOne} }

// Recall adds l to the path.
func Recall(l FieldLabel) EdgeLabel { return EdgeLabel{Kind: EdgeRecall, Field: l} }

// Forget removes l from the path.
func Forget(l FieldLabel) EdgeLabel { return EdgeLabel{Kind: EdgeForget, Field: l} }

func RecallBase(tv TypeVariable, v Variance) EdgeLabel {
	return EdgeLabel{Kind: EdgeRecallBase, Base: tv, Variance: v}
}

func ForgetBase(tv TypeVariable, v Variance) EdgeLabel {
	return EdgeLabel{Kind: EdgeForgetBase, Base: tv, Variance: v}
}

// IsOne reports an identity edge.
func (e EdgeLabel) IsOne() bool { return e.Kind == EdgeOne }

func (e EdgeLabel) String() string {
	switch e.Kind {
	case EdgeOne:
		return "1"
	case EdgeRecall:
		return "recall " + e.Field.String()
	case EdgeForget:
		return "forget " + e.Field.String()
	case EdgeRecallBase:
		return "recall_base " + e.Base.String() + e.Variance.Symbol()
	case EdgeForgetBase:
		return "forget_base " + e.Base.String() + e.Variance.Symbol()
	}
	return "?"
}

// Compare gives edge labels a total order.
func (e EdgeLabel) Compare(o EdgeLabel) int {
	if c := cmp.Compare(e.Kind, o.Kind); c != 0 {
		return c
	}
	switch e.Kind {
	case EdgeRecall, EdgeForget:
		return e.Field.Compare(o.Field)
	case EdgeRecallBase, EdgeForgetBase:
		if c := e.Base.Compare(o.Base); c != 0 {
			return c
		}
		return cmp.Compare(e.Variance, o.Variance)
	}
	return 0
}

// Equal reports structural equality.
func (e EdgeLabel) Equal(o EdgeLabel) bool { return e.Compare(o) == 0 }

// ParseEdgeLabel reads the form produced by EdgeLabel.String.
func ParseEdgeLabel(s string) (EdgeLabel, error) {
	s = strings.TrimSpace(s)
	if s == "1" {
		return One(), nil
	}
	head, body, ok := strings.Cut(s, " ")
	if !ok {
		return EdgeLabel{}, &ParseError{Msg: "edge label needs a kind and an operand", Rest: s}
	}
	switch head {
	case "recall", "forget":
		l, rest, err := ParseFieldLabel(body)
		if err != nil {
			return EdgeLabel{}, err
		}
		if rest != "" {
			return EdgeLabel{}, &ParseError{Msg: "trailing input after field label", Rest: rest}
		}
		if head == "recall" {
			return Recall(l), nil
		}
		return Forget(l), nil
	case "recall_base", "forget_base":
		tv, rest, err := ParseTypeVariable(body)
		if err != nil {
			return EdgeLabel{}, err
		}
		v, ok := ParseVariance(rest)
		if !ok {
			return EdgeLabel{}, &ParseError{Msg: "expected variance marker", Rest: rest}
		}
		if head == "recall_base" {
			return RecallBase(tv, v), nil
		}
		return ForgetBase(tv, v), nil
	}
	return EdgeLabel{}, &ParseError{Msg: fmt.Sprintf("unknown edge kind %q", head), Rest: s}
}
