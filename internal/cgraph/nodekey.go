package cgraph

import (
	"cmp"
	"strings"

	"retype/internal/schema"
)

// NodeKey identifies a graph node: a derived type variable, the variance of
// its suffix and whether the node lives in the post-forget layer.
type NodeKey struct {
	Var      schema.TypeVariable
	Variance schema.Variance
	NewLayer bool
}

// Key builds a layer-0 key.
func Key(tv schema.TypeVariable, v schema.Variance) NodeKey {
	return NodeKey{Var: tv, Variance: v}
}

// Compare orders keys by variable, variance and layer.
func (k NodeKey) Compare(o NodeKey) int {
	if c := k.Var.Compare(o.Var); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Variance, o.Variance); c != 0 {
		return c
	}
	switch {
	case k.NewLayer == o.NewLayer:
		return 0
	case !k.NewLayer:
		return -1
	}
	return 1
}

// Twin returns the key with the opposite variance in the same layer.
func (k NodeKey) Twin() NodeKey {
	k.Variance = k.Variance.Invert()
	return k
}

// Layer returns the key moved to layer 1 (split) or layer 0.
func (k NodeKey) Layer(split bool) NodeKey {
	k.NewLayer = split
	return k
}

func (k NodeKey) String() string {
	var b strings.Builder
	b.WriteString(k.Var.String())
	b.WriteString(k.Variance.Symbol())
	if k.NewLayer {
		b.WriteByte('\'')
	}
	return b.String()
}

// ParseNodeKey reads the form printed by NodeKey.String.
func ParseNodeKey(s string) (NodeKey, error) {
	var k NodeKey
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutSuffix(s, "'"); ok {
		k.NewLayer = true
		s = rest
	}
	switch {
	case strings.HasSuffix(s, schema.Covariant.Symbol()):
		k.Variance = schema.Covariant
		s = strings.TrimSuffix(s, schema.Covariant.Symbol())
	case strings.HasSuffix(s, schema.Contravariant.Symbol()):
		k.Variance = schema.Contravariant
		s = strings.TrimSuffix(s, schema.Contravariant.Symbol())
	default:
		return NodeKey{}, &schema.ParseError{Msg: "node key needs a variance marker", Rest: s}
	}
	tv, err := schema.ParseVar(s)
	if err != nil {
		return NodeKey{}, err
	}
	k.Var = tv
	return k, nil
}
