package schema

// Variance tells whether subtyping is preserved (covariant) or reversed
// (contravariant) when moving along a field label.
type Variance uint8

const (
	// Covariant preserves the direction of a subtype relation.
	Covariant Variance = iota
	// Contravariant reverses the direction of a subtype relation.
	Contravariant
)

// Invert flips the variance.
func (v Variance) Invert() Variance {
	if v == Covariant {
		return Contravariant
	}
	return Covariant
}

// Combine composes two variances: equal inputs give Covariant, mixed give Contravariant.
func Combine(a, b Variance) Variance {
	if a == b {
		return Covariant
	}
	return Contravariant
}

// PathVariance folds Combine over the intrinsic variance of every label.
func PathVariance(labels []FieldLabel) Variance {
	v := Covariant
	for _, l := range labels {
		v = Combine(v, l.Variance())
	}
	return v
}

// Symbol returns the compact marker used in node keys and summaries.
func (v Variance) Symbol() string {
	if v == Covariant {
		return "⊕"
	}
	return "⊖"
}

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "covariant"
	case Contravariant:
		return "contravariant"
	}
	return "unknown"
}

// ParseVariance accepts both the long names and the compact symbols.
func ParseVariance(s string) (Variance, bool) {
	switch s {
	case "covariant", "⊕", "+":
		return Covariant, true
	case "contravariant", "⊖", "-":
		return Contravariant, true
	}
	return Covariant, false
}
