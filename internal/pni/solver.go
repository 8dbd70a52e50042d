package pni

import (
	"fmt"

	"fortio.org/safecast"

	"retype/internal/schema"
)

// ConsID indexes an arithmetic constraint.
type ConsID uint32

// Constraint is Result = Left (+|-) Right over value classes.
type Constraint struct {
	Kind   schema.ArithKind
	Left   Handle
	Right  Handle
	Result Handle
	Origin string
	Solved bool
}

// Rule letters: lowercase must already hold, uppercase is inferred.
// i = non-pointer, p = pointer.
var addRules = [][3]byte{
	{'i', 'i', 'I'},
	{'I', 'I', 'i'},
	{'p', 'I', 'P'},
	{'P', 'i', 'p'},
	{'I', 'p', 'P'},
	{'i', 'P', 'p'},
}

var subRules = [][3]byte{
	{'i', 'I', 'I'},
	{'I', 'i', 'i'},
	{'P', 'i', 'p'},
	{'P', 'p', 'I'},
	{'p', 'P', 'i'},
	{'p', 'i', 'P'},
	{'p', 'I', 'p'},
}

// AddArith records an Add or Sub constraint.
func (g *Graph) AddArith(kind schema.ArithKind, left, right, result Handle, origin string) ConsID {
	n, err := safecast.Conv[uint32](len(g.cons))
	if err != nil {
		panic(fmt.Errorf("len(cons) overflow: %w", err))
	}
	id := ConsID(n)
	g.cons = append(g.cons, Constraint{Kind: kind, Left: left, Right: right, Result: result, Origin: origin})
	for _, h := range []Handle{left, right, result} {
		r := g.Find(h)
		ids := g.users[r]
		if len(ids) == 0 || ids[len(ids)-1] != id {
			g.users[r] = append(ids, id)
		}
	}
	return id
}

// Constraint returns a copy of constraint id.
func (g *Graph) Constraint(id ConsID) Constraint { return g.cons[id] }

// NumConstraints returns how many constraints were added.
func (g *Graph) NumConstraints() int { return len(g.cons) }

// Stats summarises one Solve run.
type Stats struct {
	Steps   int
	Solved  int
	Pending int
}

// Solve runs the worklist to a fixpoint. Constraints whose operands are all
// classified are retired; the rest stay pending and are revisited whenever a
// class they mention changes.
func (g *Graph) Solve() Stats {
	var st Stats
	queued := make([]bool, len(g.cons))
	var queue []ConsID
	push := func(id ConsID) {
		if g.cons[id].Solved || queued[id] {
			return
		}
		queued[id] = true
		queue = append(queue, id)
	}
	for i := range g.cons {
		push(ConsID(i))
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		queued[id] = false
		st.Steps++

		changed := g.step(id)
		if g.resolved(id) {
			g.cons[id].Solved = true
		}
		for _, h := range changed {
			for _, other := range g.users[g.Find(h)] {
				push(other)
			}
		}
	}

	for i := range g.cons {
		if g.cons[i].Solved {
			st.Solved++
		} else {
			st.Pending++
		}
	}
	return st
}

func (g *Graph) resolved(id ConsID) bool {
	c := g.cons[id]
	return g.Get(c.Left).Known() && g.Get(c.Right).Known() && g.Get(c.Result).Known()
}

func fromRuleLetter(b byte) PtrOrNum {
	if b == 'P' {
		return Pointer
	}
	return Number
}

// step tries one constraint and returns the classes it changed.
func (g *Graph) step(id ConsID) []Handle {
	c := g.cons[id]
	ops := [3]Handle{g.Find(c.Left), g.Find(c.Right), g.Find(c.Result)}
	var chars [3]byte
	for i, h := range ops {
		chars[i] = g.cells[h].value.char()
	}

	rules := addRules
	if c.Kind == schema.ArithSub {
		rules = subRules
	}
	for _, rule := range rules {
		if !ruleMatches(rule, chars) {
			continue
		}
		var changed []Handle
		for i, letter := range rule {
			if letter >= 'A' && letter <= 'Z' && g.SetKind(ops[i], fromRuleLetter(letter)) {
				changed = append(changed, ops[i])
			}
		}
		return changed
	}

	if c.Kind == schema.ArithSub {
		return g.subFallback(ops, chars)
	}
	return g.addFallback(ops, chars)
}

func ruleMatches(rule [3]byte, chars [3]byte) bool {
	for i, letter := range rule {
		if letter >= 'a' && letter <= 'z' && letter != chars[i] {
			return false
		}
	}
	return true
}

func (g *Graph) setNumbers(hs ...Handle) []Handle {
	var changed []Handle
	for _, h := range hs {
		if g.SetKind(h, Number) {
			changed = append(changed, h)
		}
	}
	return changed
}

func (g *Graph) unifyPair(a, b Handle) []Handle {
	if w, ok := g.Unify(a, b); ok {
		return []Handle{w}
	}
	return nil
}

func countUnknown(chars [3]byte) int {
	n := 0
	for _, c := range chars {
		if c == 'u' {
			n++
		}
	}
	return n
}

// addFallback handles Add when no table row matched: aliased operands first,
// then merging the two unknown operands when the third is a number.
func (g *Graph) addFallback(ops [3]Handle, chars [3]byte) []Handle {
	left, right, result := ops[0], ops[1], ops[2]
	switch {
	case left == right:
		return g.setNumbers(left, right, result)
	case left == result:
		return g.setNumbers(right)
	case right == result:
		return g.setNumbers(left)
	}
	if countUnknown(chars) != 2 {
		return nil
	}
	switch {
	case chars[0] == 'i':
		return g.unifyPair(right, result)
	case chars[1] == 'i':
		return g.unifyPair(left, result)
	}
	return nil
}

// subFallback is addFallback for Sub.
func (g *Graph) subFallback(ops [3]Handle, chars [3]byte) []Handle {
	left, right, result := ops[0], ops[1], ops[2]
	switch {
	case result == right:
		return g.setNumbers(left, right, result)
	case left == right:
		return g.setNumbers(result)
	case left == result:
		return g.setNumbers(right)
	}
	if countUnknown(chars) != 2 {
		return nil
	}
	switch {
	case chars[1] == 'i':
		return g.unifyPair(left, result)
	case chars[2] == 'i':
		return g.unifyPair(left, right)
	}
	return nil
}
