package sketch

import (
	"strings"
)

// Distinguished leaf elements. The empty element carries no information.
const (
	Top    = "top"
	Bottom = "bottom"
	// GenericInt is the width-less integer produced from pointer-or-number
	// inference; any sized integer refines it.
	GenericInt = "int"
	// PointerElem marks a pointer whose pointee was never accessed.
	PointerElem = "ptr"
)

var sizedInts = map[string]bool{}

func init() {
	for _, w := range []string{"8", "16", "32", "64", "128"} {
		for _, p := range []string{"i", "u", "int", "uint"} {
			sizedInts[p+w] = true
		}
	}
}

// IsSizedInt reports names such as i32, u8, int64 or uint16.
func IsSizedInt(s string) bool { return sizedInts[strings.ToLower(s)] }

// JoinElem is the least upper bound of two leaf elements. Disagreeing
// concrete elements give Top and report a conflict.
func JoinElem(a, b string) (string, bool) {
	switch {
	case a == "":
		return b, false
	case b == "" || a == b:
		return a, false
	case a == Bottom:
		return b, false
	case b == Bottom:
		return a, false
	case a == Top || b == Top:
		return Top, false
	}
	return Top, true
}

// MeetElem is the greatest lower bound of two leaf elements. A sized
// integer refines the generic one; other disagreements give Top and report
// a conflict.
func MeetElem(a, b string) (string, bool) {
	switch {
	case a == "":
		return b, false
	case b == "" || a == b:
		return a, false
	case a == Top:
		return b, false
	case b == Top:
		return a, false
	case a == Bottom || b == Bottom:
		return Bottom, false
	case a == GenericInt && IsSizedInt(b):
		return b, false
	case b == GenericInt && IsSizedInt(a):
		return a, false
	}
	return Top, true
}
