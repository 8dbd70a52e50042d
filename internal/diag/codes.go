package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	ParseInfo          Code = 1000
	ParseBadVariable   Code = 1001
	ParseBadLabel      Code = 1002
	ParseBadConstraint Code = 1003
	ParseBadArith      Code = 1004
	ParseTrailingInput Code = 1005

	DocInfo                Code = 2000
	DocUnexpectedLine      Code = 2001
	DocUnclosedFunction    Code = 2002
	DocDuplicateFunction   Code = 2003
	DocUnmatchedBrace      Code = 2004
	DocEmptyFunction       Code = 2005
	DocUnusedInteresting   Code = 2006
	DocSummaryToken        Code = 2101
	DocSummaryNode         Code = 2102
	DocSummaryEdge         Code = 2103
	DocSummaryUnknownNode  Code = 2104
	DocSummaryMissingGraph Code = 2105

	GraphInfo         Code = 3000
	GraphInvariant    Code = 3001
	GraphTooManyPaths Code = 3002
	GraphUnknownVar   Code = 3003
	GraphCallCycle    Code = 3004
	GraphUnknownCall  Code = 3005
	GraphCalleeFailed Code = 3006

	LatInfo           Code = 4000
	LatPNIConflict    Code = 4001
	LatSketchConflict Code = 4002

	IOLoadFileError Code = 5001
	IOCacheError    Code = 5002

	CfgInfo     Code = 6000
	CfgBadValue Code = 6001

	ObsInfo    Code = 7000
	ObsTimings Code = 7001
)

var codeDescription = map[Code]string{
	UnknownCode:            "Unknown error",
	ParseInfo:              "Grammar information",
	ParseBadVariable:       "malformed type variable",
	ParseBadLabel:          "malformed field label",
	ParseBadConstraint:     "malformed subtype constraint",
	ParseBadArith:          "malformed arithmetic constraint",
	ParseTrailingInput:     "unexpected text after constraint",
	DocInfo:                "Document information",
	DocUnexpectedLine:      "line is not a constraint or directive",
	DocUnclosedFunction:    "function block is never closed",
	DocDuplicateFunction:   "function defined twice",
	DocUnmatchedBrace:      "closing brace without an open function",
	DocEmptyFunction:       "function has no constraints",
	DocUnusedInteresting:   "interesting variable does not occur in the function",
	DocSummaryToken:        "unexpected token in summary",
	DocSummaryNode:         "malformed summary node",
	DocSummaryEdge:         "malformed summary edge",
	DocSummaryUnknownNode:  "edge refers to an undeclared node",
	DocSummaryMissingGraph: "summary has no digraph",
	GraphInfo:              "Graph information",
	GraphInvariant:         "constraint graph invariant violated",
	GraphTooManyPaths:      "path expression expands to too many paths",
	GraphUnknownVar:        "variable does not occur in the graph",
	GraphCallCycle:         "function is part of a recursive call group",
	GraphUnknownCall:       "instantiated function has no definition or summary",
	GraphCalleeFailed:      "called function could not be solved",
	LatInfo:                "Lattice information",
	LatPNIConflict:         "value used both as pointer and number",
	LatSketchConflict:      "incompatible primitive types merged",
	IOLoadFileError:        "I/O load file error",
	IOCacheError:           "result cache error",
	CfgInfo:                "Configuration information",
	CfgBadValue:            "invalid configuration value",
	ObsInfo:                "Observability information",
	ObsTimings:             "Pipeline timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("PAR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("DOC%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("GRF%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("LAT%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("CFG%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
