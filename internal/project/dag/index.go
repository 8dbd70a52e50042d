// Package dag orders functions so that callees are solved before their
// callers.
package dag

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"retype/internal/project"
)

// FunctionID indexes a function name.
type FunctionID uint32

// FunctionIndex numbers every defined or called function in name order.
type FunctionIndex struct {
	NameToID map[string]FunctionID
	IDToName []string
}

// BuildIndex collects the names of metas and of everything they call.
func BuildIndex(metas []project.FunctionMeta) FunctionIndex {
	uniq := make(map[string]struct{}, len(metas))
	for _, meta := range metas {
		if meta.Name != "" {
			uniq[meta.Name] = struct{}{}
		}
		for _, c := range meta.Calls {
			uniq[c.Callee] = struct{}{}
		}
	}
	names := make([]string, 0, len(uniq))
	for name := range uniq {
		names = append(names, name)
	}
	slices.Sort(names)

	nameToID := make(map[string]FunctionID, len(names))
	for i, name := range names {
		nameToID[name] = toID(i)
	}
	return FunctionIndex{NameToID: nameToID, IDToName: names}
}

func toID(i int) FunctionID {
	id, err := safecast.Conv[FunctionID](i)
	if err != nil {
		panic(fmt.Errorf("function id overflow: %w", err))
	}
	return id
}
