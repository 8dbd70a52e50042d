package driver

import (
	"retype/internal/project"
)

// resultHash combines a function's content with the configuration and the
// result hashes of the callees it instantiates, so a changed callee
// invalidates its callers.
func resultHash(meta project.FunctionMeta, config project.Digest, interesting []string, callees *calleeCache, skip func(string) bool) project.Digest {
	deps := []project.Digest{config, project.Sum([]byte(joinSorted(interesting)))}
	for _, name := range meta.Callees() {
		if skip != nil && skip(name) {
			continue
		}
		if e, ok := callees.get(name); ok {
			deps = append(deps, e.hash)
		}
	}
	return project.Combine(meta.ContentHash, deps...)
}
