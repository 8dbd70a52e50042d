package cgraph

// SetMaxPaths lowers the expansion cap for one test.
func SetMaxPaths(n int) (restore func()) {
	old := maxPaths
	maxPaths = n
	return func() { maxPaths = old }
}
