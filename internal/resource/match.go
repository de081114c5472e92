package resource

import "path"

// Match reports whether a metric name matches a shell-glob pattern.
// Patterns support `*`, `?`, and character classes, are case-sensitive,
// and must cover the whole name (path.Match is anchored at both ends).
// Metric names never contain `/`, so path.Match's separator rule is moot.
func Match(name, pattern string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

// validatePattern rejects malformed glob patterns at load time so that
// lookups never have to care about path.ErrBadPattern.
func validatePattern(pattern string) error {
	_, err := path.Match(pattern, "")
	return err
}
