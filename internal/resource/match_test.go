package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchGlobSemantics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		want    bool
	}{
		{"cpu", "cpu", true},
		{"cpu_util", "cpu", false},
		{"cpu", "cpu_util", false},
		{"disk.read.bytes", "disk.*", true},
		{"disk", "disk.*", false},
		{"network.incoming.bytes", "network.*", true},
		{"cpu_util", "cpu?util", true},
		{"cpuutil", "cpu?util", false},
		{"cpu0", "cpu[0-9]", true},
		{"cpux", "cpu[0-9]", false},
		{"anything.at.all", "*", true},
		// Case-sensitive.
		{"CPU", "cpu", false},
		// Anchored on both ends.
		{"prefix.cpu", "cpu", false},
		{"cpu.suffix", "cpu", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Match(tt.name, tt.pattern),
			"Match(%q, %q)", tt.name, tt.pattern)
	}
}

func TestMatchBadPattern(t *testing.T) {
	t.Parallel()

	// A malformed class never matches and never panics.
	assert.False(t, Match("cpu", "cpu["))
	assert.Error(t, validatePattern("cpu["))
	assert.NoError(t, validatePattern("disk.*"))
}
