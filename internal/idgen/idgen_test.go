package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerIDWithChain(t *testing.T) {
	id := WorkerID("consolidation", "bsc")
	assert.True(t, strings.HasPrefix(id, "consolidation_bsc_"))
}

func TestWorkerIDWithoutChain(t *testing.T) {
	id := WorkerID("planner", "")
	assert.True(t, strings.HasPrefix(id, "planner_"))
	assert.False(t, strings.Contains(id, "__"))
}

func TestNewReturnsDistinctUUIDs(t *testing.T) {
	a := New()
	b := New()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
