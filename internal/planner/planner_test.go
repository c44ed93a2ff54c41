package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coinsensei/chain-workers/internal/store/model"
)

func TestPriorityFromInt(t *testing.T) {
	assert.Equal(t, model.PriorityHigh, priorityFromInt(0))
	assert.Equal(t, model.PriorityHigh, priorityFromInt(-1))
	assert.Equal(t, model.PriorityNormal, priorityFromInt(1))
	assert.Equal(t, model.PriorityLow, priorityFromInt(2))
	assert.Equal(t, model.PriorityLow, priorityFromInt(99))
}
