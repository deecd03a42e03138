package utils_test

import (
	"sync/atomic"
	"testing"

	"github.com/bsaid97/geomcheck/utils"
	"github.com/stretchr/testify/assert"
)

func TestProcessBatch_PreservesOrder(t *testing.T) {
	items := make([]int, 500)
	for i := range items {
		items[i] = i
	}

	var calls atomic.Int64
	pp := utils.NewParallelProcessor(8)
	pp.OnProgress = func(processed, total int64) {
		calls.Add(1)
		assert.LessOrEqual(t, processed, total)
	}

	got := utils.ProcessBatch(pp, items, func(i, v int) int { return v * 2 })

	assert.Len(t, got, 500)
	for i, v := range got {
		assert.Equal(t, i*2, v)
	}
	assert.Equal(t, int64(500), calls.Load())
}

func TestProcessBatch_Empty(t *testing.T) {
	got := utils.ProcessBatch(utils.NewParallelProcessor(0), []string{}, func(int, string) int { return 1 })
	assert.Empty(t, got)
}
