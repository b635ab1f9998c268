package utils

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParallelMap(t *testing.T) {
	// 测试空输入
	t.Run("empty input", func(t *testing.T) {
		var emptyInput []int
		result := ParallelMap(emptyInput, 4, func(i int) int {
			return i * 2
		})
		assert.Empty(t, result)
	})

	// 测试单元素输入 - 应该直接处理，不使用并发
	t.Run("single input", func(t *testing.T) {
		result := ParallelMap([]int{42}, 4, func(i int) int {
			return i * 2
		})
		assert.Equal(t, []int{84}, result)
	})

	// 测试多元素输入 - 确保顺序正确
	t.Run("multiple inputs with order", func(t *testing.T) {
		input := make([]int, 1000)
		for i := range input {
			input[i] = i
		}
		result := ParallelMap(input, 8, func(i int) int {
			return i * i
		})
		for i, v := range result {
			assert.Equal(t, i*i, v)
		}
	})

	// 测试并发执行 - 确保 worker 数不超过并发上限
	t.Run("concurrent execution bounded", func(t *testing.T) {
		input := make([]int, 100)
		for i := range input {
			input[i] = i
		}

		var maxConcurrent int32
		var currentConcurrent int32

		ParallelMap(input, 10, func(i int) int {
			current := atomic.AddInt32(&currentConcurrent, 1)
			for {
				max := atomic.LoadInt32(&maxConcurrent)
				if current <= max {
					break
				}
				if atomic.CompareAndSwapInt32(&maxConcurrent, max, current) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&currentConcurrent, -1)
			return i * 2
		})

		assert.LessOrEqual(t, maxConcurrent, int32(10))
		assert.GreaterOrEqual(t, maxConcurrent, int32(2))
	})

	// 并发度大于输入数量时不应 panic，且每个元素恰好执行一次
	t.Run("concurrency exceeds inputs", func(t *testing.T) {
		var count int64
		result := ParallelMap([]int{1, 2, 3}, 100, func(i int) int {
			atomic.AddInt64(&count, 1)
			return i
		})
		assert.Equal(t, []int{1, 2, 3}, result)
		assert.Equal(t, int64(3), count)
	})
}
