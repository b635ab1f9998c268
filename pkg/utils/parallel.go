package utils

import (
	"sync"
)

// ParallelMap 并发地对 inputs 逐个执行 fn，返回与输入同序的结果切片。
// concurrency <= 1 或输入过小时退化为顺序执行，避免无谓的 goroutine 开销。
func ParallelMap[T any, R any](inputs []T, concurrency int, fn func(T) R) []R {
	n := len(inputs)
	if n == 0 {
		return nil
	}

	results := make([]R, n)
	if concurrency <= 1 || n == 1 {
		for i, in := range inputs {
			results[i] = fn(in)
		}
		return results
	}

	if concurrency > n {
		concurrency = n
	}

	var wg sync.WaitGroup
	idxChan := make(chan int, n)
	for i := 0; i < n; i++ {
		idxChan <- i
	}
	close(idxChan)

	wg.Add(concurrency)
	for w := 0; w < concurrency; w++ {
		go func() {
			defer wg.Done()
			for i := range idxChan {
				results[i] = fn(inputs[i])
			}
		}()
	}
	wg.Wait()

	return results
}
