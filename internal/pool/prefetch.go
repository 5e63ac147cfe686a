package pool

import (
	"context"
	"sync"

	"github.com/frederic-klein/yamb/internal/moduleinfo"
)

// Result is the outcome of prefetching one module.
type Result struct {
	Name  string
	Info  *moduleinfo.ModuleInfo
	Error error
}

// Prefetch analyzes names in parallel with the given number of workers and
// returns one result per name in input order.
func (p *Pool) Prefetch(ctx context.Context, names []string, workers int) []Result {
	if workers < 1 {
		workers = 1
	}

	type job struct {
		index int
		name  string
	}
	jobChan := make(chan job, len(names))
	results := make([]Result, len(names))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobChan {
				info, err := p.ModuleInfo(ctx, j.name)
				results[j.index] = Result{Name: j.name, Info: info, Error: err}
			}
		}()
	}

	for i, name := range names {
		jobChan <- job{index: i, name: name}
	}
	close(jobChan)
	wg.Wait()

	return results
}
