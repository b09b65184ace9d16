package lintflow

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
)

// fileJob represents a file waiting for analysis
type fileJob struct {
	file *SourceFile
}

// fileResult represents the outcome of analyzing one file
type fileResult struct {
	result *Result
	err    error
}

// ConcurrentTask runs the pipeline with a worker pool. The sequential Task
// stays the default; this variant exists for large trees where per-file
// analysis dominates the run time.
type ConcurrentTask struct {
	*Task
	workerCount int
	bufferSize  int
	progress    ProgressReporter
	stats       *RunStats
}

// RunStats tracks performance metrics
type RunStats struct {
	filesProcessed atomic.Uint64
	totalFiles     atomic.Uint64
	startTime      time.Time
	endTime        time.Time
}

// ProgressReporter interface for progress updates
type ProgressReporter interface {
	StartFile(path string)
	CompleteFile(path string, violations int)
	UpdateProgress(current, total int)
	Complete(stats *RunStats)
}

// NoOpProgressReporter is a no-op implementation
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) StartFile(path string)                    {}
func (n *NoOpProgressReporter) CompleteFile(path string, violations int) {}
func (n *NoOpProgressReporter) UpdateProgress(current, total int)        {}
func (n *NoOpProgressReporter) Complete(stats *RunStats)                 {}

// ConcurrentOption is a functional option for ConcurrentTask
type ConcurrentOption func(*ConcurrentTask) error

// WithWorkerCount sets the number of worker goroutines
func WithWorkerCount(count int) ConcurrentOption {
	return func(ct *ConcurrentTask) error {
		if count < 1 {
			return fmt.Errorf("worker count must be at least 1, got %d", count)
		}
		ct.workerCount = count
		return nil
	}
}

// WithBufferSize sets the job buffer size
func WithBufferSize(size int) ConcurrentOption {
	return func(ct *ConcurrentTask) error {
		if size < 1 {
			return fmt.Errorf("buffer size must be at least 1, got %d", size)
		}
		ct.bufferSize = size
		return nil
	}
}

// WithProgressReporter sets a progress reporter
func WithProgressReporter(reporter ProgressReporter) ConcurrentOption {
	return func(ct *ConcurrentTask) error {
		ct.progress = reporter
		return nil
	}
}

// NewConcurrentTask creates a concurrent variant of the lint task.
func NewConcurrentTask(name string, cfg Config, logger *slog.Logger, fs afero.Fs, opts ...ConcurrentOption) (*ConcurrentTask, error) {
	ct := &ConcurrentTask{
		Task:        NewTask(name, cfg, logger, fs),
		workerCount: runtime.NumCPU(),
		bufferSize:  100,
		progress:    &NoOpProgressReporter{},
		stats:       &RunStats{},
	}

	for _, opt := range opts {
		if err := opt(ct); err != nil {
			return nil, err
		}
	}

	return ct, nil
}

// RunWithContext analyzes all matched files using the worker pool.
func (ct *ConcurrentTask) RunWithContext(ctx context.Context, root string) (*Result, error) {
	ct.stats = &RunStats{startTime: time.Now()}

	files, err := ct.prepare(root)
	if err != nil {
		return nil, err
	}

	// Workers invoke the reporter from multiple goroutines.
	ct.reporter = &lockedReporter{inner: ct.reporter}

	ct.stats.totalFiles.Store(uint64(len(files)))
	ct.progress.UpdateProgress(0, len(files))

	result, err := ct.processConcurrently(ctx, files)
	if err != nil {
		return nil, err
	}

	ct.stats.endTime = time.Now()
	ct.progress.Complete(ct.stats)

	return result, nil
}

// processConcurrently fans files out to the worker pool and collects results.
func (ct *ConcurrentTask) processConcurrently(ctx context.Context, files []*SourceFile) (*Result, error) {
	jobs := make(chan fileJob, ct.bufferSize)
	results := make(chan fileResult, ct.bufferSize)

	var wg sync.WaitGroup
	for i := 0; i < ct.workerCount; i++ {
		wg.Add(1)
		go ct.worker(ctx, &wg, jobs, results)
	}

	total := NewResult()
	collectorDone := make(chan struct{})
	go func() {
		for res := range results {
			if res.err != nil {
				continue // Error already logged in worker
			}
			total.Merge(res.result)
		}
		close(collectorDone)
	}()

	go func() {
	feed:
		for _, f := range files {
			select {
			case <-ctx.Done():
				break feed
			case jobs <- fileJob{file: f}:
			}
		}
		close(jobs)
	}()

	wg.Wait()
	close(results)
	<-collectorDone

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	return total, nil
}

// worker processes jobs from the job channel
func (ct *ConcurrentTask) worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan fileJob, results chan<- fileResult) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			results <- fileResult{err: ctx.Err()}
			return
		default:
		}

		ct.progress.StartFile(job.file.Path)

		if err := ct.ProcessFile(job.file); err != nil {
			ct.logger.Error("Dropping file from pipeline",
				slog.String("file", job.file.Path),
				slog.String("error", err.Error()))
			results <- fileResult{err: err}
			continue
		}

		ct.progress.CompleteFile(job.file.Path, job.file.Result.Count())
		ct.stats.filesProcessed.Add(1)

		current := ct.stats.filesProcessed.Load()
		totalFiles := ct.stats.totalFiles.Load()
		ct.progress.UpdateProgress(int(current), int(totalFiles))

		results <- fileResult{result: job.file.Result}
	}
}

// lockedReporter serializes reporter calls across workers.
type lockedReporter struct {
	mu    sync.Mutex
	inner Reporter
}

func (r *lockedReporter) Report(res *Result, file *SourceFile, cfg *ResolvedConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inner.Report(res, file, cfg)
}

// Duration returns the time taken for the last run
func (s *RunStats) Duration() time.Duration {
	if s.endTime.IsZero() {
		return time.Since(s.startTime)
	}
	return s.endTime.Sub(s.startTime)
}

// FilesPerSecond returns the processing rate
func (s *RunStats) FilesPerSecond() float64 {
	duration := s.Duration().Seconds()
	if duration == 0 {
		return 0
	}
	return float64(s.filesProcessed.Load()) / duration
}
