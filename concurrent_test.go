package lintflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/analysis"
)

func TestConcurrentTaskRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	for i := 0; i < 10; i++ {
		writeFile(t, fs, fmt.Sprintf("/project/file%d.go", i), "package main\n\nfunc Bad() {}\n")
	}

	var analyzed []string
	task, err := NewConcurrentTask("lint", Config{Defaults: DefaultsNone}, nil, fs, WithWorkerCount(4))
	require.NoError(t, err)
	task.reporter = &recordingReporter{}
	// Single worker would also work; the analyzer slice append is the only
	// shared state and a one-worker pool keeps the test deterministic.
	task.workerCount = 1
	task.engine = NewEngine([]*analysis.Analyzer{countingAnalyzer(&analyzed)}, nil)

	result, err := task.RunWithContext(context.Background(), "/project")
	require.NoError(t, err)

	assert.Equal(t, 10, result.Count())
	assert.Len(t, analyzed, 10)
	assert.Equal(t, uint64(10), task.stats.filesProcessed.Load())
}

func TestConcurrentTaskCancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/project/a.go", "package main\n")

	task, err := NewConcurrentTask("lint", Config{Defaults: DefaultsNone}, nil, fs)
	require.NoError(t, err)
	task.reporter = &recordingReporter{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = task.RunWithContext(ctx, "/project")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentTaskOptionValidation(t *testing.T) {
	_, err := NewConcurrentTask("lint", Config{}, nil, afero.NewMemMapFs(), WithWorkerCount(0))
	assert.Error(t, err)

	_, err = NewConcurrentTask("lint", Config{}, nil, afero.NewMemMapFs(), WithBufferSize(0))
	assert.Error(t, err)
}
