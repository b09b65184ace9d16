package lintflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
)

// WatchMode provides continuous file monitoring and re-analysis. Unchanged
// content is served from a bounded in-memory result cache keyed by content
// hash, so touching a file without editing it does not re-run the engine.
type WatchMode struct {
	task       *Task
	config     Config
	configPath string
	logger     *slog.Logger
	fs         afero.Fs

	watcher      *fsnotify.Watcher
	debounceTime time.Duration

	// Debouncing state
	mu             sync.Mutex
	pendingChanges map[string]time.Time
	debounceTimer  *time.Timer

	// In-memory result cache for unchanged content
	results *lru.Cache[uint64, *Result]

	// Formatting options
	groupByRule bool

	// Statistics
	stats WatchStats
}

// WatchStats holds statistics about watch mode operation
type WatchStats struct {
	mu               sync.Mutex
	totalAnalyses    int
	violationsFound  int
	lastAnalysisTime time.Time
}

// WatchConfig holds configuration for watch mode
type WatchConfig struct {
	TaskName     string
	ConfigPath   string
	Logger       *slog.Logger
	FS           afero.Fs
	DebounceTime time.Duration
	GroupByRule  bool
	ResultCache  int // LRU size; 0 uses the default
}

const defaultWatchCacheSize = 512

// NewWatchMode creates a new WatchMode instance
func NewWatchMode(path string, cfg WatchConfig) (*WatchMode, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if cfg.FS == nil {
		cfg.FS = afero.NewOsFs()
	}

	if cfg.DebounceTime == 0 {
		cfg.DebounceTime = 100 * time.Millisecond
	}

	if cfg.ResultCache == 0 {
		cfg.ResultCache = defaultWatchCacheSize
	}

	config, err := LoadConfig(cfg.FS, path, cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	results, err := lru.New[uint64, *Result](cfg.ResultCache)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	wm := &WatchMode{
		task:           NewTask(cfg.TaskName, config, cfg.Logger, cfg.FS),
		config:         config,
		configPath:     cfg.ConfigPath,
		logger:         cfg.Logger,
		fs:             cfg.FS,
		watcher:        watcher,
		debounceTime:   cfg.DebounceTime,
		pendingChanges: make(map[string]time.Time),
		results:        results,
		groupByRule:    cfg.GroupByRule,
	}

	return wm, nil
}

// Start begins watching for file changes
func (w *WatchMode) Start(ctx context.Context, path string) error {
	w.printHeader()
	w.logger.Info("Starting watch mode", "path", path)

	if err := w.runInitialAnalysis(path); err != nil {
		return fmt.Errorf("initial analysis failed: %w", err)
	}

	if err := w.addDirsToWatcher(path); err != nil {
		return fmt.Errorf("failed to add files to watcher: %w", err)
	}

	// Watch config file if specified
	if w.configPath != "" {
		if err := w.watchConfigFile(w.configPath); err != nil {
			w.logger.Warn("Failed to watch config file", "path", w.configPath, "error", err)
		}
	}

	w.printWatchingMessage(path)

	return w.processEvents(ctx, path)
}

// Stop gracefully stops the watcher
func (w *WatchMode) Stop() error {
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

// runInitialAnalysis performs the first analysis
func (w *WatchMode) runInitialAnalysis(path string) error {
	result, err := w.task.Run(path)
	if err != nil {
		return err
	}

	w.printResult(result)
	w.updateStats(result.Count())
	return nil
}

// addDirsToWatcher recursively adds directories to the watcher so that new
// files are detected too.
func (w *WatchMode) addDirsToWatcher(root string) error {
	return afero.Walk(w.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			w.logger.Warn("Error walking path", "path", path, "error", err)
			return nil // Continue walking
		}

		if info.IsDir() {
			// Skip hidden directories and vendor
			if path != root && (strings.HasPrefix(info.Name(), ".") || info.Name() == "vendor") {
				return filepath.SkipDir
			}

			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("Failed to watch directory", "path", path, "error", err)
			}
		}

		return nil
	})
}

// watchConfigFile adds the config file's directory to the watcher
func (w *WatchMode) watchConfigFile(configPath string) error {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}

	return w.watcher.Add(filepath.Dir(absPath))
}

// processEvents handles file system events with debouncing
func (w *WatchMode) processEvents(ctx context.Context, rootPath string) error {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping watch mode")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			w.handleEvent(event, rootPath)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("Watcher error", "error", err)
		}
	}
}

// handleEvent processes a single file system event
func (w *WatchMode) handleEvent(event fsnotify.Event, rootPath string) {
	if !w.shouldProcessEvent(event) {
		return
	}

	if w.isConfigFile(event.Name) {
		w.handleConfigChange(rootPath)
		return
	}

	// Only process Go files
	if !strings.HasSuffix(event.Name, ".go") {
		return
	}

	w.mu.Lock()
	w.pendingChanges[event.Name] = time.Now()

	// Reset debounce timer
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.debounceTime, func() {
		w.processPendingChanges()
	})
	w.mu.Unlock()
}

// shouldProcessEvent filters events we care about
func (w *WatchMode) shouldProcessEvent(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// isConfigFile checks if the event is for the config file
func (w *WatchMode) isConfigFile(path string) bool {
	if w.configPath == "" {
		return false
	}

	absConfigPath, _ := filepath.Abs(w.configPath)
	absEventPath, _ := filepath.Abs(path)

	return absConfigPath == absEventPath
}

// handleConfigChange reloads config and re-analyzes everything. The
// in-memory result cache is purged because its entries were produced under
// the old configuration.
func (w *WatchMode) handleConfigChange(rootPath string) {
	w.printTimestamp()
	fmt.Println(color.New(color.FgYellow, color.Bold).Sprint("📝 Config file changed"))
	fmt.Println(color.New(color.FgCyan).Sprint("⚡ Reloading configuration and re-analyzing all files..."))

	newConfig, err := LoadConfig(w.fs, rootPath, w.configPath)
	if err != nil {
		w.printError(fmt.Sprintf("Failed to reload config: %v", err))
		return
	}

	w.task = NewTask(w.task.name, newConfig, w.logger, w.fs)
	w.config = newConfig
	w.results.Purge()

	result, err := w.task.Run(rootPath)
	if err != nil {
		w.printError(fmt.Sprintf("Analysis failed: %v", err))
		return
	}

	w.printResult(result)
	w.updateStats(result.Count())
}

// processPendingChanges analyzes all pending file changes
func (w *WatchMode) processPendingChanges() {
	w.mu.Lock()
	changes := make([]string, 0, len(w.pendingChanges))
	for path := range w.pendingChanges {
		changes = append(changes, path)
	}
	w.pendingChanges = make(map[string]time.Time)
	w.mu.Unlock()

	if len(changes) == 0 {
		return
	}

	w.printTimestamp()
	for _, path := range changes {
		fmt.Println(color.New(color.FgCyan).Sprintf("📝 %s changed", path))
	}

	fileText := "file"
	if len(changes) > 1 {
		fileText = "files"
	}
	fmt.Println(color.New(color.FgMagenta).Sprintf("⚡ Re-analyzing %d %s...", len(changes), fileText))

	result := w.analyzeFiles(changes)

	w.printResult(result)
	w.updateStats(result.Count())
}

// analyzeFiles performs incremental analysis on specific files
func (w *WatchMode) analyzeFiles(files []string) *Result {
	total := NewResult()

	for _, file := range files {
		info, err := w.fs.Stat(file)
		if err != nil {
			if os.IsNotExist(err) {
				w.logger.Debug("File was deleted, skipping", "path", file)
				continue
			}
			w.logger.Warn("Failed to stat file", "path", file, "error", err)
			continue
		}

		if info.IsDir() || !strings.HasSuffix(file, ".go") {
			continue
		}

		content, err := afero.ReadFile(w.fs, file)
		if err != nil {
			w.logger.Warn("Could not read file", "path", file, "error", err)
			continue
		}

		key := resultCacheKey(file, content)
		if cached, ok := w.results.Get(key); ok {
			w.logger.Debug("Result cache hit", "path", file)
			total.Merge(replayCached(cached))
			continue
		}

		sf := &SourceFile{Path: file, Contents: content}
		if err := w.task.ProcessFile(sf); err != nil {
			w.logger.Error("Failed to analyze file", "path", file, "error", err)
			continue
		}

		w.results.Add(key, sf.Result)
		total.Merge(sf.Result)
	}

	return total
}

// resultCacheKey hashes path and content together. Keying on content alone
// would let two files with identical content share one entry and attribute
// one file's findings to the other; the entry must only be reused for the
// same path whose content is unchanged.
func resultCacheKey(path string, content []byte) uint64 {
	h := xxhash.New()
	h.WriteString(NormalizePath(path))
	h.Write([]byte{0})
	h.Write(content)
	return h.Sum64()
}

// replayCached returns a copy of a cached result with every violation marked
// as replayed, leaving the stored entry untouched.
func replayCached(res *Result) *Result {
	replay := NewResult()
	for _, v := range res.Violations {
		v.Cached = true
		replay.Add(v)
	}
	return replay
}

// printHeader prints the initial header
func (w *WatchMode) printHeader() {
	boxColor := color.New(color.FgHiBlack)
	titleColor := color.New(color.Bold)

	boxTop := "╭─────────────────────────────────────────────────────╮"
	boxBottom := "╰─────────────────────────────────────────────────────╯"

	fmt.Println(boxColor.Sprint(boxTop))
	fmt.Println(boxColor.Sprint("│") + "  " + titleColor.Sprint("Lintflow Watch Mode") + strings.Repeat(" ", 32) + boxColor.Sprint("│"))
	fmt.Println(boxColor.Sprint(boxBottom))
	fmt.Println()
}

// printWatchingMessage prints the watching message
func (w *WatchMode) printWatchingMessage(path string) {
	fmt.Println()
	watchMsg := fmt.Sprintf("👀 Watching %s for changes...", path)
	fmt.Println(color.New(color.FgGreen, color.Bold).Sprint(watchMsg))
	fmt.Println(color.New(color.FgHiBlack).Sprint("Press Ctrl+C to stop"))
	fmt.Println()
}

// printTimestamp prints the current timestamp
func (w *WatchMode) printTimestamp() {
	timestamp := time.Now().Format("15:04:05")
	fmt.Printf("[%s] ", color.New(color.FgHiBlack).Sprint(timestamp))
}

// printResult formats and prints a result
func (w *WatchMode) printResult(result *Result) {
	if result.IsEmpty() {
		fmt.Println(color.New(color.FgGreen, color.Bold).Sprint("✅ No violations found"))
		fmt.Println()
		return
	}

	fmt.Println(color.New(color.FgRed, color.Bold).Sprintf("❌ Found %d violation(s)", result.Count()))
	fmt.Println()

	formatter := &ColorFormatter{
		ColorMode:   ColorAlways,
		GroupByRule: w.groupByRule,
		Fs:          w.fs,
	}
	out, err := formatter.Format(result, &w.config)
	if err != nil {
		w.printError(err.Error())
		return
	}
	fmt.Print(string(out))
}

// printError prints an error message
func (w *WatchMode) printError(msg string) {
	fmt.Println(color.New(color.FgRed, color.Bold).Sprint("❌ Error: ") + msg)
	fmt.Println()
}

// updateStats updates watch mode statistics
func (w *WatchMode) updateStats(violations int) {
	w.stats.mu.Lock()
	defer w.stats.mu.Unlock()

	w.stats.totalAnalyses++
	w.stats.violationsFound += violations
	w.stats.lastAnalysisTime = time.Now()
}
