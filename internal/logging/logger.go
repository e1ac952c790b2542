// Package logging provides categorized logging for parsersmith on top of zap.
// In debug mode logs go to <workspace>/.parsersmith/logs/ as one file per day;
// otherwise only warnings and errors reach stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup, config
	CategoryExtract    Category = "extract"    // PDF extraction
	CategoryAnalyze    Category = "analyze"    // Reference table analysis
	CategorySynthesis  Category = "synthesis"  // Prompt building, provider calls
	CategoryAPI        Category = "api"        // Raw LLM API traffic
	CategoryLoader     Category = "loader"     // Candidate write/load/execute
	CategoryVerify     Category = "verify"     // Verdicts
	CategoryRetry      Category = "retry"      // Attempt loop
	CategoryRegression Category = "regression" // Offline battery
)

// Options configures Initialize.
type Options struct {
	Workspace  string
	DebugMode  bool
	Level      string          // debug, info, warn, error
	Format     string          // json, text
	Categories map[string]bool // nil enables all
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	opts    Options
	loggers = make(map[Category]*Logger)
	logFile *os.File
)

// Initialize builds the process logger. Call once at startup.
func Initialize(o Options) error {
	level := zapcore.WarnLevel
	if o.DebugMode {
		if err := level.UnmarshalText([]byte(o.Level)); err != nil || o.Level == "" {
			level = zapcore.InfoLevel
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if o.Format == "text" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	sink := zapcore.Lock(os.Stderr)
	var file *os.File
	if o.DebugMode {
		if o.Workspace == "" {
			return fmt.Errorf("workspace path required")
		}
		dir := LogsDir(o.Workspace)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
		name := fmt.Sprintf("%s_parsersmith.log", time.Now().Format("2006-01-02"))
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		sink = zapcore.AddSync(f)
	}

	Use(zap.New(zapcore.NewCore(enc, sink, level)), o)

	mu.Lock()
	logFile = file
	mu.Unlock()

	if o.DebugMode {
		Get(CategoryBoot).Info("logging initialized: workspace=%s level=%s", o.Workspace, level)
	}
	return nil
}

// Use installs an already built zap logger. Tests pass an observer core.
func Use(l *zap.Logger, o Options) {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = base.Sync()
		logFile.Close()
		logFile = nil
	}
	base = l
	opts = o
	loggers = make(map[Category]*Logger)
}

// LogsDir returns the log directory for a workspace.
func LogsDir(workspace string) string {
	return filepath.Join(workspace, ".parsersmith", "logs")
}

// Sync flushes buffered entries. Call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

// Zap returns the underlying logger.
func Zap() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	return !exists || enabled
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

// Get returns (or creates) a logger for the given category. Disabled
// categories get a no-op logger.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	mu.RLock()
	l, ok := loggers[category]
	mu.RUnlock()
	if ok {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l = &Logger{
		category: category,
		sugar:    base.With(zap.String("cat", string(category))).Sugar(),
	}
	loggers[category] = l
	return l
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// With returns a logger carrying structured key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

func Boot(format string, args ...interface{})     { Get(CategoryBoot).Info(format, args...) }
func BootWarn(format string, args ...interface{}) { Get(CategoryBoot).Warn(format, args...) }
func Extract(format string, args ...interface{})  { Get(CategoryExtract).Info(format, args...) }
func ExtractWarn(format string, args ...interface{}) {
	Get(CategoryExtract).Warn(format, args...)
}
func Analyze(format string, args ...interface{})   { Get(CategoryAnalyze).Info(format, args...) }
func Synthesis(format string, args ...interface{}) { Get(CategorySynthesis).Info(format, args...) }
func SynthesisDebug(format string, args ...interface{}) {
	Get(CategorySynthesis).Debug(format, args...)
}
func SynthesisWarn(format string, args ...interface{}) { Get(CategorySynthesis).Warn(format, args...) }
func API(format string, args ...interface{})           { Get(CategoryAPI).Info(format, args...) }
func APIDebug(format string, args ...interface{})      { Get(CategoryAPI).Debug(format, args...) }
func Loader(format string, args ...interface{})        { Get(CategoryLoader).Info(format, args...) }
func LoaderDebug(format string, args ...interface{})   { Get(CategoryLoader).Debug(format, args...) }
func LoaderWarn(format string, args ...interface{})    { Get(CategoryLoader).Warn(format, args...) }
func Verify(format string, args ...interface{})        { Get(CategoryVerify).Info(format, args...) }
func VerifyDebug(format string, args ...interface{})   { Get(CategoryVerify).Debug(format, args...) }
func Retry(format string, args ...interface{})         { Get(CategoryRetry).Info(format, args...) }
func RetryWarn(format string, args ...interface{})     { Get(CategoryRetry).Warn(format, args...) }
func Regression(format string, args ...interface{})    { Get(CategoryRegression).Info(format, args...) }
func RegressionWarn(format string, args ...interface{}) {
	Get(CategoryRegression).Warn(format, args...)
}

// =============================================================================
// REQUEST ID TRACING
// =============================================================================

// RequestLogger is a logger bound to one run id.
type RequestLogger struct {
	*Logger
	requestID string
}

// WithRequestID creates a run-scoped logger.
func WithRequestID(category Category, requestID string) *RequestLogger {
	return &RequestLogger{
		Logger:    Get(category).With("req", requestID),
		requestID: requestID,
	}
}

// RequestID returns the bound id.
func (r *RequestLogger) RequestID() string { return r.requestID }

// WithField adds a field to the request logger
func (r *RequestLogger) WithField(key string, value interface{}) *RequestLogger {
	return &RequestLogger{Logger: r.Logger.With(key, value), requestID: r.requestID}
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
