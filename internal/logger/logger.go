package logger

import (
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Entry is a single emitted log line as seen by subscribers.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"-"`
	Message string    `json:"message"`
}

// LevelName is used when an Entry is serialized.
func (e Entry) LevelName() string {
	return e.Level.String()
}

var (
	mu           sync.RWMutex
	currentLevel = LevelInfo
	jsonFormat   = false
	logger       = stdlog.New(os.Stdout, "", 0)
	closer       io.Closer

	subMu       sync.RWMutex
	subscribers = make(map[int]func(Entry))
	nextSubID   int
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel = LevelDebug
	case "INFO":
		currentLevel = LevelInfo
	case "WARN":
		currentLevel = LevelWarn
	case "ERROR":
		currentLevel = LevelError
	}
}

// SetFormat selects "text" (default) or "json" line rendering.
func SetFormat(format string) {
	mu.Lock()
	defer mu.Unlock()
	jsonFormat = strings.EqualFold(format, "json")
}

// SetOutput routes log lines to stdout, stderr or an append-only file.
func SetOutput(output string) error {
	var w io.Writer
	var c io.Closer

	switch strings.ToLower(output) {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", output, err)
		}
		w, c = f, f
	}

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
	logger.SetOutput(w)
	closer = c
	return nil
}

// SetWriter is the io.Writer form of SetOutput, mainly for tests.
func SetWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// Subscribe registers fn to receive every emitted entry, regardless of the
// configured level. The returned func removes the subscription.
//
// fn is called synchronously on the logging goroutine and must not block.
func Subscribe(fn func(Entry)) func() {
	subMu.Lock()
	id := nextSubID
	nextSubID++
	subscribers[id] = fn
	subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			subMu.Lock()
			delete(subscribers, id)
			subMu.Unlock()
		})
	}
}

func log(level Level, format string, v ...any) {
	message := fmt.Sprintf(format, v...)
	now := time.Now()

	publish(Entry{Time: now, Level: level, Message: message})

	mu.RLock()
	defer mu.RUnlock()

	if level < currentLevel {
		return
	}

	if jsonFormat {
		line, err := json.Marshal(struct {
			Time    string `json:"time"`
			Level   string `json:"level"`
			Message string `json:"msg"`
		}{now.Format(time.RFC3339Nano), level.String(), message})
		if err == nil {
			logger.Println(string(line))
			return
		}
	}

	timestamp := now.Format("2006-01-02 15:04:05")
	prefix := fmt.Sprintf("[%s] [%s] ", timestamp, level.String())
	logger.Println(prefix + message)
}

func publish(e Entry) {
	subMu.RLock()
	defer subMu.RUnlock()
	for _, fn := range subscribers {
		fn(e)
	}
}

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}
