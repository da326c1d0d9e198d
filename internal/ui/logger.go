// Package ui holds the terminal-facing pieces: the leveled logger, the live
// tail box used to stream docker build output, interactive prompts, and the
// table renderer.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// syncer is implemented by *os.File and *SyncWriter.
type syncer interface {
	Sync() error
}

type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelDebug
)

// Options configures the Logger.
type Options struct {
	// Out is where user-facing logs go. In most cases this is os.Stdout.
	Out io.Writer

	// FullLogWriter, if non-nil, receives all logs and tail lines in plain text.
	FullLogWriter io.Writer

	// TailLines controls how many lines the live tail box keeps. If <= 0,
	// defaults to 5.
	TailLines int

	// EnableTail controls whether the live tail box is rendered. When false,
	// tail lines are printed as normal output.
	EnableTail bool

	// LogLevel controls what reaches stdout. Warnings and errors always land
	// in the full log.
	LogLevel LogLevel
}

// Logger is the stdout logger + tail manager.
type Logger struct {
	out   io.Writer
	full  io.Writer
	mu    sync.Mutex
	style styles

	logLevel LogLevel

	// fullLogBuffer holds lines written before the full log writer is set.
	// Once the writer is set the buffer is flushed and cleared.
	fullLogBuffer []string

	tail       *tailState
	tailLines  int
	enableTail bool
}

func (l *Logger) MuteStdout() (restore func()) {
	l.out = io.Discard
	return func() {
		l.out = os.Stdout
	}
}

type styles struct {
	spacer    lipgloss.Style
	logInfo   lipgloss.Style
	logWarn   lipgloss.Style
	logError  lipgloss.Style
	banner    lipgloss.Style
	tailBox   lipgloss.Style
	tailTitle lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		spacer:    lipgloss.NewStyle(),
		logInfo:   lipgloss.NewStyle(),
		logWarn:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		logError:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		banner:    lipgloss.NewStyle().Bold(true).Border(lipgloss.NormalBorder()).Padding(0, 1).Margin(1, 0),
		tailBox:   lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1).Margin(1, 0),
		tailTitle: lipgloss.NewStyle().Bold(true),
	}
}

// New creates a new Logger.
func New(opts Options) *Logger {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.TailLines <= 0 {
		opts.TailLines = 5
	}

	return &Logger{
		out:        opts.Out,
		full:       opts.FullLogWriter,
		style:      defaultStyles(),
		tailLines:  opts.TailLines,
		enableTail: opts.EnableTail,
		logLevel:   opts.LogLevel,
	}
}

func (l *Logger) SetFullLogWriter(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.full != nil {
		fmt.Fprint(l.out, l.style.logError.Render("full log writer already set, ignoring\n"))
		return
	}

	l.full = w

	for _, line := range l.fullLogBuffer {
		io.WriteString(l.full, line)
	}
	l.fullLogBuffer = nil
}

// writeFullLogLocked writes to the full log writer if set, otherwise buffers.
// Must be called with l.mu held.
func (l *Logger) writeFullLogLocked(line string) {
	if l.full != nil {
		io.WriteString(l.full, line)
	} else {
		l.fullLogBuffer = append(l.fullLogBuffer, line)
	}
}

// Close closes the full log if it's an io.Closer and finalizes any active tail.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tail != nil && !l.tail.closed {
		l.finalizeTailLocked()
	}

	if c, ok := l.full.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (l *Logger) Spacer() {
	l.printLog(false, "", l.style.spacer, "")
}

func (l *Logger) Error(format string, args ...any) {
	l.printLog(false, "ERR ", l.style.logError, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	silent := l.logLevel < LogLevelInfo
	l.printLog(silent, "INFO", l.style.logInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	silent := l.logLevel < LogLevelWarn
	l.printLog(silent, "WARN", l.style.logWarn, format, args...)
}

// InfoSilent always lands in the full log and never on stdout.
func (l *Logger) InfoSilent(format string, args ...any) {
	l.printLog(true, "INFO", l.style.logInfo, format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	if l.logLevel >= LogLevelDebug {
		l.printLog(false, "DEBG", l.style.logInfo, format, args...)
	}
}

func (l *Logger) SetLogLevel(logLevel LogLevel) {
	l.logLevel = logLevel
}

// printLog handles clearing/redrawing the tail box around a log line.
func (l *Logger) printLog(silent bool, level string, style lipgloss.Style, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("2006-01-02T15:04:05.000")

	logLine := msg + "\n"
	if level != "" {
		logLine = fmt.Sprintf("[%s] %s\n", level, msg)
	}

	stdoutLine := fmt.Sprintf("[%s] %s", timestamp, msg)
	if level != "" {
		stdoutLine = fmt.Sprintf("[%s] [%s] %s", timestamp, level, msg)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.enableTail && l.tail != nil && !l.tail.closed && l.tail.lastBoxHeight > 0 {
		l.clearTailBoxLocked()
	}

	l.writeFullLogLocked(logLine)

	if !silent {
		fmt.Fprintln(l.out, style.Render(stdoutLine))

		if l.enableTail && l.tail != nil && !l.tail.closed && len(l.tail.buf) > 0 {
			l.drawTailBoxLocked()
		}
	}
}

// Banner prints a boxed title.
func (l *Logger) Banner(title string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.enableTail && l.tail != nil && !l.tail.closed && l.tail.lastBoxHeight > 0 {
		l.clearTailBoxLocked()
	}

	l.writeFullLogLocked(fmt.Sprintf("\n===== %s =====\n\n", title))
	if s, ok := l.full.(syncer); ok {
		s.Sync()
	}

	fmt.Fprintln(l.out, l.style.banner.Render(title))

	if l.enableTail && l.tail != nil && !l.tail.closed && len(l.tail.buf) > 0 {
		l.drawTailBoxLocked()
	}
}
