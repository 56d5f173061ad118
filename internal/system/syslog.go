package system

import (
	"context"
	"strings"
)

// LogReader exposes the most recent N lines of the system log.
type LogReader interface {
	Recent(ctx context.Context, n int) ([]string, error)
}

// SignatureCounter counts occurrences of a named pattern in a bounded
// recent log window. Production reads the syslog ring buffer; tests
// inject a synthetic line set.
type SignatureCounter interface {
	Count(ctx context.Context, pattern string, window int) (int, error)
}

// SyslogReader reads the router's ring-buffer log via logread. BusyBox
// logread has no tail option, so the bounding happens here.
type SyslogReader struct {
	runner Runner
}

// NewSyslogReader returns a reader over the logread command.
func NewSyslogReader(runner Runner) *SyslogReader {
	return &SyslogReader{runner: runner}
}

// Recent implements LogReader.
func (r *SyslogReader) Recent(ctx context.Context, n int) ([]string, error) {
	out, err := r.runner.Run(ctx, "logread")
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// LineCounter counts substring matches over a LogReader window.
type LineCounter struct {
	logs LogReader
}

// NewLineCounter returns a SignatureCounter over the given log source.
func NewLineCounter(logs LogReader) *LineCounter {
	return &LineCounter{logs: logs}
}

// Count implements SignatureCounter.
func (c *LineCounter) Count(ctx context.Context, pattern string, window int) (int, error) {
	lines, err := c.logs.Recent(ctx, window)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, line := range lines {
		if strings.Contains(line, pattern) {
			n++
		}
	}
	return n, nil
}
