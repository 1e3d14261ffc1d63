// Package badlags writes the audit trail of lag anomalies: one
// space-delimited line per repaired or unrepaired occurrence.
package badlags

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Header is the first line of every log file.
const Header = "# timestamp scan sampler int phaseid channels"

// Record is one anomaly report. Records carrying a comment describe
// anomalies that were not repaired and are written as comment lines.
type Record struct {
	Timestamp string
	Scan      int
	Sampler   string
	Row       int
	Phase     int
	Channels  string
	Comment   string
}

// String formats r as one log line without the trailing newline.
func (r Record) String() string {
	var b strings.Builder
	if r.Comment != "" {
		b.WriteString("# ")
	}
	b.WriteString(r.Timestamp)
	for _, f := range []string{strconv.Itoa(r.Scan), r.Sampler, strconv.Itoa(r.Row), strconv.Itoa(r.Phase), r.Channels} {
		b.WriteByte(' ')
		b.WriteString(f)
	}
	if r.Comment != "" {
		b.WriteByte(' ')
		b.WriteString(r.Comment)
	}
	return b.String()
}

// Log appends records to a file, or to a structured logger when no file is
// configured or the file cannot be written.
type Log struct {
	path   string
	logger *slog.Logger
}

// Open prepares the log at path, writing Header if the file is empty. An
// empty path, or a file that cannot be opened, routes records to logger
// instead. A nil logger means slog.Default().
func Open(path string, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Log{path: path, logger: logger}
	if path == "" {
		return l
	}
	if err := l.prepare(); err != nil {
		logger.Warn("Cannot open fixed lags log file for output, messages will appear in this log instead",
			"path", path, "error", err)
		l.path = ""
	}
	return l
}

func (l *Log) prepare() error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err == nil && info.Size() == 0 {
		_, err = fmt.Fprintln(f, Header)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Path returns the file in use, or "" when records go to the logger.
func (l *Log) Path() string { return l.path }

// Report writes r.
func (l *Log) Report(r Record) {
	if l.path != "" {
		err := l.append(r)
		if err == nil {
			return
		}
		l.logger.Error("Cannot open fixed lags log file - unexpected, trying to continue ...",
			"path", l.path, "error", err)
		l.path = ""
	}
	l.logger.Info(r.String(),
		"row", r.Row, "scan", r.Scan, "sampler", r.Sampler, "phase", r.Phase, "channels", r.Channels)
}

func (l *Log) append(r Record) error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, r.String())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
