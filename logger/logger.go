// Package logger provides the run log: one standard logger that
// writes every line to stdout and, buffered, to a log file inside the
// run's home directory.
package logger

import (
	"bufio"
	"io"
	"log"
	"os"
)

// Logger is a standard logger plus the file handle and buffer behind
// it, so a run can flush and close its log deterministically.
type Logger struct {
	*log.Logger
	file *os.File
	buf  *bufio.Writer
}

// NewLogger creates the run log at filename, truncating output from
// any previous run.
func NewLogger(filename string) (*Logger, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(file)
	l := log.New(io.MultiWriter(os.Stdout, buf), "", log.Ldate|log.Ltime|log.Lmicroseconds)
	return &Logger{Logger: l, file: file, buf: buf}, nil
}

// Close flushes buffered output and closes the log file. The logger
// must not be used afterwards.
func (l *Logger) Close() error {
	if l.buf != nil {
		if err := l.buf.Flush(); err != nil {
			return err
		}
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
