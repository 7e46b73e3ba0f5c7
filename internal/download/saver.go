package download

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrSaveCancelled means the user declined to pick a destination. The
	// job ends without an error.
	ErrSaveCancelled = errors.New("save cancelled by user")

	// ErrSaveUnavailable means no interactive destination picker exists.
	ErrSaveUnavailable = errors.New("native save unavailable")
)

// Saver lets the user choose where a download goes before it starts.
// Choose returns the destination path, ErrSaveCancelled, or another error
// which makes the pipeline fall back to the downloads folder.
type Saver interface {
	Choose(ctx context.Context, suggested string) (string, error)
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, suggested string) (string, error)

// Choose implements Saver.
func (f SaverFunc) Choose(ctx context.Context, suggested string) (string, error) {
	return f(ctx, suggested)
}

// PromptSaver asks for a destination on a terminal.
//
// An empty answer accepts the default (Dir joined with the suggested name),
// "-" or end of input cancels, and an existing directory receives the
// suggested name. One PromptSaver reads its input through a single buffered
// reader, so answers piped in ahead of time are consumed one per prompt.
type PromptSaver struct {
	out io.Writer
	dir string

	in    *bufio.Reader
	start sync.Once
	lines chan string
	err   error // set before lines is closed
}

// NewPromptSaver creates a PromptSaver reading answers from in and writing
// prompts to out. A nil in or out makes every Choose return
// ErrSaveUnavailable.
func NewPromptSaver(in io.Reader, out io.Writer, dir string) *PromptSaver {
	s := &PromptSaver{out: out, dir: dir, lines: make(chan string)}
	if in != nil {
		s.in = bufio.NewReader(in)
	}
	return s
}

// readLines feeds answers to Choose. It stays one line ahead at most, and
// an answer left unread by a cancelled prompt goes to the next one.
func (s *PromptSaver) readLines() {
	defer close(s.lines)
	for {
		line, err := s.in.ReadString('\n')
		if line != "" {
			s.lines <- line
		}
		if err != nil {
			s.err = err
			return
		}
	}
}

// Choose implements Saver.
func (s *PromptSaver) Choose(ctx context.Context, suggested string) (string, error) {
	if s == nil || s.in == nil || s.out == nil {
		return "", ErrSaveUnavailable
	}
	s.start.Do(func() { go s.readLines() })

	def := filepath.Join(s.dir, suggested)
	fmt.Fprintf(s.out, "Save as [%s] ('-' to cancel): ", def)

	var raw string
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-s.lines:
		if !ok {
			if s.err == nil || errors.Is(s.err, io.EOF) {
				return "", ErrSaveCancelled
			}
			return "", s.err
		}
		raw = l
	}

	line := strings.TrimSpace(raw)
	switch line {
	case "-":
		return "", ErrSaveCancelled
	case "":
		return def, nil
	}

	if strings.HasPrefix(line, "~"+string(filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			line = filepath.Join(home, line[2:])
		}
	}
	if info, err := os.Stat(line); err == nil && info.IsDir() {
		return filepath.Join(line, suggested), nil
	}
	return line, nil
}
