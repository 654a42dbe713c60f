// Package prompt asks the operator yes/no questions.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Confirmer answers overwrite questions.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// Terminal reads answers line by line from In and writes questions to
// Out. Only "y" (any case) is affirmative; end of input declines.
type Terminal struct {
	In  io.Reader
	Out io.Writer

	once   sync.Once
	reader *bufio.Reader
}

// NewTerminal returns a Terminal on stdin/stdout.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stdout}
}

func (t *Terminal) Confirm(ctx context.Context, question string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	t.once.Do(func() {
		in := t.In
		if in == nil {
			in = os.Stdin
		}
		t.reader = bufio.NewReader(in)
	})
	out := t.Out
	if out == nil {
		out = os.Stdout
	}

	if _, err := fmt.Fprintf(out, "%s (y/n): ", question); err != nil {
		return false, fmt.Errorf("write confirmation prompt: %w", err)
	}
	line, err := t.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	return strings.EqualFold(strings.TrimSpace(line), "y"), nil
}

// Fixed always gives the same answer. Used for unattended runs.
type Fixed bool

func (f Fixed) Confirm(ctx context.Context, question string) (bool, error) {
	return bool(f), ctx.Err()
}
