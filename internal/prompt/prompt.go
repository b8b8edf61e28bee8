// Package prompt serializes operator questions on a console. Every
// interactive component shares one Console per stream so buffered reads
// never swallow answers meant for another prompt.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// Console asks questions on a reader/writer pair.
type Console struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// New returns a console reading answers from in and writing prompts to out.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

var (
	stdioOnce sync.Once
	stdio     *Console
)

// Stdio returns the process-wide console on stdin/stdout.
func Stdio() *Console {
	stdioOnce.Do(func() {
		stdio = New(os.Stdin, os.Stdout)
	})
	return stdio
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Ask prints question and returns the trimmed answer line. io.EOF is
// returned only when no answer was read at all.
func (c *Console) Ask(question string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, question)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question; only "y" (any case) is a yes.
func (c *Console) Confirm(question string) (bool, error) {
	answer, err := c.Ask(question)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "y"), nil
}
