package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/justyntemme/nexus/internal/fs"
	"github.com/justyntemme/nexus/internal/host"
)

// console is the terminal front end: it reads commands and answers the
// host's prompts from the same input.
type console struct {
	in  *bufio.Reader
	out io.Writer

	mu      sync.Mutex
	answers []string
}

var _ fs.Prompter = (*console)(nil)

func newConsole(in *bufio.Reader, out io.Writer) *console {
	return &console{in: in, out: out}
}

// queue pre-answers the next prompt, so "open /path" skips asking.
func (c *console) queue(answer string) {
	c.mu.Lock()
	c.answers = append(c.answers, answer)
	c.mu.Unlock()
}

func (c *console) ask(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	if len(c.answers) > 0 {
		a := c.answers[0]
		c.answers = c.answers[1:]
		c.mu.Unlock()
		return a, nil
	}
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readLine reads one command line. io.EOF ends the session.
func (c *console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *console) PromptDirectory(ctx context.Context) (string, error) {
	path, err := c.ask(ctx, "folder to open (empty to cancel): ")
	if err != nil {
		return "", err
	}
	return fs.ExpandHome(path), nil
}

func (c *console) PromptFiles(ctx context.Context, accept []string) ([]string, error) {
	line, err := c.ask(ctx, fmt.Sprintf("files to open, separated by ';' (%s): ", strings.Join(accept, ", ")))
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, p := range strings.Split(line, ";") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, fs.ExpandHome(p))
		}
	}
	if len(paths) == 0 {
		return nil, host.ErrAborted
	}
	return paths, nil
}

func (c *console) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := c.ask(ctx, question+" [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
