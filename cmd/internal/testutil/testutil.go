package testutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/genailabs/starterkit/cmd/internal/cmdexec"
	"github.com/genailabs/starterkit/cmd/internal/prompt"
)

func Setup(tb testing.TB, files map[string]string) string {
	tb.Helper()

	root := tb.TempDir()

	for relPath, content := range files {
		fullPath := filepath.Join(root, relPath)

		dir := filepath.Dir(fullPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			tb.Fatalf("creating directory %s: %v", dir, err)
		}

		if err := os.WriteFile(fullPath, []byte(content), 0o600); err != nil {
			tb.Fatalf("writing file %s: %v", fullPath, err)
		}
	}

	return root
}

func RequireBinary(tb testing.TB, name string) {
	tb.Helper()

	if _, err := exec.LookPath(name); err != nil {
		tb.Skipf("skipping: %s not in PATH", name)
	}
}

// Call is one command seen by a FakeRunner.
type Call struct {
	Command  string
	Captured bool
}

// Result is a scripted outcome for a command.
type Result struct {
	Output string
	Err    error
}

type rule struct {
	substr  string
	results []Result
}

// FakeRunner records commands and answers them from scripted rules. The first
// rule whose substring occurs in the command wins; its results are consumed in
// order and the last one repeats. Unmatched commands succeed with no output.
type FakeRunner struct {
	mu    sync.Mutex
	rules []*rule
	calls []Call
}

var _ cmdexec.Runner = (*FakeRunner)(nil)

func (f *FakeRunner) On(substr string, results ...Result) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, &rule{substr: substr, results: results})
	return f
}

func (f *FakeRunner) Run(_ context.Context, command string) error {
	_, err := f.answer(command, false)
	return err
}

func (f *FakeRunner) Output(_ context.Context, command string) (string, error) {
	return f.answer(command, true)
}

func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *FakeRunner) Commands() []string {
	calls := f.Calls()
	cmds := make([]string, len(calls))
	for i, c := range calls {
		cmds[i] = c.Command
	}
	return cmds
}

// Count returns how many recorded commands contain substr.
func (f *FakeRunner) Count(substr string) int {
	var n int
	for _, c := range f.Calls() {
		if strings.Contains(c.Command, substr) {
			n++
		}
	}
	return n
}

func (f *FakeRunner) answer(command string, captured bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Command: command, Captured: captured})
	for _, r := range f.rules {
		if !strings.Contains(command, r.substr) || len(r.results) == 0 {
			continue
		}
		res := r.results[0]
		if len(r.results) > 1 {
			r.results = r.results[1:]
		}
		return res.Output, res.Err
	}
	return "", nil
}

// ExitErr builds the error a failing command produces.
func ExitErr(code int) error {
	return &cmdexec.Error{Command: "fake", ExitCode: code}
}

// FakePrompter answers prompts from per-kind queues. A queue entry that is an
// error is returned as the prompt's error. An exhausted queue behaves like the
// operator pressing Ctrl-C.
type FakePrompter struct {
	Confirms     []any
	Secrets      []any
	Selects      []any
	MultiSelects []any
	Pauses       int

	Asked []string
}

var _ prompt.Prompter = (*FakePrompter)(nil)

func (p *FakePrompter) Confirm(message string) (bool, error) {
	v, err := p.next(&p.Confirms, message)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func (p *FakePrompter) Secret(message string) (string, error) {
	v, err := p.next(&p.Secrets, message)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

func (p *FakePrompter) Select(item string, _ []string) (string, error) {
	v, err := p.next(&p.Selects, item)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

func (p *FakePrompter) MultiSelect(items string, _ []string) ([]string, error) {
	v, err := p.next(&p.MultiSelects, items)
	if err != nil {
		return nil, err
	}
	ss, _ := v.([]string)
	return ss, nil
}

func (p *FakePrompter) Pause(message string) error {
	p.Asked = append(p.Asked, message)
	p.Pauses++
	return nil
}

func (p *FakePrompter) next(queue *[]any, message string) (any, error) {
	p.Asked = append(p.Asked, message)
	if len(*queue) == 0 {
		return nil, errors.Mark(errors.Newf("no scripted answer for %q", message), prompt.ErrCancelled)
	}
	v := (*queue)[0]
	*queue = (*queue)[1:]
	if err, ok := v.(error); ok {
		return nil, err
	}
	return v, nil
}
