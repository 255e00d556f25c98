package downloader

import (
	"context"
	"sync"
)

type call struct {
	name string
	args []string
}

// fakeRunner returns canned output and records each invocation.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []call
	stdout []byte
	stderr []byte
	code   int
	err    error
	hook   func(ctx context.Context)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: append([]string(nil), args...)})
	f.mu.Unlock()
	if f.hook != nil {
		f.hook(ctx)
	}
	return f.stdout, f.stderr, f.code, f.err
}

func (f *fakeRunner) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}
