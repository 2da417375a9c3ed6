// Package session owns the conversation log and the submit lifecycle.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/signalnine/deskmate/internal/agent"
	"github.com/signalnine/deskmate/internal/config"
	"github.com/signalnine/deskmate/internal/interpret"
	"github.com/signalnine/deskmate/internal/protocol"
)

var (
	// ErrEmptyCommand is returned for blank input; nothing is appended
	ErrEmptyCommand = errors.New("empty command")
	// ErrBusy is returned while a submission is in flight; nothing is appended
	ErrBusy = errors.New("a command is already running")
)

// Querier is the part of the agent client the engine needs
type Querier interface {
	Query(ctx context.Context, command string) (*protocol.Response, error)
}

// Options tune an Engine
type Options struct {
	// LateEntries is config.LateAppend (default) or config.LateSuppress.
	LateEntries string
	Logger      *slog.Logger
	Now         func() time.Time
}

// Engine holds the ordered conversation log and admits at most one
// submission at a time.
type Engine struct {
	client   Querier
	suppress bool
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries []Entry
	busy    bool
	// epoch counts clears; a submission remembers the epoch it started in
	epoch uint64
}

// NewEngine creates an engine that sends commands through client
func NewEngine(client Querier, opts Options) *Engine {
	e := &Engine{
		client:   client,
		suppress: opts.LateEntries == config.LateSuppress,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Submit validates and admits command. On acceptance the user entry is
// already in the log when Submit returns; the assistant or error entry is
// appended when the query completes and is then sent on the returned
// channel, which is closed afterwards.
func (e *Engine) Submit(ctx context.Context, command string) (<-chan Entry, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrEmptyCommand
	}

	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	e.busy = true
	epoch := e.epoch
	e.entries = append(e.entries, Entry{
		ID:        newID(),
		Kind:      KindUser,
		Command:   command,
		Timestamp: e.now(),
	})
	e.mu.Unlock()

	done := make(chan Entry, 1)
	go func() {
		defer close(done)

		resp, err := e.client.Query(ctx, command)
		entry := e.resultEntry(resp, err)

		e.mu.Lock()
		if e.suppress && epoch != e.epoch {
			e.logger.Debug("dropping late entry after clear", "entry_id", entry.ID, "kind", entry.Kind.String())
		} else {
			e.entries = append(e.entries, entry)
		}
		e.busy = false
		e.mu.Unlock()

		done <- entry
	}()

	return done, nil
}

// Ask submits command and waits for its result entry.
func (e *Engine) Ask(ctx context.Context, command string) (Entry, error) {
	done, err := e.Submit(ctx, command)
	if err != nil {
		return Entry{}, err
	}
	return <-done, nil
}

func (e *Engine) resultEntry(resp *protocol.Response, err error) Entry {
	entry := Entry{ID: newID(), Timestamp: e.now()}

	if err != nil {
		entry.Kind = KindError
		entry.ErrorKind = agent.KindOf(err)
		entry.Message = err.Error()
		e.logger.Warn("command failed", "kind", entry.ErrorKind.String(), "error", err)
		return entry
	}

	if resp == nil {
		resp = &protocol.Response{}
	}
	entry.Kind = KindAssistant
	entry.Response = resp
	entry.Units = interpret.Steps(resp.Steps)
	e.logger.Info("command completed", "success", resp.Success, "steps", len(resp.Steps))
	return entry
}

// Clear empties the log. An in-flight submission is not canceled.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = nil
	e.epoch++
}

// Log returns a snapshot of the entries in insertion order
func (e *Engine) Log() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Entry, len(e.entries))
	copy(out, e.entries)
	return out
}

// Len returns the number of entries
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// Busy reports whether a submission is in flight
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// Commands lists the user commands currently in the log, oldest first
func (e *Engine) Commands() []HistoryItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	var items []HistoryItem
	for _, entry := range e.entries {
		if entry.Kind == KindUser {
			items = append(items, HistoryItem{Command: entry.Command, Timestamp: entry.Timestamp})
		}
	}
	return items
}
