package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/edgewatch/internal/ir"
)

// ErrLoopStopped is returned when a command is submitted to a stopped Loop.
var ErrLoopStopped = errors.New("watch loop stopped")

// Loop serializes registry operations for hosts that receive notifications
// on several goroutines.
//
// Thread-safety model:
//   - Enqueue, Register, Deregister, Notify, Do: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//
// All registry mutation happens on the Run goroutine.
type Loop struct {
	registry *Registry
	queue    *commandQueue
}

// NewLoop wraps a registry. The registry must not be used directly once Run
// has started.
func NewLoop(r *Registry) *Loop {
	return &Loop{registry: r, queue: newCommandQueue()}
}

// Enqueue submits a command. Returns false if the loop has been stopped.
func (l *Loop) Enqueue(c Command) bool {
	return l.queue.Enqueue(c)
}

// Register queues an entry registration.
func (l *Loop) Register(spec ir.EntrySpec) bool {
	return l.Enqueue(Command{Type: CommandRegister, Spec: spec})
}

// Deregister queues an entry removal.
func (l *Loop) Deregister(id ir.EntryID) bool {
	return l.Enqueue(Command{Type: CommandDeregister, EntryID: id})
}

// Notify queues a change notification.
func (l *Loop) Notify(sourceID ir.SourceID, kind ir.Kind) bool {
	return l.Enqueue(Command{Type: CommandNotify, SourceID: sourceID, Kind: kind})
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func(*Registry) error) error {
	reply := make(chan error, 1)
	if !l.Enqueue(Command{Type: CommandFunc, Func: fn, Reply: reply}) {
		return ErrLoopStopped
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueLen returns the number of pending commands.
func (l *Loop) QueueLen() int {
	return l.queue.Len()
}

// Stop closes the queue. Run drains what is already queued, then returns nil.
func (l *Loop) Stop() {
	l.queue.Close()
}

// Run processes commands until ctx is cancelled or Stop is called.
//
// Errors from individual commands are logged (and sent to Reply) and
// processing continues.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("watch loop starting")

	for {
		if cmd, ok := l.queue.TryDequeue(); ok {
			err := l.process(cmd)
			if err != nil {
				slog.Error("watch command failed",
					"type", cmd.Type,
					"entry_id", commandEntryID(cmd),
					"error", err,
				)
			}
			if cmd.Reply != nil {
				cmd.Reply <- err
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("watch loop stopping: context cancelled")
			l.queue.Close()
			return ctx.Err()

		case <-l.queue.Wait():
			// Closed signal fires immediately; stop once drained.
			if l.queue.Len() == 0 && l.closed() {
				slog.Info("watch loop stopping: queue closed")
				return nil
			}
		}
	}
}

func (l *Loop) closed() bool {
	l.queue.mu.Lock()
	defer l.queue.mu.Unlock()
	return l.queue.closed
}

func (l *Loop) process(cmd Command) error {
	switch cmd.Type {
	case CommandRegister:
		return l.registry.Register(cmd.Spec)
	case CommandDeregister:
		return l.registry.Deregister(cmd.EntryID)
	case CommandNotify:
		l.registry.Notify(cmd.SourceID, cmd.Kind)
		return nil
	case CommandRefresh:
		l.registry.Refresh()
		return nil
	case CommandFunc:
		if cmd.Func == nil {
			return fmt.Errorf("func command missing func")
		}
		return cmd.Func(l.registry)
	default:
		return fmt.Errorf("unknown command type: %d", cmd.Type)
	}
}

func commandEntryID(cmd Command) ir.EntryID {
	if cmd.Type == CommandRegister {
		return cmd.Spec.ID
	}
	return cmd.EntryID
}
