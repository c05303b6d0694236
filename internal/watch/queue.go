package watch

import (
	"sync"

	"github.com/roach88/edgewatch/internal/ir"
)

// CommandType distinguishes queued registry operations.
type CommandType int

const (
	// CommandRegister registers Spec.
	CommandRegister CommandType = iota + 1
	// CommandDeregister removes EntryID.
	CommandDeregister
	// CommandNotify delivers a change notification for (SourceID, Kind).
	CommandNotify
	// CommandRefresh runs an unconditional pass over every entry.
	CommandRefresh
	// CommandFunc runs Func against the registry on the loop goroutine.
	CommandFunc
)

// Command is one queued registry operation.
//
// Reply, if non-nil, receives the operation's error (nil on success) once
// the command has been processed. It should be buffered.
type Command struct {
	Type     CommandType
	Spec     ir.EntrySpec
	EntryID  ir.EntryID
	SourceID ir.SourceID
	Kind     ir.Kind
	Func     func(*Registry) error
	Reply    chan<- error
}

// commandQueue is an unbounded FIFO of commands.
//
// Enqueue is safe from any goroutine; the Loop goroutine dequeues. A buffered
// channel of size 1 signals availability so Run can wait on it alongside
// ctx.Done().
type commandQueue struct {
	mu       sync.Mutex
	commands []Command
	closed   bool
	signal   chan struct{}
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		commands: make([]Command, 0, 64),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue appends a command. Returns false if the queue is closed.
func (q *commandQueue) Enqueue(c Command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.commands = append(q.commands, c)

	// Non-blocking: the size-1 buffer coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front command without blocking.
func (q *commandQueue) TryDequeue() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.commands) == 0 {
		return Command{}, false
	}

	c := q.commands[0]
	// Clear the slot so the backing array does not pin specs and closures.
	q.commands[0] = Command{}
	if len(q.commands) == 1 {
		q.commands = q.commands[:0]
	} else {
		q.commands = q.commands[1:]
	}

	return c, true
}

// Wait returns the availability signal. It is closed by Close.
func (q *commandQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending commands.
func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.commands)
}

// Close stops further enqueues and wakes waiters.
func (q *commandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
