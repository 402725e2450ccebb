package satel

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/satelink/internal/logging"
	"github.com/muurk/satelink/internal/protocol"
)

const (
	// DefaultResponseTimeout is how long the queue waits for the panel
	// to answer a command before failing it.
	DefaultResponseTimeout = 5 * time.Second

	// pendingCapacity bounds the number of commands waiting behind the
	// one in flight.
	pendingCapacity = 64
)

// resultSlot is the single-shot completion slot for one queued command.
// Whichever side resolves first wins; later resolutions are discarded.
type resultSlot struct {
	mu       sync.Mutex
	resolved bool
	done     chan struct{}

	msg *protocol.ReadMessage
	err error
}

func newResultSlot() *resultSlot {
	return &resultSlot{done: make(chan struct{})}
}

func (s *resultSlot) resolve(msg *protocol.ReadMessage, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return false
	}
	s.resolved = true
	s.msg = msg
	s.err = err
	close(s.done)
	return true
}

// queuedMessage pairs a command with the opcode its answer must carry
// and the slot the outcome lands in.
type queuedMessage struct {
	msg      *protocol.WriteMessage
	expected protocol.ReadCommand
	slot     *resultSlot
	waited   bool
}

// MessageQueue serializes commands towards the panel: exactly one
// command is on the wire at a time, and the next one is not sent until
// the current one is answered, times out, or fails to send. Responses
// arrive through OnMessageReceived, fed by the driver's read loop.
type MessageQueue struct {
	send            func(*protocol.WriteMessage) error
	responseTimeout time.Duration

	pending    chan *queuedMessage
	quit       chan struct{}
	workerDone chan struct{}

	mu      sync.Mutex
	current *queuedMessage
	started bool
	closed  bool
}

// NewMessageQueue builds a stopped queue that transmits through send. A
// zero responseTimeout selects DefaultResponseTimeout.
func NewMessageQueue(send func(*protocol.WriteMessage) error, responseTimeout time.Duration) *MessageQueue {
	if responseTimeout <= 0 {
		responseTimeout = DefaultResponseTimeout
	}
	return &MessageQueue{
		send:            send,
		responseTimeout: responseTimeout,
		pending:         make(chan *queuedMessage, pendingCapacity),
		quit:            make(chan struct{}),
		workerDone:      make(chan struct{}),
	}
}

// Start launches the worker goroutine. Starting twice is a no-op.
func (q *MessageQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	go q.worker()
}

// Stop terminally shuts the queue down. The in-flight command and every
// command still waiting in the buffer fail with ErrQueueStopped.
func (q *MessageQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	started := q.started
	q.mu.Unlock()

	close(q.quit)
	if started {
		<-q.workerDone
	}

	for {
		select {
		case qm := <-q.pending:
			qm.slot.resolve(nil, ErrQueueStopped)
		default:
			logging.Debug("Message queue stopped")
			return
		}
	}
}

// AddMessage queues msg for transmission. With waitForResult set the
// call blocks until the panel answers with the matching opcode, the
// response timeout fires, or the queue stops; otherwise it returns as
// soon as the command is queued.
func (q *MessageQueue) AddMessage(msg *protocol.WriteMessage, waitForResult bool) (*protocol.ReadMessage, error) {
	qm := &queuedMessage{
		msg:      msg,
		expected: msg.Cmd.ExpectedResponse(),
		slot:     newResultSlot(),
		waited:   waitForResult,
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueStopped
	}
	select {
	case q.pending <- qm:
	default:
		q.mu.Unlock()
		return nil, ErrQueueFull
	}
	q.mu.Unlock()

	if !waitForResult {
		return nil, nil
	}
	<-qm.slot.done
	return qm.slot.msg, qm.slot.err
}

// OnMessageReceived offers an incoming message to the in-flight command.
// It returns true when the message resolved that command, which happens
// only when its opcode matches the expected response opcode: RESULT for
// most commands, the command's own opcode for self-echoing ones.
func (q *MessageQueue) OnMessageReceived(msg *protocol.ReadMessage) bool {
	q.mu.Lock()
	qm := q.current
	q.mu.Unlock()
	if qm == nil {
		return false
	}

	if msg.Cmd != qm.expected {
		return false
	}

	logging.Debug("Response received", zap.Stringer("cmd", msg.Cmd))
	qm.slot.resolve(msg, nil)
	return true
}

func (q *MessageQueue) worker() {
	defer close(q.workerDone)
	logging.Debug("Message queue worker started")

	for {
		select {
		case <-q.quit:
			return
		case qm := <-q.pending:
			q.setCurrent(qm)
			q.process(qm)
			q.setCurrent(nil)
		}
	}
}

func (q *MessageQueue) process(qm *queuedMessage) {
	select {
	case <-q.quit:
		qm.slot.resolve(nil, ErrQueueStopped)
		return
	default:
	}

	logging.Debug("Sending message",
		zap.Stringer("cmd", qm.msg.Cmd),
		zap.Bool("awaited", qm.waited))

	if err := q.send(qm.msg); err != nil {
		logging.Warn("Failed to send message",
			zap.Stringer("cmd", qm.msg.Cmd), zap.Error(err))
		qm.slot.resolve(nil, fmt.Errorf("sending %s: %w", qm.msg.Cmd, err))
		return
	}

	timer := time.NewTimer(q.responseTimeout)
	defer timer.Stop()

	select {
	case <-qm.slot.done:
	case <-timer.C:
		logging.Warn("Timed out waiting for response",
			zap.Stringer("cmd", qm.msg.Cmd),
			zap.Duration("timeout", q.responseTimeout))
		qm.slot.resolve(nil, fmt.Errorf("%w: %s", ErrResponseTimeout, qm.msg.Cmd))
	case <-q.quit:
		qm.slot.resolve(nil, ErrQueueStopped)
	}
}

func (q *MessageQueue) setCurrent(qm *queuedMessage) {
	q.mu.Lock()
	q.current = qm
	q.mu.Unlock()
}
