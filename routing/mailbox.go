package routing

import (
	"context"
	"sync"
)

type item struct {
	msg  *Message
	stop bool
}

type mailbox struct {
	node     *Node
	addrs    []Address
	worker   Worker
	incoming AccessControl
	outgoing AccessControl
	cancel   context.CancelFunc

	mu       sync.Mutex
	queue    []item
	stopping bool
	finished bool
	onStop   []func()
	// signal has room for one pending wakeup
	signal chan struct{}
	// closed after the mailbox has finished
	done chan struct{}
}

func (mb *mailbox) wake() {
	select {
	case mb.signal <- struct{}{}:
	default:
	}
}

func (mb *mailbox) enqueue(it item) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.stopping {
		return ErrRoutingFailure
	}
	mb.queue = append(mb.queue, it)
	mb.wake()
	return nil
}

// requestStop queues the stop marker behind the messages already
// accepted. Later messages are refused.
func (mb *mailbox) requestStop() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.stopping {
		return
	}
	mb.stopping = true
	mb.queue = append(mb.queue, item{stop: true})
	mb.wake()
}

func (mb *mailbox) dequeue(ctx context.Context) (item, error) {
	for {
		mb.mu.Lock()
		if len(mb.queue) > 0 {
			it := mb.queue[0]
			mb.queue[0] = item{}
			mb.queue = mb.queue[1:]
			mb.mu.Unlock()
			return it, nil
		}
		finished := mb.finished
		mb.mu.Unlock()
		if finished {
			return item{}, ErrRoutingFailure
		}

		select {
		case <-mb.signal:
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return item{}, ErrTimedOut
			}
			return item{}, ctx.Err()
		}
	}
}

func (mb *mailbox) admit(c *Context, msg *Message) bool {
	if mb.incoming.IsAuthorized(c, msg) {
		return true
	}
	mb.node.debug(Dropped{Address: mb.addrs[0], Direction: "incoming", Onward: msg.Onward.String()})
	return false
}

func (mb *mailbox) serve(c *Context) {
	for {
		it, err := mb.dequeue(context.Background())
		if err != nil {
			// only a finished mailbox fails to dequeue
			return
		}
		if it.stop {
			mb.finish(c)
			return
		}
		if !mb.admit(c, it.msg) {
			continue
		}
		if err := mb.worker.HandleMessage(c, it.msg); err != nil {
			mb.node.debug(HandlerFailed{Address: mb.addrs[0], Error: err.Error()})
		}
	}
}

// finish releases the mailbox: the worker shuts down, addresses are
// unregistered and stop notifications fire. It runs once.
func (mb *mailbox) finish(c *Context) {
	mb.mu.Lock()
	if mb.finished {
		mb.mu.Unlock()
		return
	}
	mb.finished = true
	mb.stopping = true
	mb.queue = nil
	mb.wake()
	mb.mu.Unlock()

	if s, ok := mb.worker.(Shutdowner); ok && c != nil {
		if err := s.Shutdown(c); err != nil {
			mb.node.debug(HandlerFailed{Address: mb.addrs[0], Error: err.Error()})
		}
	}
	mb.node.unregister(mb)
	mb.cancel()
	mb.node.debug(WorkerStopped{Address: mb.addrs[0]})

	mb.mu.Lock()
	notify := mb.onStop
	mb.onStop = nil
	mb.mu.Unlock()
	for _, fn := range notify {
		fn()
	}
	close(mb.done)
	mb.node.wg.Done()
}
