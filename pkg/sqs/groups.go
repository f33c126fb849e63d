package sqs

import "sync"

// groupDispatcher runs tasks of the same message group one at a time, in
// dispatch order. Each active group gets its own goroutine, which exits once
// the group has nothing left to run.
type groupDispatcher struct {
	mu     sync.Mutex
	queues map[string][]func()
}

func newGroupDispatcher() *groupDispatcher {
	return &groupDispatcher{queues: map[string][]func(){}}
}

func (g *groupDispatcher) dispatch(group string, task func()) {
	g.mu.Lock()
	pending, active := g.queues[group]
	g.queues[group] = append(pending, task)
	g.mu.Unlock()

	if !active {
		go g.run(group)
	}
}

func (g *groupDispatcher) run(group string) {
	for {
		g.mu.Lock()
		pending := g.queues[group]
		if len(pending) == 0 {
			delete(g.queues, group)
			g.mu.Unlock()
			return
		}
		task := pending[0]
		g.queues[group] = pending[1:]
		g.mu.Unlock()

		task()
	}
}

// active returns the number of groups with queued or running tasks.
func (g *groupDispatcher) active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queues)
}
