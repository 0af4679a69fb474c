package worker

import (
	"context"
	"fmt"

	"betai/internal/service/advisor"
)

const anonymousKey = "anonymous"

// ChatHandler is the advisor being queued.
type ChatHandler interface {
	Chat(ctx context.Context, req advisor.Request) (advisor.Reply, error)
}

// QueuedAdvisor runs every chat request on the dispatcher's worker pool.
type QueuedAdvisor struct {
	inner      ChatHandler
	dispatcher *Dispatcher
}

func NewQueuedAdvisor(inner ChatHandler, d *Dispatcher) *QueuedAdvisor {
	return &QueuedAdvisor{inner: inner, dispatcher: d}
}

type chatResult struct {
	reply advisor.Reply
	err   error
}

func (q *QueuedAdvisor) Chat(ctx context.Context, req advisor.Request) (advisor.Reply, error) {
	key := req.UserID
	if key == "" {
		key = anonymousKey
	}
	resultCh := make(chan chatResult, 1)
	err := q.dispatcher.Submit(ctx, key, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- chatResult{err: fmt.Errorf("chat job panicked: %v", r)}
				panic(r)
			}
		}()
		reply, err := q.inner.Chat(ctx, req)
		resultCh <- chatResult{reply: reply, err: err}
	})
	if err != nil {
		return advisor.Reply{}, err
	}

	select {
	case ret := <-resultCh:
		return ret.reply, ret.err
	case <-ctx.Done():
		return advisor.Reply{}, ctx.Err()
	case <-q.dispatcher.Done():
		select {
		case ret := <-resultCh:
			return ret.reply, ret.err
		default:
			return advisor.Reply{}, ErrClosed
		}
	}
}
