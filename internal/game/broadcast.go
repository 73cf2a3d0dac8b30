package game

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// announceToAll notifies every living player concurrently and returns the
// intents of those who answered, in roster order. Failed or late calls are
// dropped; they never abort the broadcast.
func (c *Coordinator) announceToAll(ctx context.Context, msg string) []Intent {
	active := c.roster.Active("")
	if len(active) == 0 {
		return nil
	}
	replies := make([]*Intent, len(active))

	var g errgroup.Group
	g.SetLimit(len(active))
	for i, p := range active {
		g.Go(func() error {
			replies[i] = c.notify(ctx, p, msg)
			return nil
		})
	}
	_ = g.Wait()

	intents := make([]Intent, 0, len(replies))
	for _, in := range replies {
		if in != nil {
			intents = append(intents, *in)
		}
	}
	return intents
}

// notify sends msg to a single player. It returns nil when the agent fails,
// times out or answers nothing.
func (c *Coordinator) notify(ctx context.Context, p *Player, msg string) *Intent {
	in, err := withDeadline(ctx, c.callTimeout, func(cctx context.Context) (*Intent, error) {
		return p.Agent.Notify(cctx, msg)
	})
	if err != nil {
		c.logger.Warn("notify failed", zap.String("player", p.Name), zap.Error(err))
		return nil
	}
	if in == nil {
		return nil
	}
	out := *in
	out.Player = p.Name
	return &out
}

// withDeadline runs an agent call and stops waiting for it once d has
// elapsed, whether or not the agent honours its context. A late answer is
// discarded.
func withDeadline[T any](ctx context.Context, d time.Duration, call func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type reply struct {
		v   T
		err error
	}
	done := make(chan reply, 1)
	go func() {
		v, err := call(cctx)
		done <- reply{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-cctx.Done():
		var zero T
		return zero, fmt.Errorf("game: agent call: %w", cctx.Err())
	}
}
