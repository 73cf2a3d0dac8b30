package bot

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/lorenzotomasdiez/werewolf/internal/game"
)

// ErrNoGame is returned when a bot is asked to act before being set up.
var ErrNoGame = errors.New("bot: no game in progress")

// Agent runs a bot in process. It implements game.Agent.
type Agent struct {
	mu     sync.Mutex
	rng    *rand.Rand
	player *Player
}

var _ game.Agent = (*Agent)(nil)

// NewAgent creates an in-process bot agent drawing from rng.
func NewAgent(rng *rand.Rand) *Agent {
	return &Agent{rng: rng}
}

// NewGame implements game.Agent.
func (a *Agent) NewGame(_ context.Context, info game.SetupInfo) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.player = New(info, a.rng)
	return true, nil
}

// Speak implements game.Agent.
func (a *Agent) Speak(_ context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.player == nil {
		return "", ErrNoGame
	}
	return a.player.Speak(), nil
}

// Notify implements game.Agent.
func (a *Agent) Notify(_ context.Context, message string) (*game.Intent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.player == nil {
		return nil, ErrNoGame
	}
	in := a.player.Notify(message)
	return &in, nil
}
