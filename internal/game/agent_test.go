package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lorenzotomasdiez/werewolf/internal/gamelog"
)

// scriptedAgent answers from canned values and records what it was told.
type scriptedAgent struct {
	mu       sync.Mutex
	info     SetupInfo
	nack     bool
	setupErr error
	speech   string
	speakErr error
	onNotify func(msg string) (*Intent, error)
	messages []string
	speaks   int
}

func (a *scriptedAgent) NewGame(_ context.Context, info SetupInfo) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.info = info
	return !a.nack, a.setupErr
}

func (a *scriptedAgent) Speak(_ context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.speaks++
	return a.speech, a.speakErr
}

func (a *scriptedAgent) Notify(_ context.Context, msg string) (*Intent, error) {
	a.mu.Lock()
	a.messages = append(a.messages, msg)
	f := a.onNotify
	a.mu.Unlock()
	if f == nil {
		return &Intent{}, nil
	}
	return f(msg)
}

func (a *scriptedAgent) received(msg string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, m := range a.messages {
		if m == msg {
			n++
		}
	}
	return n
}

func (a *scriptedAgent) setup() SetupInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.info
}

// hangingAgent never answers before its context expires.
type hangingAgent struct{}

func (hangingAgent) NewGame(ctx context.Context, _ SetupInfo) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

func (hangingAgent) Speak(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (hangingAgent) Notify(ctx context.Context, _ string) (*Intent, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// stubbornAgent ignores its context and only answers once release is
// closed.
type stubbornAgent struct {
	release chan struct{}
}

func newStubbornAgent() stubbornAgent { return stubbornAgent{release: make(chan struct{})} }

func (a stubbornAgent) NewGame(context.Context, SetupInfo) (bool, error) {
	<-a.release
	return true, nil
}

func (a stubbornAgent) Speak(context.Context) (string, error) {
	<-a.release
	return "late", nil
}

func (a stubbornAgent) Notify(context.Context, string) (*Intent, error) {
	<-a.release
	return &Intent{WantToSpeak: true, VoteFor: "Aline"}, nil
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed*31+7))
}

var testNames = []string{"Aline", "Benjamin", "Chloe", "David", "Elise", "Frederic", "Gabrielle", "Hugo", "Ines", "Julien"}

// newTable builds a roster of scripted agents with the given roles.
func newTable(t *testing.T, roles ...Role) (*Roster, []*scriptedAgent) {
	t.Helper()
	agents := make([]*scriptedAgent, len(roles))
	players := make([]*Player, len(roles))
	for i, role := range roles {
		name := fmt.Sprintf("P%d", i)
		if i < len(testNames) {
			name = testNames[i]
		}
		agents[i] = &scriptedAgent{speech: "I have nothing to hide."}
		players[i] = NewPlayer(name, i%2 == 0, agents[i])
		players[i].Role = role
	}
	r, err := NewRoster(players)
	require.NoError(t, err)
	return r, agents
}

func newTestCoordinator(r *Roster, seed uint64, opts ...Option) (*Coordinator, *gamelog.Log) {
	log := gamelog.New()
	opts = append([]Option{WithRand(seeded(seed)), WithGameID("test-game")}, opts...)
	return NewCoordinator(r, log, opts...), log
}

func vote(target string) func(string) (*Intent, error) {
	return func(string) (*Intent, error) { return &Intent{VoteFor: target}, nil }
}
