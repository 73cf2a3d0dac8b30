package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lorenzotomasdiez/werewolf/internal/gamelog"
)

func TestNightUnanimousWerewolvesKill(t *testing.T) {
	r, agents := newTable(t, Werewolf, Werewolf, Werewolf, Villager, Villager, Villager, Villager)
	for _, a := range agents[:3] {
		a.onNotify = vote("David")
	}
	c, log := newTestCoordinator(r, 1)

	victim := c.Night(context.Background())

	require.NotNil(t, victim)
	assert.Equal(t, "David", victim.Name)
	assert.False(t, victim.Alive)
	assert.Len(t, log.OfType(gamelog.WerewolfVote), 1)
	for i, a := range agents {
		want := 0
		if i < 3 {
			want = 1
		}
		assert.Equal(t, want, a.received(MsgWolvesWake), "player %d", i)
		assert.Equal(t, 1, a.received(MsgNightFalls), "player %d", i)
	}
	assert.Equal(t, Night, c.State())
	assert.False(t, c.Over())
}

func TestNightDisagreementLeavesNoVictim(t *testing.T) {
	r, agents := newTable(t, Werewolf, Werewolf, Villager, Villager, Villager)
	agents[0].onNotify = vote("Chloe")
	agents[1].onNotify = vote("David")
	c, log := newTestCoordinator(r, 1)

	assert.Nil(t, c.Night(context.Background()))

	wolfVotes := log.OfType(gamelog.WerewolfVote)
	require.Len(t, wolfVotes, maxNightRounds)
	for i, e := range wolfVotes {
		assert.False(t, e.Public, "werewolf votes reveal the pack")
		assert.Equal(t, i+1, e.Context["round"])
	}
	assert.Equal(t, maxNightRounds, agents[0].received(MsgWolvesWake))
	assert.Len(t, r.Active(""), 5)
}

func TestNightSilentWerewolfBlocksConsensus(t *testing.T) {
	r, agents := newTable(t, Werewolf, Werewolf, Villager, Villager, Villager)
	agents[0].onNotify = vote("Chloe")
	agents[1].onNotify = func(msg string) (*Intent, error) {
		if msg == MsgWolvesWake {
			return nil, errors.New("connection refused")
		}
		return &Intent{}, nil
	}
	c, _ := newTestCoordinator(r, 1)

	assert.Nil(t, c.Night(context.Background()))
	assert.True(t, r.IsActive("Chloe"))
}

func TestNightInvalidWerewolfVoteIsIgnored(t *testing.T) {
	r, agents := newTable(t, Werewolf, Villager, Villager, Villager)
	agents[0].onNotify = vote("Zorro")
	c, _ := newTestCoordinator(r, 1)

	assert.Nil(t, c.Night(context.Background()))
	assert.Len(t, r.Active(""), 4)
}

func TestSeerProbeIsPrivate(t *testing.T) {
	r, agents := newTable(t, Seer, Werewolf, Villager, Villager, Villager)
	agents[0].onNotify = func(msg string) (*Intent, error) {
		if msg == MsgSeerWakes {
			return &Intent{VoteFor: "Benjamin"}, nil
		}
		return &Intent{}, nil
	}
	c, log := newTestCoordinator(r, 1)

	c.Night(context.Background())

	reveal := msgSeerReveal("Benjamin", Werewolf)
	assert.Equal(t, "The role of Benjamin is werewolf.", reveal)
	assert.Equal(t, 1, agents[0].received(MsgSeerWakes))
	assert.Equal(t, 1, agents[0].received(reveal))
	for _, a := range agents[1:] {
		assert.Zero(t, a.received(MsgSeerWakes))
		assert.Zero(t, a.received(reveal))
	}

	entries := log.OfType(gamelog.SeerReveal)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.False(t, e.Public)
	assert.Equal(t, "Aline", e.Target)
	assert.Equal(t, "Benjamin", e.Context["player_to_check"])
	assert.Equal(t, "werewolf", e.Context["player_to_check_role"])

	wake := log.OfType(gamelog.SeerWakeup)
	require.Len(t, wake, 1)
	assert.True(t, wake[0].Public)
}

func TestSeerInvalidProbeRevealsNothing(t *testing.T) {
	r, agents := newTable(t, Seer, Werewolf, Villager, Villager, Villager)
	r.Eliminate("Chloe")
	agents[0].onNotify = func(msg string) (*Intent, error) {
		if msg == MsgSeerWakes {
			return &Intent{VoteFor: "Chloe"}, nil
		}
		return &Intent{}, nil
	}
	c, log := newTestCoordinator(r, 1)

	c.Night(context.Background())

	assert.Empty(t, log.OfType(gamelog.SeerReveal))
	assert.Zero(t, agents[0].received(msgSeerReveal("Chloe", Villager)))
}

func TestNightWithoutSeerSkipsProbe(t *testing.T) {
	r, _ := newTable(t, Werewolf, Villager, Villager)
	c, log := newTestCoordinator(r, 1)

	c.Night(context.Background())

	assert.Empty(t, log.OfType(gamelog.SeerWakeup))
	assert.Len(t, log.OfType(gamelog.NightStart), 1)
}

func TestStartSendsRolesAndPack(t *testing.T) {
	r, agents := newTable(t, make([]Role, 6)...)
	c, log := newTestCoordinator(r, 3)

	require.NoError(t, c.Start(context.Background()))

	wolves := names(r.Werewolves())
	require.Len(t, wolves, 2)
	for i, a := range agents {
		info := a.setup()
		p := r.Players()[i]
		assert.Equal(t, p.Name, info.PlayerName)
		assert.Equal(t, p.Role, info.Role)
		assert.Equal(t, testNames[:6], info.PlayerNames)
		if p.Role == Werewolf {
			assert.ElementsMatch(t, wolves, info.Werewolves)
		} else {
			assert.Empty(t, info.Werewolves, "%s must not learn the pack", p.Name)
		}
	}
	assert.Len(t, log.OfType(gamelog.RoleAssignment), 6)
	assert.Equal(t, Setup, c.State())
}

func TestStartFailsWhenAgentRefuses(t *testing.T) {
	r, agents := newTable(t, make([]Role, 4)...)
	agents[2].nack = true
	c, log := newTestCoordinator(r, 1)

	err := c.Start(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSetupFailed)
	assert.Contains(t, err.Error(), "Chloe")
	failures := log.OfType(gamelog.SetupError)
	require.Len(t, failures, 1)
	assert.Equal(t, "Chloe", failures[0].Target)
	assert.True(t, failures[0].Public)
	assert.Equal(t, "not acknowledged", failures[0].Context["reason"])
	assert.Zero(t, agents[3].setup().PlayerName, "setup stops at the first refusal")
}

func TestStartFailsWhenAgentErrors(t *testing.T) {
	r, agents := newTable(t, make([]Role, 3)...)
	agents[0].setupErr = errors.New("dial tcp: connection refused")
	c, log := newTestCoordinator(r, 1)

	err := c.Start(context.Background())

	assert.ErrorIs(t, err, ErrSetupFailed)
	require.Len(t, log.OfType(gamelog.SetupError), 1)
	assert.Equal(t, "dial tcp: connection refused", log.OfType(gamelog.SetupError)[0].Context["reason"])
}

func TestStartNeedsThreePlayers(t *testing.T) {
	r, _ := newTable(t, make([]Role, 2)...)
	c, log := newTestCoordinator(r, 1)

	assert.ErrorIs(t, c.Start(context.Background()), ErrSetupFailed)
	assert.Zero(t, log.Len())
}

func TestAnnounceToAllToleratesBrokenAgents(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, agents := newTable(t, Villager, Villager, Villager, Villager)
	r.Players()[1].Agent = hangingAgent{}
	agents[2].onNotify = func(string) (*Intent, error) { return nil, errors.New("500 internal server error") }
	agents[3].onNotify = func(string) (*Intent, error) {
		return &Intent{Player: "someone else", WantToSpeak: true}, nil
	}
	c, _ := newTestCoordinator(r, 1, WithCallTimeout(20*time.Millisecond))

	start := time.Now()
	intents := c.announceToAll(context.Background(), "hello")

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, intents, 2)
	assert.Equal(t, "Aline", intents[0].Player)
	assert.Equal(t, "David", intents[1].Player, "the sender is authoritative, not the payload")
	assert.True(t, intents[1].WantToSpeak)
	assert.Equal(t, 1, agents[0].received("hello"))
}

func TestAnnounceToAllStopsWaitingAtTheDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, _ := newTable(t, Villager, Villager, Villager)
	slow := newStubbornAgent()
	defer close(slow.release)
	r.Players()[2].Agent = slow
	c, _ := newTestCoordinator(r, 1, WithCallTimeout(20*time.Millisecond))

	start := time.Now()
	intents := c.announceToAll(context.Background(), "hello")

	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, intents, 2, "a late answer is not counted")
	for _, in := range intents {
		assert.NotEqual(t, "Chloe", in.Player)
	}
}

func TestSegmentEliminatesSpeakerPastTheDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, agents := newTable(t, Werewolf, Villager, Villager, Villager)
	slow := newStubbornAgent()
	defer close(slow.release)
	r.Players()[1].Agent = slow
	c, log := newTestCoordinator(r, 1, WithCallTimeout(20*time.Millisecond))
	speaker, _ := r.Get("Benjamin")

	start := time.Now()
	_, spoke := c.segment(context.Background(), speaker)

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, spoke)
	assert.False(t, speaker.Alive)
	assert.Zero(t, c.Round())
	assert.Empty(t, log.OfType(gamelog.Speech))
	elims := log.OfType(gamelog.Eliminate)
	require.Len(t, elims, 1)
	assert.Equal(t, "Benjamin", elims[0].Actor)
	assert.Equal(t, 1, agents[0].received(msgNoResponse("Benjamin")))
}

func TestStartFailsWhenAgentMissesTheDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, _ := newTable(t, Villager, Villager, Villager)
	slow := newStubbornAgent()
	defer close(slow.release)
	r.Players()[0].Agent = slow
	c, log := newTestCoordinator(r, 1, WithCallTimeout(20*time.Millisecond))

	start := time.Now()
	err := c.Start(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, ErrSetupFailed)
	errs := log.OfType(gamelog.SetupError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Context["reason"], "deadline exceeded")
}

func TestAnnounceToAllSkipsDeadPlayers(t *testing.T) {
	r, agents := newTable(t, Villager, Villager, Villager)
	r.Eliminate("Benjamin")
	c, _ := newTestCoordinator(r, 1)

	intents := c.announceToAll(context.Background(), "hello")

	assert.Len(t, intents, 2)
	assert.Zero(t, agents[1].received("hello"))
}

func TestDaySilentSpeakerIsEliminated(t *testing.T) {
	r, agents := newTable(t, Werewolf, Villager, Villager, Villager, Seer)
	agents[1].speakErr = errors.New("context deadline exceeded")
	agents[1].onNotify = func(string) (*Intent, error) { return &Intent{WantToInterrupt: true}, nil }
	c, log := newTestCoordinator(r, 5)

	c.Day(context.Background(), nil)

	assert.False(t, r.IsActive("Benjamin"))
	elims := log.OfType(gamelog.Eliminate)
	require.Len(t, elims, 1)
	assert.Equal(t, "Benjamin", elims[0].Actor)
	assert.True(t, elims[0].Public)
	assert.Equal(t, "no_speech_response", elims[0].Context["reason"])
	assert.Equal(t, 1, agents[0].received(msgNoResponse("Benjamin")))

	speeches := log.OfType(gamelog.Speech)
	assert.Equal(t, len(speeches), c.Round())
	for _, e := range speeches {
		assert.NotEqual(t, "Benjamin", e.Actor)
	}
	assert.Empty(t, r.Players()[1].SpokeAt)

	results := log.OfType(gamelog.VoteResult)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Context["victim"])
	assert.Contains(t, results[0].Content, "There is no victim.")
	assert.Len(t, r.Active(""), 4)
}

func TestDaySpeakersNeverRepeatBackToBack(t *testing.T) {
	r, agents := newTable(t, Werewolf, Villager, Villager, Villager)
	for _, a := range agents {
		a.onNotify = func(string) (*Intent, error) { return &Intent{WantToSpeak: true, WantToInterrupt: true}, nil }
	}
	c, log := newTestCoordinator(r, 9)

	c.Day(context.Background(), nil)

	var debate []gamelog.Entry
	for _, e := range log.Entries() {
		if e.Type == gamelog.VoteSoon {
			break
		}
		debate = append(debate, e)
	}
	prev := ""
	for _, e := range debate {
		if e.Type != gamelog.Speech {
			continue
		}
		assert.NotEqual(t, prev, e.Actor, "entry %d", e.Seq)
		prev = e.Actor
	}
	for _, p := range r.Players() {
		assert.LessOrEqual(t, p.Interruptions, MaxInterruptions+len(p.SpokeAt))
	}
}

func TestDayLastCallGivesOneTurnEach(t *testing.T) {
	r, agents := newTable(t, Werewolf, Villager, Villager, Villager)
	for _, a := range agents[2:] {
		a.onNotify = func(msg string) (*Intent, error) {
			return &Intent{WantToSpeak: msg == MsgVoteSoon}, nil
		}
	}
	c, log := newTestCoordinator(r, 4)

	c.Day(context.Background(), nil)

	var lastCall []string
	inLastCall := false
	for _, e := range log.Entries() {
		switch e.Type {
		case gamelog.VoteSoon:
			inLastCall = true
		case gamelog.VoteNow:
			inLastCall = false
		case gamelog.Speech:
			if inLastCall {
				lastCall = append(lastCall, e.Actor)
			}
		}
	}
	assert.ElementsMatch(t, []string{"Chloe", "David"}, lastCall)
}

func TestDayVoteEliminatesAndEndsGame(t *testing.T) {
	r, agents := newTable(t, Werewolf, Villager, Villager, Villager)
	for _, a := range agents {
		a.onNotify = func(msg string) (*Intent, error) {
			if msg == MsgVoteNow {
				return &Intent{VoteFor: "Aline"}, nil
			}
			return &Intent{}, nil
		}
	}
	c, log := newTestCoordinator(r, 2)

	c.Day(context.Background(), nil)

	assert.False(t, r.IsActive("Aline"))
	assert.True(t, c.Over())
	assert.Equal(t, VillagersWin, c.Verdict())

	results := log.OfType(gamelog.VoteResult)
	require.Len(t, results, 1)
	res := results[0]
	assert.True(t, res.Public)
	assert.Equal(t, "Aline", res.Context["victim"])
	assert.Equal(t, "werewolf", res.Context["victim_role"])
	assert.Len(t, res.Context["votes"], 4)
	assert.Contains(t, res.Content, "So Aline is dead and their role was werewolf.")
}

func TestNightThenDay(t *testing.T) {
	r, agents := newTable(t, Werewolf, Werewolf, Seer, Villager, Villager, Villager, Villager)
	for _, a := range agents[:2] {
		a.onNotify = func(msg string) (*Intent, error) {
			if msg == MsgWolvesWake {
				return &Intent{VoteFor: "David"}, nil
			}
			return &Intent{}, nil
		}
	}
	agents[2].onNotify = func(msg string) (*Intent, error) {
		if msg == MsgSeerWakes {
			return &Intent{VoteFor: "Aline"}, nil
		}
		return &Intent{}, nil
	}
	c, log := newTestCoordinator(r, 13)
	ctx := context.Background()

	victim := c.Night(ctx)
	require.NotNil(t, victim)
	c.Day(ctx, victim)

	assert.Equal(t, 1, agents[2].received("The role of Aline is werewolf."))
	morning := log.OfType(gamelog.MorningVictim)
	require.Len(t, morning, 1)
	assert.Equal(t, "David", morning[0].Context["victim"])
	assert.Equal(t, "villager", morning[0].Context["victim_role"])
	assert.Contains(t, morning[0].Content, "Tonight David was devoured by the werewolves.")

	dead := 0
	for _, p := range r.Players() {
		if !p.Alive {
			dead++
		}
	}
	assert.Equal(t, 1, dead, "nobody voted during the day")
	assert.Equal(t, len(log.OfType(gamelog.Speech)), c.Round())
	assert.Zero(t, agents[3].received(morning[0].Content), "the dead are not notified")
	assert.False(t, c.Over())
}

func TestRunPlaysUntilVerdict(t *testing.T) {
	r, agents := newTable(t, make([]Role, 3)...)
	for _, a := range agents {
		a.onNotify = func(msg string) (*Intent, error) {
			if msg == MsgVoteNow {
				return &Intent{VoteFor: r.Werewolves()[0].Name}, nil
			}
			return &Intent{}, nil
		}
	}
	c, log := newTestCoordinator(r, 6)
	var phases []State
	c.OnPhase = func(s State) { phases = append(phases, s) }

	res, err := c.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "test-game", res.GameID)
	assert.Equal(t, VillagersWin, res.Winner)
	assert.Equal(t, 1, res.Days)
	assert.Equal(t, c.Round(), res.Rounds)
	assert.Equal(t, []State{Setup, Night, Day, Over}, phases)

	over := log.OfType(gamelog.GameOver)
	require.Len(t, over, 1)
	assert.Equal(t, "villagers", over[0].Context["winner"])
	assert.Equal(t, "Game over! The villagers win!", over[0].Content)
	assert.Equal(t, gamelog.GameOver, log.Entries()[log.Len()-1].Type)
}

func TestRunStopsOnCancel(t *testing.T) {
	r, _ := newTable(t, make([]Role, 4)...)
	c, _ := newTestCoordinator(r, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := c.Run(ctx)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunReturnsSetupFailure(t *testing.T) {
	r, agents := newTable(t, make([]Role, 3)...)
	agents[1].nack = true
	c, log := newTestCoordinator(r, 1)

	_, err := c.Run(context.Background())

	assert.ErrorIs(t, err, ErrSetupFailed)
	assert.Empty(t, log.OfType(gamelog.NightStart))
}
