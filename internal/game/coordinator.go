package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lorenzotomasdiez/werewolf/internal/gamelog"
)

const (
	// MinPlayers is the smallest roster a game can start with.
	MinPlayers = 3
	// DefaultCallTimeout bounds every outbound agent call.
	DefaultCallTimeout = 10 * time.Second

	maxNightRounds = 4
)

// ErrSetupFailed is returned when an agent refuses or misses the new game call.
var ErrSetupFailed = errors.New("game: setup failed")

// Coordinator drives a game through alternating nights and days until one
// side wins. All roster and log mutations happen on the goroutine calling its
// methods; only broadcasts fan out.
type Coordinator struct {
	id          string
	roster      *Roster
	log         *gamelog.Log
	scheduler   *Scheduler
	rng         *rand.Rand
	logger      *zap.Logger
	callTimeout time.Duration
	round       int
	days        int
	state       State
	verdict     Verdict
	OnPhase     func(State)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRand sets the random source used for roles, speakers and tie-breaks.
func WithRand(rng *rand.Rand) Option { return func(c *Coordinator) { c.rng = rng } }

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option { return func(c *Coordinator) { c.logger = l } }

// WithCallTimeout sets the per-call agent timeout.
func WithCallTimeout(d time.Duration) Option { return func(c *Coordinator) { c.callTimeout = d } }

// WithGameID overrides the generated game identifier.
func WithGameID(id string) Option { return func(c *Coordinator) { c.id = id } }

// NewCoordinator creates a coordinator for the given players and log.
func NewCoordinator(roster *Roster, log *gamelog.Log, opts ...Option) *Coordinator {
	c := &Coordinator{
		id:          uuid.NewString(),
		roster:      roster,
		log:         log,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:      zap.NewNop(),
		callTimeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("game", c.id))
	c.scheduler = NewScheduler(roster, c.rng, c.logger.Named("scheduler"))
	return c
}

// ID returns the game identifier.
func (c *Coordinator) ID() string { return c.id }

// Round returns the number of successful speaking turns so far.
func (c *Coordinator) Round() int { return c.round }

// State returns the current state machine step.
func (c *Coordinator) State() State { return c.state }

// Verdict returns the winner, or NoDecision while the game is running.
func (c *Coordinator) Verdict() Verdict { return c.verdict }

// Over reports whether a side has won.
func (c *Coordinator) Over() bool { return c.verdict != NoDecision }

// Run plays a whole game: setup, then nights and days until a verdict.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	for !c.Over() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("game: %w", err)
		}
		victim := c.Night(ctx)
		if c.Over() {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("game: %w", err)
		}
		c.Day(ctx, victim)
	}
	c.finish()
	return &Result{GameID: c.id, Winner: c.verdict, Days: c.days, Rounds: c.round}, nil
}

// Start assigns roles and sends every agent its new game. Any refusal aborts
// the game with ErrSetupFailed.
func (c *Coordinator) Start(ctx context.Context) error {
	c.setState(Setup)
	players := c.roster.Players()
	if len(players) < MinPlayers {
		return fmt.Errorf("%w: need at least %d players, got %d", ErrSetupFailed, MinPlayers, len(players))
	}

	werewolves := c.roster.AssignRoles(c.rng, c.log)
	names := c.roster.Names()
	for _, p := range players {
		info := SetupInfo{Role: p.Role, PlayerName: p.Name, PlayerNames: names}
		if p.Role == Werewolf {
			info.Werewolves = werewolves
		}
		ack, err := c.newGame(ctx, p, info)
		if err == nil && ack {
			continue
		}
		reason := "not acknowledged"
		if err != nil {
			reason = err.Error()
		}
		c.log.Append(gamelog.Entry{
			Type:    gamelog.SetupError,
			Target:  p.Name,
			Content: fmt.Sprintf("Failed to start game for player %s", p.Name),
			Public:  true,
			Context: map[string]any{"players_names": names, "reason": reason},
		})
		return fmt.Errorf("%w: player %s: %s", ErrSetupFailed, p.Name, reason)
	}
	c.Summary()
	return nil
}

func (c *Coordinator) newGame(ctx context.Context, p *Player, info SetupInfo) (bool, error) {
	return withDeadline(ctx, c.callTimeout, func(cctx context.Context) (bool, error) {
		return p.Agent.NewGame(cctx, info)
	})
}

// Night runs the seer probe and the werewolf vote. It returns the victim, or
// nil when the werewolves did not agree.
func (c *Coordinator) Night(ctx context.Context) *Player {
	c.setState(Night)
	c.narrate(gamelog.NightStart, MsgNightFalls, nil)
	c.announceToAll(ctx, MsgNightFalls)

	if seer := c.roster.Seer(); seer != nil {
		c.narrate(gamelog.SeerWakeup, MsgSeerWakes, nil)
		c.probe(ctx, seer)
	}

	wolves := c.roster.Werewolves()
	for round := 1; round <= maxNightRounds; round++ {
		c.log.Append(gamelog.Entry{
			Type:    gamelog.WerewolfVote,
			Content: MsgWolvesWake,
			Context: map[string]any{"werewolves": names(wolves), "round": round},
		})
		var intents []Intent
		for _, w := range wolves {
			if in := c.notify(ctx, w, MsgWolvesWake); in != nil {
				intents = append(intents, *in)
			}
		}
		valid, rejected := c.roster.ValidateVotes(intents)
		c.logRejected(rejected)
		if target, ok := Unanimous(valid, len(wolves)); ok {
			c.logger.Debug("werewolves agreed", zap.String("victim", target), zap.Int("round", round))
			return c.eliminate(target)
		}
		c.logger.Debug("no werewolf consensus", zap.Int("round", round), zap.Int("valid_votes", len(valid)))
	}
	return nil
}

func (c *Coordinator) probe(ctx context.Context, seer *Player) {
	in := c.notify(ctx, seer, MsgSeerWakes)
	if in == nil {
		return
	}
	target, ok := c.roster.Get(in.VoteFor)
	if !ok || !target.Alive {
		c.logger.Info("seer probe target is not in the game", zap.String("seer", seer.Name), zap.String("target", in.VoteFor))
		return
	}
	msg := msgSeerReveal(target.Name, target.Role)
	c.notify(ctx, seer, msg)
	c.log.Append(gamelog.Entry{
		Type:    gamelog.SeerReveal,
		Target:  seer.Name,
		Content: msg,
		Public:  false,
		Context: map[string]any{"player_to_check": target.Name, "player_to_check_role": target.Role.String()},
	})
}

// Day announces the night's outcome, runs the debate, the last call for
// speeches and the village vote.
func (c *Coordinator) Day(ctx context.Context, victim *Player) {
	c.setState(Day)
	c.days++

	morning := msgMorning(victim)
	c.narrate(gamelog.MorningVictim, morning, victimContext(victim))
	intents := c.announceToAll(ctx, morning)

	discussion := 0
	for {
		if ctx.Err() != nil {
			return
		}
		speaker := c.scheduler.Next(intents, discussion, c.round, c.log.LastActor())
		if speaker == nil {
			break
		}
		var spoke bool
		intents, spoke = c.segment(ctx, speaker)
		if c.Over() {
			return
		}
		if spoke {
			discussion++
		}
	}

	c.narrate(gamelog.VoteSoon, MsgVoteSoon, nil)
	intents = c.announceToAll(ctx, MsgVoteSoon)
	var queue []*Player
	for _, in := range intents {
		if !in.WantToSpeak || !c.roster.IsActive(in.Player) {
			continue
		}
		if p, _ := c.roster.Get(in.Player); !slices.Contains(queue, p) {
			queue = append(queue, p)
		}
	}
	for len(queue) > 0 {
		if ctx.Err() != nil {
			return
		}
		i := c.rng.IntN(len(queue))
		p := queue[i]
		queue = slices.Delete(queue, i, i+1)
		if !p.Alive {
			continue
		}
		c.segment(ctx, p)
		if c.Over() {
			return
		}
	}

	c.narrate(gamelog.VoteNow, MsgVoteNow, nil)
	intents = c.announceToAll(ctx, MsgVoteNow)
	valid, rejected := c.roster.ValidateVotes(intents)
	c.logRejected(rejected)

	var condemned *Player
	if target, ok := Tally(valid, c.rng); ok {
		condemned, _ = c.roster.Get(target)
	}
	result := msgVoteResult(valid, condemned)
	voteCtx := victimContext(condemned)
	voteCtx["votes"] = votePairs(valid)
	c.narrate(gamelog.VoteResult, result, voteCtx)
	if condemned != nil {
		c.eliminate(condemned.Name)
	}
	c.announceToAll(ctx, result)
	c.Summary()
}

// segment gives speaker the floor and broadcasts what they said. A speaker
// who does not answer is eliminated. It reports whether a speech happened.
func (c *Coordinator) segment(ctx context.Context, speaker *Player) ([]Intent, bool) {
	speech, err := c.speak(ctx, speaker)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false
		}
		c.logger.Warn("speaker did not respond", zap.String("player", speaker.Name), zap.Error(err))
		msg := msgNoResponse(speaker.Name)
		c.log.Append(gamelog.Entry{
			Type:    gamelog.Eliminate,
			Actor:   speaker.Name,
			Content: msg,
			Public:  true,
			Context: map[string]any{"reason": "no_speech_response"},
		})
		c.eliminate(speaker.Name)
		return c.announceToAll(ctx, msg), false
	}
	if speech == "" {
		c.logger.Warn("empty speech", zap.String("player", speaker.Name))
	}

	c.round++
	speaker.SpokeAt = append(speaker.SpokeAt, c.round)
	c.log.Append(gamelog.Entry{
		Type:    gamelog.Speech,
		Actor:   speaker.Name,
		Content: speech,
		Public:  true,
		Context: map[string]any{"round": c.round},
	})
	return c.announceToAll(ctx, msgSpoke(speaker.Name, speech)), true
}

func (c *Coordinator) speak(ctx context.Context, p *Player) (string, error) {
	return withDeadline(ctx, c.callTimeout, p.Agent.Speak)
}

func (c *Coordinator) eliminate(name string) *Player {
	p := c.roster.Eliminate(name)
	c.logger.Info("player eliminated", zap.String("player", p.Name), zap.Stringer("role", p.Role))
	if v := c.roster.Verdict(); v != NoDecision {
		c.verdict = v
	}
	return p
}

func (c *Coordinator) finish() {
	c.setState(Over)
	c.narrate(gamelog.GameOver, msgGameOver(c.verdict), map[string]any{"winner": c.verdict.String()})
	c.Summary()
}

func (c *Coordinator) setState(s State) {
	c.state = s
	if c.OnPhase != nil {
		c.OnPhase(s)
	}
}

func (c *Coordinator) narrate(t gamelog.EventType, content string, data map[string]any) {
	c.log.Append(gamelog.Entry{Type: t, Content: content, Public: true, Context: data})
}

func (c *Coordinator) logRejected(rejected []Intent) {
	for _, in := range rejected {
		c.logger.Info("vote ignored, target is not in the game",
			zap.String("voter", in.Player), zap.String("target", in.VoteFor))
	}
}

// Summary logs the state of the game so far.
func (c *Coordinator) Summary() {
	var wolves, alive []string
	seer := ""
	for _, p := range c.roster.Players() {
		switch p.Role {
		case Werewolf:
			wolves = append(wolves, p.Name)
		case Seer:
			seer = p.Name
		}
		if p.Alive {
			alive = append(alive, p.Name)
		}
	}
	var eliminated []string
	for _, e := range c.log.Entries() {
		switch e.Type {
		case gamelog.MorningVictim, gamelog.VoteResult:
			if v, ok := e.Context["victim"].(string); ok && v != "" {
				eliminated = append(eliminated, v)
			}
		case gamelog.Eliminate:
			eliminated = append(eliminated, e.Actor)
		}
	}
	c.logger.Info("game summary",
		zap.Stringer("state", c.state),
		zap.Strings("werewolves", wolves),
		zap.String("seer", seer),
		zap.Strings("eliminated", eliminated),
		zap.Strings("active", alive),
		zap.Int("round", c.round))
}

func victimContext(p *Player) map[string]any {
	if p == nil {
		return map[string]any{"victim": nil, "victim_role": nil}
	}
	return map[string]any{"victim": p.Name, "victim_role": p.Role.String()}
}

func votePairs(votes []Vote) [][2]string {
	out := make([][2]string, len(votes))
	for i, v := range votes {
		out[i] = [2]string{v.Voter, v.Target}
	}
	return out
}
