package game

import (
	"math"
	"math/rand/v2"

	"go.uber.org/zap"
)

const (
	// MaxInterruptions is how many times a player may cut in during a game.
	MaxInterruptions = 2
	// MaxDiscussionRounds caps the open debate of a single day.
	MaxDiscussionRounds = 20

	wantToSpeakWeight = 4
	silenceGrowth     = 0.06
	talkPenalty       = 4
)

// Scheduler decides who holds the floor next during the day debate.
type Scheduler struct {
	roster *Roster
	rng    *rand.Rand
	logger *zap.Logger
}

// NewScheduler creates a scheduler over roster.
func NewScheduler(roster *Roster, rng *rand.Rand, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{roster: roster, rng: rng, logger: logger}
}

// Next picks the next speaker from the latest intents, or returns nil to end
// the debate. discussionRound counts the turns already taken today; round is
// the game-wide speech counter; lastSpeaker may never be picked.
func (s *Scheduler) Next(intents []Intent, discussionRound, round int, lastSpeaker string) *Player {
	var interrupters, speakers []*Player
	wantsInterrupt := make(map[string]bool)
	for _, in := range intents {
		if in.Player == lastSpeaker || !s.roster.IsActive(in.Player) {
			continue
		}
		p, _ := s.roster.Get(in.Player)
		if in.WantToInterrupt {
			wantsInterrupt[p.Name] = true
			if p.Interruptions < MaxInterruptions {
				interrupters = append(interrupters, p)
			}
		}
		if in.WantToSpeak {
			speakers = append(speakers, p)
		}
	}
	s.logger.Debug("floor requests",
		zap.Strings("interrupters", names(interrupters)),
		zap.Strings("speakers", names(speakers)),
		zap.Int("discussion_round", discussionRound))

	if len(interrupters) > 0 {
		p := interrupters[s.rng.IntN(len(interrupters))]
		p.Interruptions++
		s.logger.Debug("interruption granted", zap.String("player", p.Name), zap.Int("used", p.Interruptions))
		return p
	}

	if discussionRound > MaxDiscussionRounds {
		s.logger.Debug("discussion round limit reached", zap.Int("discussion_round", discussionRound))
		return nil
	}

	pool := s.pool(speakers, round, lastSpeaker)
	size := 0
	for _, w := range pool {
		size += w.weight
	}
	stop := size * discussionRound / 2

	p, ok := drawWeighted(s.rng, pool, stop)
	if !ok {
		s.logger.Debug("debate stopped", zap.Int("pool", size), zap.Int("stop_tickets", stop))
		return nil
	}
	if wantsInterrupt[p.Name] {
		p.Interruptions++
	}
	s.logger.Debug("speaker drawn", zap.String("player", p.Name), zap.Int("pool", size), zap.Int("stop_tickets", stop))
	return p
}

// pool builds the weighted candidates: volunteers get a fixed bonus, everyone
// but the last speaker gets a weight growing with their silence, and frequent
// speakers lose tickets in proportion to their share of all speeches.
func (s *Scheduler) pool(speakers []*Player, round int, lastSpeaker string) []weighted[*Player] {
	weights := make(map[*Player]int)
	var order []*Player
	add := func(p *Player, w int) {
		if _, seen := weights[p]; !seen {
			order = append(order, p)
		}
		weights[p] += w
	}
	for _, p := range speakers {
		add(p, wantToSpeakWeight)
	}
	for _, p := range s.roster.Active(lastSpeaker) {
		silent := round - p.LastSpokeAt()
		add(p, int(math.Round(math.Exp(silenceGrowth*float64(silent)))))
	}

	total := float64(s.roster.TotalSpeeches() + 1)
	pool := make([]weighted[*Player], 0, len(order))
	for _, p := range order {
		share := float64(len(p.SpokeAt)) / total
		w := max(0, weights[p]-int(math.Floor(talkPenalty*share)))
		pool = append(pool, weighted[*Player]{item: p, weight: w})
	}
	return pool
}

func names(players []*Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.Name
	}
	return out
}
