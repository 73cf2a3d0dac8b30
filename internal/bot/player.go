// Package bot provides a scripted player that follows the narration and acts
// at random within the rules. It stands in for a real agent in local games
// and tests.
package bot

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"

	"github.com/lorenzotomasdiez/werewolf/internal/game"
)

const (
	// DefaultSpeakChance is how often a bot asks for the floor.
	DefaultSpeakChance = 0.3
	// DefaultInterruptChance is how often a bot tries to cut in.
	DefaultInterruptChance = 0.05

	interruptBudget = game.MaxInterruptions
)

// Player is a random-strategy werewolf player. It is not safe for concurrent
// use.
type Player struct {
	SpeakChance     float64
	InterruptChance float64

	info       game.SetupInfo
	rng        *rand.Rand
	alive      map[string]bool
	known      map[string]game.Role
	interrupts int
	parser     *parser
}

// New creates a bot for the game described by info.
func New(info game.SetupInfo, rng *rand.Rand) *Player {
	p := &Player{
		SpeakChance:     DefaultSpeakChance,
		InterruptChance: DefaultInterruptChance,
		info:            info,
		rng:             rng,
		alive:           make(map[string]bool, len(info.PlayerNames)),
		known:           make(map[string]game.Role),
		interrupts:      interruptBudget,
		parser:          newParser(info.PlayerNames),
	}
	for _, name := range info.PlayerNames {
		p.alive[name] = true
	}
	for _, name := range info.Werewolves {
		p.known[name] = game.Werewolf
	}
	p.known[info.PlayerName] = info.Role
	return p
}

// Name returns the bot's player name.
func (p *Player) Name() string { return p.info.PlayerName }

// Alive returns the players the bot believes are still in the game, in
// roster order.
func (p *Player) Alive() []string {
	var out []string
	for _, name := range p.info.PlayerNames {
		if p.alive[name] {
			out = append(out, name)
		}
	}
	return out
}

// Known returns the role the bot has learned for name.
func (p *Player) Known(name string) (game.Role, bool) {
	r, ok := p.known[name]
	return r, ok
}

// Speak returns a short line, accusing someone when the bot has a suspect.
func (p *Player) Speak() string {
	if p.info.Role == game.Seer {
		if wolf := p.knownWerewolf(); wolf != "" {
			return fmt.Sprintf("I am the seer and %s is a werewolf!", wolf)
		}
	}
	suspects := p.suspects()
	if len(suspects) == 0 || p.rng.IntN(3) == 0 {
		return "I have nothing to add for now."
	}
	return fmt.Sprintf("I find %s very suspicious.", suspects[p.rng.IntN(len(suspects))])
}

// Notify updates what the bot knows from message and returns its intent.
func (p *Player) Notify(message string) game.Intent {
	ev := p.parser.parse(message)
	switch ev.kind {
	case eventDeath:
		p.alive[ev.player] = false
		p.known[ev.player] = ev.role
	case eventReveal:
		p.known[ev.player] = ev.role
	case eventSeerWakes:
		if p.info.Role == game.Seer {
			return game.Intent{VoteFor: p.probeTarget()}
		}
	case eventWolvesWake:
		if p.info.Role == game.Werewolf {
			return game.Intent{VoteFor: p.prey()}
		}
	case eventVoteNow:
		return game.Intent{VoteFor: p.voteTarget()}
	case eventNightFalls:
		return game.Intent{}
	}
	if !p.alive[p.info.PlayerName] {
		return game.Intent{}
	}

	in := game.Intent{WantToSpeak: p.rng.Float64() < p.SpeakChance}
	if p.interrupts > 0 && p.rng.Float64() < p.InterruptChance {
		p.interrupts--
		in.WantToInterrupt = true
	}
	return in
}

// suspects are the living players the bot does not know to be on its side.
func (p *Player) suspects() []string {
	var out []string
	for _, name := range p.Alive() {
		if name == p.info.PlayerName {
			continue
		}
		if p.info.Role == game.Werewolf && p.known[name] == game.Werewolf {
			continue
		}
		if p.info.Role != game.Werewolf {
			if r, ok := p.known[name]; ok && r != game.Werewolf {
				continue
			}
		}
		out = append(out, name)
	}
	return out
}

func (p *Player) knownWerewolf() string {
	for _, name := range p.Alive() {
		if name != p.info.PlayerName && p.known[name] == game.Werewolf {
			return name
		}
	}
	return ""
}

func (p *Player) probeTarget() string {
	var unknown []string
	for _, name := range p.Alive() {
		if _, ok := p.known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return ""
	}
	return unknown[p.rng.IntN(len(unknown))]
}

// prey is the first living non-werewolf in roster order, so that every
// werewolf bot picks the same victim.
func (p *Player) prey() string {
	for _, name := range p.Alive() {
		if !slices.Contains(p.info.Werewolves, name) {
			return name
		}
	}
	return ""
}

func (p *Player) voteTarget() string {
	if p.info.Role != game.Werewolf {
		if wolf := p.knownWerewolf(); wolf != "" {
			return wolf
		}
	}
	suspects := p.suspects()
	if len(suspects) == 0 {
		return ""
	}
	return suspects[p.rng.IntN(len(suspects))]
}

type eventKind int

const (
	eventOther eventKind = iota
	eventNightFalls
	eventSeerWakes
	eventWolvesWake
	eventVoteNow
	eventReveal
	eventDeath
)

type event struct {
	kind   eventKind
	player string
	role   game.Role
}

// parser recognizes the narration relevant to a bot.
type parser struct {
	spoke     *regexp.Regexp
	reveal    *regexp.Regexp
	devoured  *regexp.Regexp
	condemned *regexp.Regexp
	silent    *regexp.Regexp
}

func newParser(names []string) *parser {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	name := "(" + strings.Join(quoted, "|") + ")"
	role := "(villager|seer|werewolf)"
	return &parser{
		spoke:     regexp.MustCompile(`^` + name + ` said: `),
		reveal:    regexp.MustCompile(`^The role of ` + name + ` is ` + role + `\.`),
		devoured:  regexp.MustCompile(`Tonight ` + name + ` was devoured by the werewolves\. Their role was ` + role + `\.`),
		condemned: regexp.MustCompile(`So ` + name + ` is dead and their role was ` + role + `\.`),
		silent:    regexp.MustCompile(`^` + name + ` did not answer in time and has been eliminated`),
	}
}

func (ps *parser) parse(msg string) event {
	switch msg {
	case game.MsgNightFalls:
		return event{kind: eventNightFalls}
	case game.MsgSeerWakes:
		return event{kind: eventSeerWakes}
	case game.MsgWolvesWake:
		return event{kind: eventWolvesWake}
	case game.MsgVoteNow:
		return event{kind: eventVoteNow}
	}
	// Speeches are free text and must not be mistaken for narration.
	if ps.spoke.MatchString(msg) {
		return event{kind: eventOther}
	}
	if m := ps.reveal.FindStringSubmatch(msg); m != nil {
		return event{kind: eventReveal, player: m[1], role: mustRole(m[2])}
	}
	for _, re := range []*regexp.Regexp{ps.devoured, ps.condemned} {
		if m := re.FindStringSubmatch(msg); m != nil {
			return event{kind: eventDeath, player: m[1], role: mustRole(m[2])}
		}
	}
	if m := ps.silent.FindStringSubmatch(msg); m != nil {
		return event{kind: eventDeath, player: m[1], role: game.Unassigned}
	}
	return event{kind: eventOther}
}

func mustRole(s string) game.Role {
	r, _ := game.ParseRole(s)
	return r
}
