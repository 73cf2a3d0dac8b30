package game

import (
	"fmt"
	"math/rand/v2"

	"github.com/lorenzotomasdiez/werewolf/internal/gamelog"
)

// neverSpoke is the round reported for players who have not spoken yet. It
// sits a few rounds in the past so that silent players get a head start.
const neverSpoke = -4

// Player is a participant and its per-game statistics.
type Player struct {
	Name          string
	Female        bool
	Role          Role
	Alive         bool
	Interruptions int
	SpokeAt       []int
	Agent         Agent
}

// NewPlayer creates a living player with no role yet.
func NewPlayer(name string, female bool, agent Agent) *Player {
	return &Player{Name: name, Female: female, Alive: true, Agent: agent}
}

// LastSpokeAt returns the round of the player's latest speech.
func (p *Player) LastSpokeAt() int {
	if len(p.SpokeAt) == 0 {
		return neverSpoke
	}
	return p.SpokeAt[len(p.SpokeAt)-1]
}

// Roster owns the players of one game. Players are never removed; elimination
// only flips Alive.
type Roster struct {
	players []*Player
	byName  map[string]*Player
}

// NewRoster validates that names are present and unique.
func NewRoster(players []*Player) (*Roster, error) {
	r := &Roster{byName: make(map[string]*Player, len(players))}
	for _, p := range players {
		if p.Name == "" {
			return nil, fmt.Errorf("game: player with empty name")
		}
		if _, dup := r.byName[p.Name]; dup {
			return nil, fmt.Errorf("game: duplicate player name %q", p.Name)
		}
		r.byName[p.Name] = p
		r.players = append(r.players, p)
	}
	return r, nil
}

// Players returns every player, dead or alive, in roster order.
func (r *Roster) Players() []*Player { return r.players }

// Names returns all player names in roster order.
func (r *Roster) Names() []string {
	names := make([]string, len(r.players))
	for i, p := range r.players {
		names[i] = p.Name
	}
	return names
}

// Get looks a player up by name.
func (r *Roster) Get(name string) (*Player, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Active returns living players in roster order, minus exclude.
func (r *Roster) Active(exclude string) []*Player {
	var out []*Player
	for _, p := range r.players {
		if p.Alive && p.Name != exclude {
			out = append(out, p)
		}
	}
	return out
}

// IsActive reports whether name is a living roster member.
func (r *Roster) IsActive(name string) bool {
	p, ok := r.byName[name]
	return ok && p.Alive
}

// RoleCounts returns how many werewolves, whether a seer and how many
// villagers a game of n players has.
func RoleCounts(n int) (werewolves int, seer bool, villagers int) {
	werewolves = max(1, n/3)
	seer = n >= 5
	villagers = n - werewolves
	if seer {
		villagers--
	}
	return werewolves, seer, max(0, villagers)
}

// AssignRoles shuffles the role distribution onto the players and returns the
// werewolf names. Each assignment is logged as a private entry addressed to
// the player concerned.
func (r *Roster) AssignRoles(rng *rand.Rand, log *gamelog.Log) []string {
	wolves, seer, villagers := RoleCounts(len(r.players))
	roles := make([]Role, 0, len(r.players))
	for range wolves {
		roles = append(roles, Werewolf)
	}
	if seer {
		roles = append(roles, Seer)
	}
	for range villagers {
		roles = append(roles, Villager)
	}
	rng.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })

	var names []string
	for i, p := range r.players {
		p.Role = roles[i]
		if p.Role == Werewolf {
			names = append(names, p.Name)
		}
		log.Append(gamelog.Entry{
			Type:    gamelog.RoleAssignment,
			Target:  p.Name,
			Content: fmt.Sprintf("%s has been assigned the role of %s", p.Name, p.Role),
			Context: map[string]any{"role": p.Role.String()},
		})
	}
	return names
}

// Eliminate marks a living player as dead. Eliminating an unknown or already
// dead player is a coordinator bug and panics.
func (r *Roster) Eliminate(name string) *Player {
	p, ok := r.byName[name]
	if !ok {
		panic(fmt.Sprintf("game: eliminate unknown player %q", name))
	}
	if !p.Alive {
		panic(fmt.Sprintf("game: eliminate player %q who is already dead", name))
	}
	p.Alive = false
	return p
}

// Verdict evaluates the win condition. With no werewolves left the villagers
// win, even if nobody else survives either.
func (r *Roster) Verdict() Verdict {
	var wolves, others int
	for _, p := range r.players {
		if !p.Alive {
			continue
		}
		switch p.Role {
		case Werewolf:
			wolves++
		case Villager, Seer, Unassigned:
			others++
		}
	}
	switch {
	case wolves == 0:
		return VillagersWin
	case others == 0:
		return WerewolvesWin
	default:
		return NoDecision
	}
}

// Seer returns the living seer, if any.
func (r *Roster) Seer() *Player {
	for _, p := range r.players {
		if p.Alive && p.Role == Seer {
			return p
		}
	}
	return nil
}

// Werewolves returns the living werewolves.
func (r *Roster) Werewolves() []*Player {
	var out []*Player
	for _, p := range r.players {
		if p.Alive && p.Role == Werewolf {
			out = append(out, p)
		}
	}
	return out
}

// TotalSpeeches counts the speeches given by living players.
func (r *Roster) TotalSpeeches() int {
	n := 0
	for _, p := range r.players {
		if p.Alive {
			n += len(p.SpokeAt)
		}
	}
	return n
}
