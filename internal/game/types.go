package game

import (
	"context"
	"fmt"
)

// Role is a player's secret identity.
type Role int

const (
	Unassigned Role = iota
	Villager
	Seer
	Werewolf
)

// String returns the wire name of the role.
func (r Role) String() string {
	switch r {
	case Villager:
		return "villager"
	case Seer:
		return "seer"
	case Werewolf:
		return "werewolf"
	default:
		return "unassigned"
	}
}

// ParseRole converts a wire name back into a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "villager":
		return Villager, nil
	case "seer":
		return Seer, nil
	case "werewolf":
		return Werewolf, nil
	case "unassigned":
		return Unassigned, nil
	}
	return Unassigned, fmt.Errorf("game: unknown role %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Verdict is the outcome of a win check.
type Verdict int

const (
	NoDecision Verdict = iota
	VillagersWin
	WerewolvesWin
)

func (v Verdict) String() string {
	switch v {
	case VillagersWin:
		return "villagers"
	case WerewolvesWin:
		return "werewolves"
	default:
		return "none"
	}
}

// State is a step of the game state machine.
type State int

const (
	Setup State = iota
	Night
	Day
	Over
)

func (s State) String() string {
	switch s {
	case Night:
		return "night"
	case Day:
		return "day"
	case Over:
		return "game over"
	default:
		return "setup"
	}
}

// Intent is what a player asks for after a notification. An empty VoteFor
// means no vote.
type Intent struct {
	Player          string `json:"player_name"`
	WantToSpeak     bool   `json:"want_to_speak"`
	WantToInterrupt bool   `json:"want_to_interrupt"`
	VoteFor         string `json:"vote_for,omitempty"`
}

// SetupInfo is sent to each agent when a game starts. Werewolves is only
// populated for werewolf recipients.
type SetupInfo struct {
	Role        Role
	PlayerName  string
	PlayerNames []string
	Werewolves  []string
}

// Agent is the capability every player exposes to the coordinator.
type Agent interface {
	NewGame(ctx context.Context, info SetupInfo) (bool, error)
	Speak(ctx context.Context) (string, error)
	Notify(ctx context.Context, message string) (*Intent, error)
}

// Vote is a validated (voter, target) pair.
type Vote struct {
	Voter  string
	Target string
}

// Result summarizes a finished game.
type Result struct {
	GameID string
	Winner Verdict
	Days   int
	Rounds int
}
