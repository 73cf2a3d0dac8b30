package gamelog

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// EventType identifies the kind of a log entry.
type EventType string

const (
	RoleAssignment EventType = "ROLE_ASSIGNMENT"
	SetupError     EventType = "ERROR"
	NightStart     EventType = "NIGHT_START"
	SeerWakeup     EventType = "SEER_WAKEUP"
	SeerReveal     EventType = "SEER_REVEAL"
	WerewolfVote   EventType = "WEREWOLF_VOTE"
	MorningVictim  EventType = "MORNING_VICTIM"
	Speech         EventType = "SPEECH"
	Eliminate      EventType = "ELIMINATE_PLAYER"
	VoteSoon       EventType = "VOTE_SOON"
	VoteNow        EventType = "VOTE_NOW"
	VoteResult     EventType = "VOTE_RESULT"
	GameOver       EventType = "GAME_OVER"
)

// Entry is a single narrated game event.
//
// Entries with Public set to false are addressed to Target only and must never
// be broadcast to players or spectators.
type Entry struct {
	Seq       int            `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Actor     string         `json:"actor_name,omitempty"`
	Target    string         `json:"target_name,omitempty"`
	Content   string         `json:"content"`
	Public    bool           `json:"public"`
	Context   map[string]any `json:"context_data,omitempty"`
}

// String renders the entry on several lines, prefixed with its sequence number.
func (e Entry) String() string {
	parts := []string{fmt.Sprintf("[%d] Event: %s", e.Seq, e.Type)}
	if e.Actor != "" {
		parts = append(parts, "Actor: "+e.Actor)
	}
	if e.Target != "" {
		parts = append(parts, "Target: "+e.Target)
	}
	parts = append(parts, "Content: "+e.Content)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		kv := make([]string, len(keys))
		for i, k := range keys {
			kv[i] = fmt.Sprintf("%s: %v", k, e.Context[k])
		}
		parts = append(parts, "Context: ("+strings.Join(kv, ", ")+")")
	}
	return strings.Join(parts, "\n")
}
