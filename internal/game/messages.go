package game

import (
	"fmt"
	"strings"
)

// Narration shared with every player. Agents may match on these texts.
const (
	MsgNightFalls = "Night falls. The whole village goes to sleep and everyone closes their eyes."
	MsgSeerWakes  = "The Seer wakes up and points at a player whose true nature she wants to probe."
	MsgWolvesWake = "The Werewolves wake up, recognise each other and choose a new victim."
	MsgVoteSoon   = "The vote will start soon. Anyone who still wants to speak may do so now."
	MsgVoteNow    = "It is time to vote. Give your vote intention now."
)

func msgSeerReveal(name string, role Role) string {
	return fmt.Sprintf("The role of %s is %s.", name, role)
}

func msgMorning(victim *Player) string {
	if victim == nil {
		return "Morning comes and the village wakes up. Nobody was devoured by the werewolves tonight."
	}
	return fmt.Sprintf("Morning comes and the village wakes up. Tonight %s was devoured by the werewolves. Their role was %s.", victim.Name, victim.Role)
}

func msgSpoke(name, speech string) string {
	return fmt.Sprintf("%s said: %s", name, speech)
}

func msgNoResponse(name string) string {
	return fmt.Sprintf("%s did not answer in time and has been eliminated from the game.", name)
}

func msgVoteResult(votes []Vote, victim *Player) string {
	parts := make([]string, len(votes))
	for i, v := range votes {
		parts[i] = fmt.Sprintf("%s voted for %s", v.Voter, v.Target)
	}
	prefix := strings.Join(parts, ", ")
	if prefix == "" {
		prefix = "Nobody cast a valid vote"
	}
	if victim == nil {
		return prefix + ". There is no victim."
	}
	return fmt.Sprintf("%s. So %s is dead and their role was %s.", prefix, victim.Name, victim.Role)
}

func msgGameOver(v Verdict) string {
	return fmt.Sprintf("Game over! The %s win!", v)
}
