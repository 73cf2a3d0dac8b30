package game

import "math/rand/v2"

// ValidateVotes keeps the votes whose target is a living player. Intents that
// name nobody, an unknown player or a dead one are returned as rejected.
func (r *Roster) ValidateVotes(intents []Intent) (valid []Vote, rejected []Intent) {
	for _, in := range intents {
		if r.IsActive(in.VoteFor) {
			valid = append(valid, Vote{Voter: in.Player, Target: in.VoteFor})
			continue
		}
		rejected = append(rejected, in)
	}
	return valid, rejected
}

// Tally counts votes per target and returns the most voted one. Ties are
// broken uniformly at random among the leaders. ok is false when there are no
// votes.
func Tally(votes []Vote, rng *rand.Rand) (target string, ok bool) {
	if len(votes) == 0 {
		return "", false
	}
	counts := make(map[string]int)
	var order []string
	for _, v := range votes {
		if counts[v.Target] == 0 {
			order = append(order, v.Target)
		}
		counts[v.Target]++
	}
	if len(order) == 1 {
		return order[0], true
	}

	best := 0
	var leaders []string
	for _, t := range order {
		switch c := counts[t]; {
		case c > best:
			best = c
			leaders = []string{t}
		case c == best:
			leaders = append(leaders, t)
		}
	}
	if len(leaders) == 1 {
		return leaders[0], true
	}
	return leaders[rng.IntN(len(leaders))], true
}

// Unanimous reports the shared target when every one of want voters cast a
// valid vote for the same player.
func Unanimous(votes []Vote, want int) (string, bool) {
	if want == 0 || len(votes) != want {
		return "", false
	}
	target := votes[0].Target
	for _, v := range votes[1:] {
		if v.Target != target {
			return "", false
		}
	}
	return target, true
}
