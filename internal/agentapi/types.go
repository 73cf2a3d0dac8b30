package agentapi

// NewGameRequest is the body of POST /new_game.
type NewGameRequest struct {
	Role         string   `json:"role"`
	PlayerName   string   `json:"player_name"`
	PlayersNames []string `json:"players_names"`
	Werewolves   []string `json:"werewolves"`
}

// NewGameResponse acknowledges a new game.
type NewGameResponse struct {
	Ack bool `json:"ack"`
}

// SpeakResponse carries what the player says. An empty speech is a pass.
type SpeakResponse struct {
	Speech string `json:"speech"`
}

// NotifyRequest is the body of POST /notify.
type NotifyRequest struct {
	Message string `json:"message"`
}

// NotifyResponse is the player's intent after a notification. A null
// vote_for means no vote.
type NotifyResponse struct {
	WantToSpeak     bool    `json:"want_to_speak"`
	WantToInterrupt bool    `json:"want_to_interrupt"`
	VoteFor         *string `json:"vote_for"`
}

var (
	newGameKeys = []string{"ack"}
	speakKeys   = []string{"speech"}
	notifyKeys  = []string{"want_to_speak", "want_to_interrupt", "vote_for"}
)
