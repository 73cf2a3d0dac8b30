package agentapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/lorenzotomasdiez/werewolf/internal/game"
)

// Player is the decision logic behind an agent server.
type Player interface {
	Speak() string
	Notify(message string) game.Intent
}

// Factory builds a fresh Player for every new game.
type Factory func(info game.SetupInfo) Player

// Server exposes a Player over the agent HTTP contract. Requests are
// serialized so the Player needs no locking of its own.
type Server struct {
	mu      sync.Mutex
	factory Factory
	player  Player
	logger  *zap.Logger
	mux     *http.ServeMux
}

// NewServer creates a server that builds players with factory.
func NewServer(factory Factory, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{factory: factory, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /new_game", s.handleNewGame)
	s.mux.HandleFunc("POST /speak", s.handleSpeak)
	s.mux.HandleFunc("POST /notify", s.handleNotify)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req NewGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	role, err := game.ParseRole(req.Role)
	if err != nil || role == game.Unassigned {
		http.Error(w, "invalid role", http.StatusBadRequest)
		return
	}
	if req.PlayerName == "" {
		http.Error(w, "missing player_name", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.player = s.factory(game.SetupInfo{
		Role:        role,
		PlayerName:  req.PlayerName,
		PlayerNames: req.PlayersNames,
		Werewolves:  req.Werewolves,
	})
	s.mu.Unlock()

	s.logger.Info("new game", zap.String("player", req.PlayerName), zap.String("role", req.Role))
	writeJSON(w, NewGameResponse{Ack: true})
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		http.Error(w, "no game in progress", http.StatusConflict)
		return
	}
	writeJSON(w, SpeakResponse{Speech: s.player.Speak()})
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		http.Error(w, "no game in progress", http.StatusConflict)
		return
	}
	in := s.player.Notify(req.Message)
	resp := NotifyResponse{WantToSpeak: in.WantToSpeak, WantToInterrupt: in.WantToInterrupt}
	if in.VoteFor != "" {
		resp.VoteFor = &in.VoteFor
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
