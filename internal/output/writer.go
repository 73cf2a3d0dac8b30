package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/lorenzotomasdiez/werewolf/internal/game"
	"github.com/lorenzotomasdiez/werewolf/internal/gamelog"
)

const maxSlugLen = 50

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug turns s into a lowercase, dash-separated directory name.
func GenerateSlug(s string) string {
	slug := strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

// CreateOutputDir creates base/slug-YYYYMMDD-HHMMSS and returns its path.
func CreateOutputDir(base, slug string) (string, error) {
	dir := filepath.Join(base, fmt.Sprintf("%s-%s", slug, time.Now().Format("20060102-150405")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("output: %w", err)
	}
	return dir, nil
}

// PlayerRecord is a player's final state in a transcript.
type PlayerRecord struct {
	Name          string `json:"name"`
	Role          string `json:"role"`
	Alive         bool   `json:"alive"`
	Speeches      int    `json:"speeches"`
	Interruptions int    `json:"interruptions"`
}

// Transcript is the full record of a finished game.
type Transcript struct {
	GameID  string          `json:"game_id"`
	Winner  string          `json:"winner"`
	Days    int             `json:"days"`
	Rounds  int             `json:"rounds"`
	Players []PlayerRecord  `json:"players"`
	Entries []gamelog.Entry `json:"entries"`
}

// NewTranscript assembles a transcript from the game outcome.
func NewTranscript(res *game.Result, players []*game.Player, entries []gamelog.Entry) *Transcript {
	t := &Transcript{
		GameID:  res.GameID,
		Winner:  res.Winner.String(),
		Days:    res.Days,
		Rounds:  res.Rounds,
		Entries: entries,
	}
	for _, p := range players {
		t.Players = append(t.Players, PlayerRecord{
			Name:          p.Name,
			Role:          p.Role.String(),
			Alive:         p.Alive,
			Speeches:      len(p.SpokeAt),
			Interruptions: p.Interruptions,
		})
	}
	return t
}

// Writer stores game records in a directory. As a gamelog.Sink it appends
// every entry to game.log as soon as it is written.
type Writer struct {
	dir string

	mu  sync.Mutex
	err error
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Write appends e to game.log. The first failure is kept and reported by Err.
func (w *Writer) Write(e gamelog.Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(w.dir, "game.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		w.err = fmt.Errorf("output: opening game.log: %w", err)
		return
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%s %s\n\n", e.Timestamp.Format(time.RFC3339), e.String()); err != nil {
		w.err = fmt.Errorf("output: writing game.log: %w", err)
	}
}

// Err returns the first error met while appending to game.log.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// WriteJSON writes transcript.json.
func (w *Writer) WriteJSON(t *Transcript) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.dir, "transcript.json"), data, 0o644); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}

// WriteMarkdown writes report.md: the cast, the eliminations and the public
// narration of the game.
func (w *Writer) WriteMarkdown(t *Transcript) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Werewolf game %s\n\n", t.GameID)
	fmt.Fprintf(&b, "**Winner:** %s | **Days:** %d | **Speeches:** %d\n\n", t.Winner, t.Days, t.Rounds)

	b.WriteString("## Players\n\n| Player | Role | Status | Speeches | Interruptions |\n|---|---|---|---|---|\n")
	for _, p := range t.Players {
		status := "alive"
		if !p.Alive {
			status = "dead"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %d |\n", p.Name, p.Role, status, p.Speeches, p.Interruptions)
	}

	b.WriteString("\n## Eliminations\n\n")
	n := 0
	for _, e := range t.Entries {
		if name, role, ok := elimination(e); ok {
			n++
			fmt.Fprintf(&b, "%d. %s (%s), %s\n", n, name, role, eliminationCause(e.Type))
		}
	}
	if n == 0 {
		b.WriteString("Nobody was eliminated.\n")
	}

	b.WriteString("\n## Narration\n\n")
	for _, e := range t.Entries {
		if !e.Public {
			continue
		}
		switch e.Type {
		case gamelog.Speech:
			fmt.Fprintf(&b, "- **Round %v, %s:** %s\n", e.Context["round"], e.Actor, e.Content)
		case gamelog.NightStart:
			fmt.Fprintf(&b, "\n### Night\n\n- %s\n", e.Content)
		case gamelog.MorningVictim:
			fmt.Fprintf(&b, "\n### Day\n\n- %s\n", e.Content)
		default:
			fmt.Fprintf(&b, "- %s\n", e.Content)
		}
	}

	if err := os.WriteFile(filepath.Join(w.dir, "report.md"), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}

func elimination(e gamelog.Entry) (name, role string, ok bool) {
	switch e.Type {
	case gamelog.MorningVictim, gamelog.VoteResult:
		name, ok = e.Context["victim"].(string)
		role, _ = e.Context["victim_role"].(string)
		return name, role, ok && name != ""
	case gamelog.Eliminate:
		return e.Actor, "unknown role", true
	}
	return "", "", false
}

func eliminationCause(t gamelog.EventType) string {
	switch t {
	case gamelog.MorningVictim:
		return "devoured at night"
	case gamelog.VoteResult:
		return "voted out by the village"
	default:
		return "did not answer in time"
	}
}
