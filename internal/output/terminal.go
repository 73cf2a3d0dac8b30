package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/lorenzotomasdiez/werewolf/internal/game"
	"github.com/lorenzotomasdiez/werewolf/internal/gamelog"
)

var (
	bold    = color.New(color.Bold).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
	red     = color.New(color.FgRed, color.Bold).SprintFunc()
	green   = color.New(color.FgGreen, color.Bold).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	cyan    = color.New(color.FgCyan).SprintFunc()
	blue    = color.New(color.FgBlue, color.Bold).SprintFunc()
	magenta = color.New(color.FgMagenta).SprintFunc()
)

// Console prints game entries as colored narration. It implements
// gamelog.Sink.
type Console struct {
	mu          sync.Mutex
	w           io.Writer
	showPrivate bool
}

// NewConsole creates a console printing to w. Private entries are only shown
// when showPrivate is set.
func NewConsole(w io.Writer, showPrivate bool) *Console {
	return &Console{w: w, showPrivate: showPrivate}
}

// Write prints a single entry, preceded by a banner when it opens a phase.
func (c *Console) Write(e gamelog.Entry) {
	if !e.Public && !c.showPrivate {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Type {
	case gamelog.NightStart:
		c.banner(game.Night)
	case gamelog.MorningVictim:
		c.banner(game.Day)
	case gamelog.GameOver:
		c.banner(game.Over)
	}
	fmt.Fprintln(c.w, formatEntry(e))
}

func formatEntry(e gamelog.Entry) string {
	switch e.Type {
	case gamelog.Speech:
		return fmt.Sprintf("%s %s: %s", yellow(fmt.Sprintf("[Round %v]", e.Context["round"])), bold(e.Actor), e.Content)
	case gamelog.Eliminate, gamelog.SetupError:
		return red(e.Content)
	case gamelog.MorningVictim, gamelog.VoteResult:
		if v, ok := e.Context["victim"].(string); ok && v != "" {
			return red(e.Content)
		}
		return cyan(e.Content)
	case gamelog.GameOver:
		return green(e.Content)
	case gamelog.RoleAssignment, gamelog.SeerReveal, gamelog.WerewolfVote:
		return dim(fmt.Sprintf("(private to %s) %s", privateAudience(e), e.Content))
	default:
		return magenta(e.Content)
	}
}

func privateAudience(e gamelog.Entry) string {
	if e.Target != "" {
		return e.Target
	}
	if wolves, ok := e.Context["werewolves"].([]string); ok {
		return fmt.Sprint(wolves)
	}
	return "the coordinator"
}

// Phase prints a state transition banner.
func (c *Console) Phase(s game.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.banner(s)
}

func (c *Console) banner(s game.State) {
	banner := fmt.Sprintf("=== %s ===", s)
	switch s {
	case game.Night:
		banner = blue(banner)
	case game.Day:
		banner = yellow(bold(banner))
	case game.Over:
		banner = green(banner)
	default:
		banner = bold(banner)
	}
	fmt.Fprintf(c.w, "\n%s\n\n", banner)
}

// Result prints the final summary of a game.
func (c *Console) Result(res *game.Result, players []*game.Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	winner := green(res.Winner.String())
	if res.Winner == game.WerewolvesWin {
		winner = red(res.Winner.String())
	}
	fmt.Fprintf(c.w, "Winner: %s\n", winner)
	fmt.Fprintf(c.w, "Days: %d | Speeches: %d | Game: %s\n", res.Days, res.Rounds, res.GameID)
	for _, p := range players {
		status := green("alive")
		if !p.Alive {
			status = red("dead")
		}
		fmt.Fprintf(c.w, "  %s (%s) %s\n", bold(p.Name), p.Role, status)
	}
}
