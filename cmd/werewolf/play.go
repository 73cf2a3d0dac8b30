package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lorenzotomasdiez/werewolf/internal/agentapi"
	"github.com/lorenzotomasdiez/werewolf/internal/bot"
	"github.com/lorenzotomasdiez/werewolf/internal/config"
	"github.com/lorenzotomasdiez/werewolf/internal/game"
	"github.com/lorenzotomasdiez/werewolf/internal/gamelog"
	"github.com/lorenzotomasdiez/werewolf/internal/output"
	"github.com/lorenzotomasdiez/werewolf/internal/spectate"
)

var botNames = []string{"Aline", "Benjamin", "Chloe", "David", "Elena", "Fabien", "Gaelle", "Hugo", "Ines", "Jules"}

func newPlayCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Run one game between the agents of the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPlay(cmd)
		},
	}
	cmd.Flags().Bool("show-private", false, "Print private entries (roles, seer reveals, wolf votes) on the console")
	cmd.Flags().Int("bots", 0, "Play with this many built-in bots instead of the roster")
	return cmd
}

func (a *app) runPlay(cmd *cobra.Command) error {
	showPrivate, _ := cmd.Flags().GetBool("show-private")
	bots, _ := cmd.Flags().GetInt("bots")

	var players []*game.Player
	var err error
	if bots > 0 {
		players, err = a.botPlayers(bots)
	} else {
		players, err = rosterPlayers(a.cfg.RosterPath)
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	var hub *spectate.Hub
	if a.cfg.SpectatorAddr != "" {
		// Bind before the game starts so a taken port is reported as such.
		ln, err := net.Listen("tcp", a.cfg.SpectatorAddr)
		if err != nil {
			return fmt.Errorf("spectator feed: %w", err)
		}
		hub = spectate.NewHub(showPrivate, a.logger.Named("spectate"))
		g.Go(func() error { return hub.Serve(gctx, ln) })
		fmt.Printf("Spectators: ws://%s/ws\n", ln.Addr())
	}

	res, dir, err := playGame(gctx, session{
		players:     players,
		outputBase:  a.cfg.OutputDir,
		callTimeout: a.cfg.CallTimeout,
		rng:         a.rng(0),
		logger:      a.logger,
		console:     output.NewConsole(os.Stdout, showPrivate),
		hub:         hub,
	})
	if err != nil {
		stop()
		if werr := g.Wait(); werr != nil && !errors.Is(werr, context.Canceled) {
			return errors.Join(werr, err)
		}
		return err
	}
	fmt.Printf("\nGame %s finished (%s). Output saved to: %s\n", res.GameID, res.Winner, dir)

	if hub != nil {
		fmt.Println("Spectator feed still available, press Ctrl+C to exit.")
		<-gctx.Done()
		hub.Close()
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *app) botPlayers(n int) ([]*game.Player, error) {
	if n < game.MinPlayers || n > len(botNames) {
		return nil, fmt.Errorf("bots must be between %d and %d, got %d", game.MinPlayers, len(botNames), n)
	}
	players := make([]*game.Player, n)
	for i := range n {
		players[i] = game.NewPlayer(botNames[i], i%2 == 0, bot.NewAgent(a.rng(uint64(i+1))))
	}
	return players, nil
}

func rosterPlayers(path string) ([]*game.Player, error) {
	roster, err := config.LoadRoster(path)
	if err != nil {
		return nil, err
	}
	players := make([]*game.Player, len(roster.Players))
	for i, seat := range roster.Players {
		players[i] = game.NewPlayer(seat.Name, seat.Female, agentapi.NewClient(seat.Endpoint))
	}
	return players, nil
}

// session is everything one game needs besides its context.
type session struct {
	players     []*game.Player
	outputBase  string
	callTimeout time.Duration
	rng         *rand.Rand
	logger      *zap.Logger
	console     *output.Console
	hub         *spectate.Hub
}

// playGame runs a single game, streaming entries to the console, the game.log
// file and the spectator hub, then writes the transcript and report. It
// returns the output directory.
func playGame(ctx context.Context, s session) (*game.Result, string, error) {
	if s.console == nil {
		s.console = output.NewConsole(io.Discard, false)
	}
	roster, err := game.NewRoster(s.players)
	if err != nil {
		return nil, "", err
	}

	// The ID is chosen up front so the output directory can be named after it.
	id := uuid.NewString()
	dir, err := output.CreateOutputDir(s.outputBase, output.GenerateSlug("game-"+id[:8]))
	if err != nil {
		return nil, "", fmt.Errorf("creating output directory: %w", err)
	}
	writer := output.NewWriter(dir)

	console := gamelog.NewAsync(s.console, 0)
	file := gamelog.NewAsync(writer, 0)
	sinks := []gamelog.Sink{console, file}
	if s.hub != nil {
		sinks = append(sinks, s.hub)
	}
	log := gamelog.New(sinks...)

	coord := game.NewCoordinator(roster, log,
		game.WithRand(s.rng),
		game.WithLogger(s.logger),
		game.WithCallTimeout(s.callTimeout),
		game.WithGameID(id),
	)
	coord.OnPhase = func(st game.State) {
		s.logger.Info("phase", zap.Stringer("state", st), zap.Int("round", coord.Round()))
	}

	s.console.Phase(game.Setup)
	res, runErr := coord.Run(ctx)

	console.Close()
	file.Close()
	for name, a := range map[string]*gamelog.AsyncSink{"console": console, "file": file} {
		if n := a.Dropped(); n > 0 {
			s.logger.Warn("sink dropped entries", zap.String("sink", name), zap.Int64("dropped", n))
		}
	}
	if runErr != nil {
		return nil, dir, runErr
	}

	transcript := output.NewTranscript(res, roster.Players(), log.Entries())
	if err := writer.WriteJSON(transcript); err != nil {
		return nil, dir, fmt.Errorf("writing JSON: %w", err)
	}
	if err := writer.WriteMarkdown(transcript); err != nil {
		return nil, dir, fmt.Errorf("writing markdown: %w", err)
	}
	if err := writer.Err(); err != nil {
		return nil, dir, fmt.Errorf("writing game log: %w", err)
	}

	s.console.Result(res, roster.Players())
	coord.Summary()
	return res, dir, nil
}
