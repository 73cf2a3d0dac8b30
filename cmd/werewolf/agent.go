package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lorenzotomasdiez/werewolf/internal/agentapi"
	"github.com/lorenzotomasdiez/werewolf/internal/bot"
	"github.com/lorenzotomasdiez/werewolf/internal/game"
)

func newAgentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Serve built-in bot agents over HTTP, one per port",
		Long:  "Starts --count bot agents on consecutive ports from --port, each implementing /new_game, /speak and /notify. Useful to try a roster file locally.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAgents(cmd)
		},
	}
	cmd.Flags().String("host", "127.0.0.1", "Interface to listen on")
	cmd.Flags().Int("port", 5021, "First port")
	cmd.Flags().Int("count", 7, "Number of agents")
	return cmd
}

func (a *app) runAgents(cmd *cobra.Command) error {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	count, _ := cmd.Flags().GetInt("count")
	if count < 1 {
		return fmt.Errorf("count must be >= 1, got %d", count)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for i := range count {
		addr := net.JoinHostPort(host, strconv.Itoa(port+i))
		rng := a.rng(uint64(i + 1))
		handler := agentapi.NewServer(func(info game.SetupInfo) agentapi.Player {
			return bot.New(info, rng)
		}, a.logger.Named("agent").With(zap.String("addr", addr)))

		g.Go(func() error { return serve(gctx, addr, handler) })
		fmt.Printf("Agent %d listening on http://%s\n", i+1, addr)
	}
	return g.Wait()
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return fmt.Errorf("agent %s: %w", addr, err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("agent %s: %w", addr, err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("agent %s: %w", addr, err)
	}
	return nil
}
