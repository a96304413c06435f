package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/csheth/bnchat/internal/api"
	"github.com/csheth/bnchat/internal/archive"
	"github.com/csheth/bnchat/internal/config"
	"github.com/csheth/bnchat/internal/logging"
	"github.com/csheth/bnchat/internal/session"
	"github.com/csheth/bnchat/internal/tui"
)

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// app carries what PersistentPreRunE resolves for every command.
type app struct {
	streams    streams
	viper      *viper.Viper
	configFile string
	cfg        config.Config
	logger     *zap.Logger
	closeLog   func() error
}

func execute(args []string, s streams) int {
	a := &app{streams: s, viper: config.NewViper(), logger: zap.NewNop()}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(s.in)
	root.SetOut(s.out)
	root.SetErr(s.err)

	err := root.ExecuteContext(context.Background())
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	if err != nil {
		color.New(color.FgRed).Fprintf(s.err, "Error: %s\n", err)
		return 1
	}
	return 0
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "bnchat",
		Short: "Chat with a Bengali assistant that learns from you",
		Long: `bnchat talks to a Bengali chatbot service.

Run without arguments for the interactive screen, or use a subcommand for a
single question, search or lesson.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runInteractive(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/bnchat/config.yaml)")
	flags.String("endpoint", "", "chat service base URL")
	flags.Duration("request-timeout", 0, "per-request timeout, 0 waits indefinitely")
	flags.Int("search-quota", session.DefaultSearchQuota, "web searches allowed per session")
	flags.StringSlice("search-tokens", nil, "words that make a message ask for a web search")
	flags.String("log-file", "", "write JSON logs to this file")
	flags.BoolP("verbose", "v", false, "log debug detail")
	flags.String("archive-file", "", "append ended sessions to this JSON file")
	flags.Bool("alt-screen", true, "use the alternate screen buffer")
	flags.BoolP("yes", "y", false, "answer yes to every confirmation")

	root.AddCommand(
		a.askCommand(),
		a.searchCommand(),
		a.teachCommand(),
		a.undoCommand(),
		a.statsCommand(),
		a.historyCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.BindFlags(a.viper, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(a.viper, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger, a.closeLog = logging.New(logging.Options{File: cfg.LogFile, Verbose: cfg.Verbose})
	a.logger.Debug("configuration loaded",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("config_file", cfg.File),
		zap.Duration("request_timeout", cfg.RequestTimeout),
		zap.String("command", cmd.Name()),
	)
	return nil
}

func (a *app) close() error {
	if a.closeLog == nil {
		return nil
	}
	err := a.closeLog()
	a.closeLog = nil
	return err
}

func (a *app) newSession(gateway session.Gateway) (*session.Orchestrator, error) {
	client, err := api.New(api.Config{
		Endpoint: a.cfg.Endpoint,
		Timeout:  a.cfg.RequestTimeout,
		Logger:   a.logger,
	})
	if err != nil {
		return nil, err
	}
	return session.New(session.Options{
		Client:      client,
		Gateway:     gateway,
		Logger:      a.logger,
		Heuristic:   session.NewHeuristic(a.cfg.SearchTokens...),
		SearchQuota: a.cfg.SearchQuota,
		Archiver:    archive.New(a.cfg.ArchiveFile),
	})
}

func (a *app) runInteractive(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gateway := tui.NewGateway()
	orchestrator, err := a.newSession(gateway)
	if err != nil {
		return err
	}

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if a.cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(tui.New(tui.Config{
		Session:  orchestrator,
		Context:  ctx,
		Logger:   a.logger,
		Endpoint: a.cfg.Endpoint,
	}), opts...)
	gateway.Attach(program)

	started := time.Now()
	_, runErr := program.Run()
	// Release jobs still waiting on a confirmation before archiving.
	cancel()
	gateway.Detach()
	closeErr := orchestrator.Close()
	a.logger.Info("interactive session ended", zap.Duration("duration", time.Since(started)), zap.Error(runErr))
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("program error: %w", runErr)
	}
	return closeErr
}
