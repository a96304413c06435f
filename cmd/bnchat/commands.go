package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/csheth/bnchat/internal/archive"
	"github.com/csheth/bnchat/internal/console"
	"github.com/csheth/bnchat/internal/session"
)

// oneShot runs fn against a fresh session rendered on the console, prints the
// meters and archives the session.
func (a *app) oneShot(cmd *cobra.Command, fn func(context.Context, *session.Orchestrator) error) error {
	out := console.New(console.Options{
		Out:       a.streams.out,
		Status:    a.streams.err,
		In:        a.streams.in,
		AssumeYes: a.cfg.AssumeYes,
		Plain:     color.NoColor,
	})
	orchestrator, err := a.newSession(out)
	if err != nil {
		return err
	}
	runErr := fn(cmd.Context(), orchestrator)
	out.PrintStatus()
	if closeErr := orchestrator.Close(); runErr == nil {
		runErr = closeErr
	}
	return runErr
}

func (a *app) askCommand() *cobra.Command {
	var web bool
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return a.oneShot(cmd, func(ctx context.Context, o *session.Orchestrator) error {
				var (
					reply session.Message
					err   error
				)
				if web {
					reply, err = o.WebSearch(ctx, text)
				} else {
					reply, err = o.Send(ctx, text)
				}
				if err != nil {
					return err
				}
				if reply.Kind == session.KindError {
					return fmt.Errorf("%s", reply.Text)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&web, "web", "w", false, "answer from a web search")
	return cmd
}

func (a *app) searchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "List web search results without asking the bot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return a.oneShot(cmd, func(ctx context.Context, o *session.Orchestrator) error {
				_, err := o.DirectSearch(ctx, query)
				return err
			})
		},
	}
}

func (a *app) teachCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "teach <question> <answer>",
		Short: "Teach the bot an answer",
		Long: `Teach the bot an answer.

When the bot already knows a different answer you are asked whether to
replace it; --yes replaces without asking.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.oneShot(cmd, func(ctx context.Context, o *session.Orchestrator) error {
				outcome, err := o.Teach(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if outcome.Phase == session.PhaseAbandoned {
					fmt.Fprintln(a.streams.out, "Kept the existing answer.")
				}
				return nil
			})
		},
	}
}

func (a *app) undoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert the most recent learning",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.oneShot(cmd, func(ctx context.Context, o *session.Orchestrator) error {
				_, err := o.Undo(ctx)
				return err
			})
		},
	}
}

func (a *app) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge and search statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.oneShot(cmd, func(ctx context.Context, o *session.Orchestrator) error {
				_, err := o.RefreshStats(ctx)
				return err
			})
		},
	}
}

func (a *app) historyCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.ArchiveFile == "" {
				return fmt.Errorf("no archive file configured, set --archive-file")
			}
			entries, err := archive.New(a.cfg.ArchiveFile).Sessions()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.streams.out, "No archived sessions.")
				return nil
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			for _, entry := range entries {
				fmt.Fprintf(a.streams.out, "%s  %s  %-6s  %d messages  trust %d%%\n",
					entry.StartedAt.Local().Format("2006-01-02 15:04"),
					entry.SessionID,
					entry.Reason,
					len(entry.Messages),
					entry.TrustScore,
				)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many recent sessions, 0 for all")
	return cmd
}
