package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"MarketBrief/internal/app"
	"MarketBrief/internal/config"
	"MarketBrief/internal/domain"
	"MarketBrief/internal/logging"
	"MarketBrief/internal/render"
)

type cli struct {
	cfg    config.Config
	logger *slog.Logger
	app    *app.Application
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "marketbrief",
		Short: "Financial news collection, consolidation and briefings",
		Long: `marketbrief collects market news for tracked topics, consolidates it into
per-topic summaries with an AI model and produces a morning, midday and
evening briefing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.cfg = config.Load()
			c.logger = logging.New(c.cfg.Logging.Level, c.cfg.Logging.Format)
			application, err := app.New(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			c.app = application
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close()
		},
	}

	root.AddCommand(
		c.serveCommand(),
		c.runCommand(),
		c.collectCommand(),
		c.consolidateCommand(),
		c.briefCommand(),
		c.cleanupCommand(),
		c.showCommand(),
		c.marketCommand(),
	)
	return root
}

func (c *cli) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Serve(cmd.Context())
		},
	}
}

func (c *cli) runCommand() *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one session pipeline: collect, consolidate, brief",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := domain.ParseSession(session)
			if err != nil {
				return err
			}
			report, err := c.app.Pipeline.RunSession(cmd.Context(), s)
			fmt.Fprintf(cmd.OutOrStdout(), "run %s batch %s: %d articles, %d summaries, briefing %t\n",
				report.RunID, report.BatchID, report.ArticlesCollected, report.SummariesCreated, report.Briefing != nil)
			return err
		},
	}
	cmd.Flags().StringVar(&session, "session", string(domain.SessionMorning), "session: morning, midday, evening")
	return cmd
}

func (c *cli) collectCommand() *cobra.Command {
	var topic string
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect new articles for all active topics, or one topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := c.app.SeedTopics(ctx); err != nil {
				return err
			}

			var (
				created []domain.Article
				err     error
			)
			if topic == "" {
				created, err = c.app.Collector.CollectAll(ctx)
			} else {
				var t domain.TrackedTopic
				if t, err = c.findTopic(cmd, topic); err != nil {
					return err
				}
				created, err = c.app.Collector.CollectForKeyword(ctx, t)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "collected %d new articles\n", len(created))
			return nil
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "topic label (default: all active topics)")
	return cmd
}

func (c *cli) consolidateCommand() *cobra.Command {
	var batch, topic string
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Consolidate unprocessed articles into topic summaries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if batch == "" {
				batch = domain.ManualBatchID(time.Now().In(c.app.Location()))
			}
			var (
				n   int
				err error
			)
			if topic == "" {
				n, err = c.app.Consolidator.ProcessBatch(cmd.Context(), batch)
			} else {
				n, err = c.app.Consolidator.ProcessKeyword(cmd.Context(), batch, topic)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d topic summaries in batch %s\n", n, batch)
			return nil
		},
	}
	cmd.Flags().StringVar(&batch, "batch", "", "batch id (default: YYYY-MM-DD_HHMM_manual)")
	cmd.Flags().StringVar(&topic, "topic", "", "only this topic tag")
	return cmd
}

func (c *cli) briefCommand() *cobra.Command {
	var session, style string
	cmd := &cobra.Command{
		Use:   "brief",
		Short: "Generate today's briefing for a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := domain.ParseSession(session)
			if err != nil {
				return err
			}
			briefing, err := c.app.Briefing.Generate(cmd.Context(), s)
			if err != nil {
				return err
			}
			if briefing == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no briefing generated: already exists or no processed articles today")
				return nil
			}
			return printMarkdown(cmd, style, render.BriefingMarkdown(*briefing))
		},
	}
	cmd.Flags().StringVar(&session, "session", string(domain.SessionMorning), "session: morning, midday, evening")
	cmd.Flags().StringVar(&style, "style", "", "glamour style (default: auto)")
	return cmd
}

func (c *cli) cleanupCommand() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete articles, summaries and briefings past the retention horizon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days == 0 {
				days = c.cfg.Scheduler.RetentionDays
			}
			report, err := c.app.Cleaner.CleanupOldData(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d articles, %d summaries, %d briefings\n",
				report.Articles, report.Summaries, report.Briefings)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention in days (default: configured retention)")
	return cmd
}

func (c *cli) showCommand() *cobra.Command {
	var batch, style string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Render the latest briefing and topic summaries in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store := c.app.Store()

			var doc strings.Builder
			briefing, err := store.LatestBriefing(ctx)
			switch {
			case err == nil:
				doc.WriteString(render.BriefingMarkdown(briefing))
				doc.WriteString("\n")
			case !errors.Is(err, domain.ErrNotFound):
				return err
			}

			if batch == "" {
				batch, err = store.LatestBatchID(ctx)
				if errors.Is(err, domain.ErrNotFound) {
					if doc.Len() == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "nothing to show yet")
						return nil
					}
					return printMarkdown(cmd, style, doc.String())
				}
				if err != nil {
					return err
				}
			}
			summaries, err := store.TopicSummariesByBatch(ctx, batch)
			if err != nil {
				return err
			}
			doc.WriteString(render.SummariesMarkdown(batch, summaries))
			return printMarkdown(cmd, style, doc.String())
		},
	}
	cmd.Flags().StringVar(&batch, "batch", "", "batch id (default: latest)")
	cmd.Flags().StringVar(&style, "style", "", "glamour style (default: auto)")
	return cmd
}

func (c *cli) marketCommand() *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Show current index quotes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printMarkdown(cmd, style, render.MarketMarkdown(c.app.Market.Snapshot(cmd.Context())))
		},
	}
	cmd.Flags().StringVar(&style, "style", "", "glamour style (default: auto)")
	return cmd
}

func (c *cli) findTopic(cmd *cobra.Command, label string) (domain.TrackedTopic, error) {
	topics, err := c.app.Topics.List(cmd.Context())
	if err != nil {
		return domain.TrackedTopic{}, err
	}
	for _, t := range topics {
		if strings.EqualFold(t.Label, label) {
			return t, nil
		}
	}
	return domain.TrackedTopic{}, fmt.Errorf("topic %q: %w", label, domain.ErrNotFound)
}

func printMarkdown(cmd *cobra.Command, style, markdown string) error {
	term, err := render.NewTerminal(style, 100)
	if err != nil {
		return err
	}
	out, err := term.Render(markdown)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}
