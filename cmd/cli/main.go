package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/channel-agent/internal/agent/publisher"
	"github.com/channel-agent/internal/ai"
	"github.com/channel-agent/internal/analysis"
	"github.com/channel-agent/internal/config"
	"github.com/channel-agent/internal/corpus"
	"github.com/channel-agent/internal/deploy"
	"github.com/channel-agent/internal/export"
	"github.com/channel-agent/internal/generator"
	"github.com/channel-agent/internal/models"
	"github.com/channel-agent/internal/storage"
	"github.com/channel-agent/internal/storage/sqlite"
	"github.com/channel-agent/internal/telegram"
	"github.com/channel-agent/internal/tracker"
	"github.com/channel-agent/pkg/logger"
	"github.com/channel-agent/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "channel-agent",
		Short: "Telegram bonus channel toolbox",
		Long: `Extracts the channel history from a Telegram export, analyses it and
writes new posts with a completion API, keeping a history of what was
generated and published.`,
		PersistentPreRunE: initializeApp,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if repo != nil {
				repo.Close()
			}
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ./configs/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(postsCmd())
	rootCmd.AddCommand(publishCmd())
	rootCmd.AddCommand(trackerCmd())
	rootCmd.AddCommand(deployCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	return nil
}

// openRepository connects to the history database on first use
func openRepository() (storage.Repository, error) {
	if repo != nil {
		return repo, nil
	}

	r, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := r.Migrate(); err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	repo = r
	return repo, nil
}

// signalContext is cancelled on Ctrl-C so retries and sleeps stop early
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ============ EXTRACT COMMAND ============

func extractCmd() *cobra.Command {
	var output, chat, feedURL string
	var keepLinks bool
	var minLength int

	cmd := &cobra.Command{
		Use:   "extract [result.json]",
		Short: "Extract channel posts from a Telegram export into the corpus file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			if output == "" {
				output = cfg.Corpus.Path
			}
			opts := export.Options{Chat: chat, KeepLinks: keepLinks, MinLength: minLength}

			var c *models.Corpus
			var err error

			switch {
			case feedURL != "":
				opts.Source = feedURL
				c, err = export.FromFeed(ctx, feedURL, opts)
			default:
				path := "result.json"
				if len(args) == 1 {
					path = args[0]
				}
				opts.Source = filepath.Base(path)

				exp, lerr := export.LoadExport(path)
				if lerr != nil {
					return lerr
				}
				c, err = export.Extract(exp, opts)
			}
			if err != nil {
				return err
			}

			if err := corpus.Save(output, c); err != nil {
				return err
			}

			log.Info().Str("source", c.Source).Str("output", output).Int("posts", c.Total).Msg("Corpus written")
			fmt.Printf("Extracted %d posts from %s into %s\n", c.Total, c.Source, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "corpus file (default corpus.path)")
	cmd.Flags().StringVar(&chat, "chat", "", "chat name when the export holds several chats")
	cmd.Flags().StringVar(&feedURL, "feed", "", "import from an RSS/Atom mirror of the channel instead")
	cmd.Flags().BoolVar(&keepLinks, "keep-links", true, "keep text links as <a href> anchors")
	cmd.Flags().IntVar(&minLength, "min-length", 0, "skip posts shorter than this many characters")

	return cmd
}

// ============ ANALYZE COMMANDS ============

func analyzeCmd() *cobra.Command {
	var corpusPath string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Reports over the post corpus",
	}
	cmd.PersistentFlags().StringVar(&corpusPath, "corpus", "", "corpus file (default corpus.path)")

	load := func() (*models.Corpus, error) {
		if corpusPath == "" {
			corpusPath = cfg.Corpus.Path
		}
		return corpus.Load(corpusPath)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "links",
		Short: "Count link formats and domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load()
			if err != nil {
				return err
			}
			return analysis.Links(c).Render(os.Stdout)
		},
	})

	var threshold float64
	duplicates := &cobra.Command{
		Use:   "duplicates",
		Short: "Find repeated and near-duplicate posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load()
			if err != nil {
				return err
			}
			return analysis.Duplicates(c, threshold).Render(os.Stdout)
		},
	}
	duplicates.Flags().Float64Var(&threshold, "threshold", analysis.DefaultSimilarity, "shingle similarity for near duplicates (0-1)")
	cmd.AddCommand(duplicates)

	var by string
	timeline := &cobra.Command{
		Use:   "time",
		Short: "Group posts by hour, day, weekday or month",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := analysis.ParseGranularity(by)
			if err != nil {
				return err
			}
			c, err := load()
			if err != nil {
				return err
			}
			return analysis.Timeline(c, g).Render(os.Stdout)
		},
	}
	timeline.Flags().StringVar(&by, "by", "hour", "hour, day, weekday or month")
	cmd.AddCommand(timeline)

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Length, keyword and emoji statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load()
			if err != nil {
				return err
			}
			return analysis.Stats(c).Render(os.Stdout)
		},
	})

	return cmd
}

// ============ GENERATE COMMAND ============

func generateCmd() *cobra.Command {
	var count int
	var publish, dryRun bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write new posts with the completion API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			agent, err := buildAgent(ctx, true, publish && !dryRun)
			if err != nil {
				return err
			}

			results, errs := agent.Run(ctx, publisher.RunOptions{
				Count:   count,
				Publish: publish,
				DryRun:  dryRun,
			})

			for _, r := range results {
				printResult(r)
			}

			if len(errs) > 0 {
				fmt.Printf("\nErrors:\n")
				for _, e := range errs {
					fmt.Printf("  - %s\n", e)
				}
				return fmt.Errorf("%d of %d posts failed", len(errs), count)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of posts to generate")
	cmd.Flags().BoolVar(&publish, "publish", false, "publish each post to the channel")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print posts without storing or publishing them")

	return cmd
}

// buildAgent wires the history with the generator and the channel when
// the command needs them
func buildAgent(ctx context.Context, withGenerator, withChannel bool) (*publisher.Agent, error) {
	if withGenerator {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}

	r, err := openRepository()
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.New(ratelimit.Rates{
		CompletionsPerMinute: cfg.RateLimit.CompletionsPerMinute,
		TelegramPerMinute:    cfg.RateLimit.TelegramPerMinute,
	})

	var gen publisher.Generator
	if withGenerator {
		completer, err := ai.NewCompleter(cfg.AI, limiter, log)
		if err != nil {
			return nil, err
		}

		g, err := generator.New(completer, cfg.AI, cfg.Generator, cfg.Bonuses, log)
		if err != nil {
			return nil, err
		}

		history, err := r.RecentPosts(ctx, cfg.Generator.HistorySize)
		if err != nil {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
		g.Seed(history)
		gen = g
	}

	agent := publisher.NewAgent(gen, r, cfg.Corpus, log)

	if withChannel {
		ch, err := newChannel(limiter)
		if err != nil {
			return nil, err
		}
		agent.SetChannel(ch)
	}

	t, err := tracker.NewSheetsTracker(ctx, cfg.Tracker, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracker: %w", err)
	}
	if t != nil {
		agent.SetTracker(t)
	}

	return agent, nil
}

func newChannel(limiter *ratelimit.MultiLimiter) (*telegram.Publisher, error) {
	if err := cfg.ValidateTelegram(); err != nil {
		return nil, err
	}
	return telegram.NewPublisher(cfg.Telegram, limiter, log)
}

func printResult(r *publisher.GenerateResult) {
	p := r.Post
	header := "draft"
	if p.ID != 0 {
		header = fmt.Sprintf("#%d", p.ID)
	}

	fmt.Printf("\n=== Post %s | %s | %s | %s ===\n", header, p.Template, p.LinkFormat, p.BonusName)
	fmt.Printf("Attempts: %d", p.Attempts)
	if p.Fallback {
		fmt.Printf(" (fallback)")
	}
	if r.Published {
		fmt.Printf(" | published")
	}
	fmt.Printf("\n\n%s\n", p.Content)
}

// ============ POSTS COMMANDS ============

func postsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List and manage generated posts",
	}

	cmd.AddCommand(postsListCmd())
	cmd.AddCommand(postsShowCmd())
	cmd.AddCommand(postsDeleteCmd())
	return cmd
}

func postsListCmd() *cobra.Command {
	var status, bonus string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List generated posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			r, err := openRepository()
			if err != nil {
				return err
			}

			filter := storage.DefaultPostFilter()
			filter.Limit = limit
			filter.BonusName = bonus

			if status != "" {
				s := models.GeneratedStatus(status)
				filter.Status = &s
			}

			posts, err := r.ListPosts(ctx, filter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Posts (%d) ===\n\n", len(posts))
			for _, p := range posts {
				fmt.Printf("[%d] %s | %s | %s | %s\n", p.ID, p.Status, p.Template, p.LinkFormat, p.BonusName)
				fmt.Printf("    Created: %s\n", p.CreatedAt.Format(time.RFC1123))
				if p.PublishedAt != nil {
					fmt.Printf("    Published: %s (message %d)\n", p.PublishedAt.Format(time.RFC1123), p.TelegramMessageID)
				}
				if p.ErrorMessage != "" {
					fmt.Printf("    Error: %s\n", p.ErrorMessage)
				}
				fmt.Printf("    Preview: %s\n\n", truncateStr(firstLine(p.Content), 100))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (draft, published, failed)")
	cmd.Flags().StringVar(&bonus, "bonus", "", "filter by bonus name")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum posts to show")

	return cmd
}

func postsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a generated post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			r, err := openRepository()
			if err != nil {
				return err
			}

			p, err := r.GetPostByID(context.Background(), id)
			if err != nil {
				return err
			}

			printResult(&publisher.GenerateResult{Post: p, Published: p.Status == models.GeneratedStatusPublished})
			return nil
		},
	}
}

func postsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a generated post from the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			r, err := openRepository()
			if err != nil {
				return err
			}

			if err := r.DeletePost(context.Background(), id); err != nil {
				return err
			}

			fmt.Printf("Post %d deleted\n", id)
			return nil
		},
	}
}

// ============ PUBLISH COMMAND ============

func publishCmd() *cobra.Command {
	var drafts bool

	cmd := &cobra.Command{
		Use:   "publish [id]",
		Short: "Publish a stored post, or every draft, to the channel",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			if !drafts && len(args) == 0 {
				return fmt.Errorf("give a post id or --drafts")
			}

			agent, err := buildAgent(ctx, false, true)
			if err != nil {
				return err
			}

			if drafts {
				published, errs := agent.PublishDrafts(ctx)
				fmt.Printf("Published %d drafts\n", published)
				for _, e := range errs {
					fmt.Printf("  - %s\n", e)
				}
				if len(errs) > 0 {
					return fmt.Errorf("%d drafts failed", len(errs))
				}
				return nil
			}

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			result, err := agent.Publish(ctx, id)
			if err != nil {
				return err
			}

			fmt.Printf("Post %d published as message %d\n", result.PostID, result.MessageID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&drafts, "drafts", false, "publish every draft, oldest first")
	return cmd
}

// ============ TRACKER COMMANDS ============

func trackerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracker",
		Short: "Google Sheets tracker management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Initialize Google Sheet with headers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if !cfg.Tracker.Enabled {
				return fmt.Errorf("tracker is not enabled in config - set tracker.enabled=true and tracker.spreadsheet_id")
			}

			t, err := tracker.NewSheetsTracker(ctx, cfg.Tracker, log)
			if err != nil {
				return fmt.Errorf("failed to create tracker: %w", err)
			}

			if err := t.InitializeSheet(ctx); err != nil {
				return fmt.Errorf("failed to initialize sheet: %w", err)
			}

			fmt.Println("Google Sheet initialized successfully!")
			fmt.Printf("Spreadsheet ID: %s\n", cfg.Tracker.SpreadsheetID)
			fmt.Printf("Sheet Name: %s\n", cfg.Tracker.SheetName)
			fmt.Println("\nColumns created:")
			for i, col := range tracker.SheetColumns {
				fmt.Printf("  %d. %s\n", i+1, col)
			}

			return nil
		},
	})

	return cmd
}

// ============ DEPLOY COMMAND ============

func deployCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Copy the project to SERVER_HOST:SERVER_PATH over ssh",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			return deploy.Run(ctx, deploy.FromConfig(cfg.Deploy, dryRun), os.Stdout, log)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the commands without running them")
	return cmd
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid post id %q", s)
	}
	return uint(id), nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func truncateStr(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
