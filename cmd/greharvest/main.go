package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gretools/greharvest/internal/config"
	"github.com/gretools/greharvest/internal/fetcher"
	"github.com/gretools/greharvest/internal/pipeline"
	"github.com/gretools/greharvest/internal/storage"
	"github.com/gretools/greharvest/internal/taxonomy"
	"github.com/gretools/greharvest/internal/types"
)

// defaultIndexURL is the 5lb problem directory this tool was built around.
const defaultIndexURL = "https://gre.myprepclub.com/forum/the-5-lb-book-of-gre-practice-problems-34935.html#p119768"

var (
	cfgFile      string
	verbose      bool
	outputDir    string
	mainCategory string
	subcategory  string
	delay        string
	maxRetries   int
	keepExisting bool
	mongoURI     string
	fetcherType  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "greharvest",
		Short: "greharvest — GRE forum question harvester",
		Long: `greharvest scrapes a GRE prep forum's problem directory, classifies
question links into the exam's category tree, and extracts each question
(text, answer choices, official answer, explanation) into a JSON archive
organized by section, subsection, and question type.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(harvestCmd())
	rootCmd.AddCommand(linksCmd())
	rootCmd.AddCommand(taxonomyCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// harvestCmd creates the "harvest" subcommand.
func harvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest [url]",
		Short: "Harvest and archive questions from a forum index page",
		Long: `Fetch the given index page (default: the 5lb problem directory),
classify its question links, then fetch and extract every question into
the output directory's category tree.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHarvest,
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for the category tree")
	cmd.Flags().StringVar(&mainCategory, "main-category", "", "only process this main category")
	cmd.Flags().StringVar(&subcategory, "subcategory", "", "only process this subcategory")
	cmd.Flags().StringVar(&delay, "delay", "", "politeness delay between question fetches (e.g. 1s)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", -1, "max retries per failed request (-1 = config default)")
	cmd.Flags().BoolVar(&keepExisting, "keep-existing", false, "do not delete previously archived questions first")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "also mirror extracted questions to this MongoDB URI")
	cmd.Flags().StringVar(&fetcherType, "fetcher", "", "fetcher type: http or browser")

	return cmd
}

// runHarvest executes the harvest command.
func runHarvest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := setupLogger(cfg)

	indexURL := defaultIndexURL
	if len(args) > 0 {
		indexURL = args[0]
	}
	if err := config.ValidateURL(indexURL); err != nil {
		return fmt.Errorf("invalid URL %q: %w", indexURL, err)
	}

	if err := validateSelectors(); err != nil {
		return err
	}

	f, err := newFetcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	var backends []storage.Storage
	if cfg.Storage.MongoURI != "" {
		mongo, err := storage.NewMongoStorage(cfg.Storage.MongoURI, cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection, logger)
		if err != nil {
			return fmt.Errorf("connect mongodb: %w", err)
		}
		backends = append(backends, mongo)
	}
	var mirror storage.Storage
	if len(backends) > 0 {
		multi := storage.NewMultiStorage(backends...)
		defer multi.Close()
		mirror = multi
	}

	logger.Info("starting harvest",
		"index", indexURL,
		"output", cfg.Archive.OutputDir,
		"fetcher", cfg.Fetcher.Type,
		"main_category", mainCategory,
		"subcategory", subcategory,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(cfg, f, mirror, logger)
	summary, err := runner.Run(ctx, indexURL, mainCategory, subcategory)
	if err != nil {
		return fmt.Errorf("harvest: %w", err)
	}

	fmt.Printf("\n✅ Harvest complete in %s\n", summary.Elapsed.Round(time.Millisecond))
	fmt.Printf("   Links:      %d found in %d categories\n", summary.LinksFound, summary.Categories)
	fmt.Printf("   Extracted:  %d questions\n", summary.Extracted)
	fmt.Printf("   Skipped:    %d pages (no usable question content)\n", summary.Skipped)
	fmt.Printf("   Failed:     %d pages\n", summary.Failed)
	fmt.Printf("   Output:     %s\n", cfg.Archive.OutputDir)

	if summary.Extracted == 0 {
		fmt.Println("\n💡 No questions were extracted. Check that the index URL points at a")
		fmt.Println("   problem directory page, or run 'greharvest links <url>' to inspect")
		fmt.Println("   what the classifier found.")
	}
	return nil
}

// linksCmd creates the "links" subcommand: classify without fetching questions.
func linksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links [url]",
		Short: "Classify question links on an index page without extracting",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			applyCLIOverrides(cfg)
			logger := setupLogger(cfg)

			indexURL := defaultIndexURL
			if len(args) > 0 {
				indexURL = args[0]
			}
			if err := config.ValidateURL(indexURL); err != nil {
				return fmt.Errorf("invalid URL %q: %w", indexURL, err)
			}

			f, err := newFetcher(cfg, logger)
			if err != nil {
				return fmt.Errorf("create fetcher: %w", err)
			}
			defer f.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runner := pipeline.NewRunner(cfg, f, nil, logger)
			buckets, err := runner.HarvestLinks(ctx, indexURL)
			if err != nil {
				return fmt.Errorf("harvest links: %w", err)
			}

			total := 0
			for _, bucket := range buckets {
				fmt.Printf("\n%s (%d links)\n", bucket.Label, len(bucket.Links))
				for _, link := range bucket.Links {
					if link.QuestionType != "" {
						fmt.Printf("  [%s] %s\n", link.QuestionType, link.URL)
					} else {
						fmt.Printf("  %s\n", link.URL)
					}
				}
				total += len(bucket.Links)
			}
			fmt.Printf("\n%d links in %d categories\n", total, len(buckets))
			return nil
		},
	}
	return cmd
}

// taxonomyCmd creates the "taxonomy" subcommand.
func taxonomyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "taxonomy",
		Short: "Print the category tree questions are filed into",
		Run: func(cmd *cobra.Command, args []string) {
			for _, main := range taxonomy.MainCategories {
				fmt.Println(main)
				for _, sub := range taxonomy.Tree[main] {
					fmt.Printf("  %s\n", sub)
				}
				if main == taxonomy.QuantSection {
					fmt.Println("  (each subsection splits into question-type folders:")
					for _, qt := range taxonomy.QuantQuestionTypes {
						fmt.Printf("    %s\n", qt)
					}
					fmt.Println("  )")
				}
			}
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			applyCLIOverrides(cfg)
			fmt.Printf("Fetcher:\n")
			fmt.Printf("  Type:              %s\n", cfg.Fetcher.Type)
			fmt.Printf("  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Max Retries:       %d\n", cfg.Fetcher.MaxRetries)
			fmt.Printf("  Retry Delay:       %s\n", cfg.Fetcher.RetryDelay)
			fmt.Printf("  Politeness Delay:  %s\n", cfg.Fetcher.PolitenessDelay)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Fetcher.UserAgents))
			fmt.Printf("\nProxy:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Proxy.Enabled)
			fmt.Printf("  Rotation:          %s\n", cfg.Proxy.Rotation)
			fmt.Printf("  Count:             %d\n", len(cfg.Proxy.URLs))
			fmt.Printf("\nHarvest:\n")
			fmt.Printf("  Deny Patterns:     %d configured\n", len(cfg.Harvest.DenyPatterns))
			fmt.Printf("\nExtract:\n")
			fmt.Printf("  Min Question Len:  %d\n", cfg.Extract.MinQuestionLength)
			fmt.Printf("  Body Fallback Cap: %d\n", cfg.Extract.BodyFallbackLimit)
			fmt.Printf("\nArchive:\n")
			fmt.Printf("  Output Dir:        %s\n", cfg.Archive.OutputDir)
			fmt.Printf("  Max Filename Len:  %d\n", cfg.Archive.MaxFilenameLength)
			fmt.Printf("  Keep Existing:     %v\n", cfg.Archive.KeepExisting)
			fmt.Printf("\nStorage:\n")
			if cfg.Storage.MongoURI != "" {
				fmt.Printf("  MongoDB:           %s/%s.%s\n", cfg.Storage.MongoURI, cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection)
			} else {
				fmt.Printf("  MongoDB:           disabled\n")
			}
			return nil
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("greharvest %s\n", config.Version)
		},
	}
}

// newFetcher builds the configured fetcher implementation.
func newFetcher(cfg *config.Config, logger *slog.Logger) (fetcher.Fetcher, error) {
	if cfg.Fetcher.Type == "browser" {
		return fetcher.NewBrowserFetcher(cfg, logger)
	}
	return fetcher.NewHTTPFetcher(cfg, logger)
}

// setupLogger creates a structured logger from the logging config; the
// --verbose flag forces debug level.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// validateSelectors checks the --main-category/--subcategory flags
// against the taxonomy before any network traffic. Subcategory names
// accept the index page's alias spellings ("Rate and Time" etc.) and
// are canonicalized in place.
func validateSelectors() error {
	if mainCategory != "" && !knownMain(mainCategory) {
		return fmt.Errorf("%w: %q (see 'greharvest taxonomy')", types.ErrUnknownCategory, mainCategory)
	}
	if subcategory == "" {
		return nil
	}

	if canonical := taxonomy.NormalizeQuantSubsection(subcategory); canonical != "" {
		subcategory = canonical
	}
	if mainCategory != "" {
		if !taxonomy.Valid(taxonomy.Label{Main: mainCategory, Sub: subcategory}) {
			return fmt.Errorf("%w: %q is not under %q", types.ErrUnknownCategory, subcategory, mainCategory)
		}
		return nil
	}
	if taxonomy.MainOf(subcategory) == "" {
		return fmt.Errorf("%w: %q (see 'greharvest taxonomy')", types.ErrUnknownCategory, subcategory)
	}
	return nil
}

// knownMain reports whether name is one of the top-level categories.
func knownMain(name string) bool {
	for _, main := range taxonomy.MainCategories {
		if main == name {
			return true
		}
	}
	return false
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if outputDir != "" {
		cfg.Archive.OutputDir = outputDir
	}
	if delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			cfg.Fetcher.PolitenessDelay = d
		}
	}
	if maxRetries >= 0 {
		cfg.Fetcher.MaxRetries = maxRetries
	}
	if keepExisting {
		cfg.Archive.KeepExisting = true
	}
	if mongoURI != "" {
		cfg.Storage.MongoURI = mongoURI
	}
	if fetcherType != "" {
		cfg.Fetcher.Type = fetcherType
	}
}
