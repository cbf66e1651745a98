package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"

	"github.com/korjavin/genrequizbot/bot"
	"github.com/korjavin/genrequizbot/catalog"
	"github.com/korjavin/genrequizbot/config"
	"github.com/korjavin/genrequizbot/database"
	"github.com/korjavin/genrequizbot/logging"
)

const version = "1.0.0"

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "quizbot",
		Short:         "Genre history quiz Telegram bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context())
		},
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the bot (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context())
		},
	})
	rootCmd.AddCommand(newCatalogCommand())
	return rootCmd
}

func newCatalogCommand() *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the question catalog",
	}

	catalogCmd.AddCommand(&cobra.Command{
		Use:   "check [source]",
		Short: "Load and validate a catalog file or URL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			source := cfg.CatalogSource
			if len(args) == 1 {
				source = args[0]
			}

			loader := catalog.NewLoader(source, cfg.CatalogTimeout)
			c, err := loader.Fetch(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d genres\n", loader.Source(), len(c.Genres))
			for _, g := range c.Genres {
				fmt.Fprintf(out, "  %-16s %3d questions  %s\n", g.ID, len(g.Questions), g.Name)
			}
			return nil
		},
	})
	return catalogCmd
}

func runBot(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	printStartUpBanner()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	closer := logging.Setup(cfg.LogFile)
	defer closer.Close()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	quizCatalog := catalog.NewLoader(cfg.CatalogSource, cfg.CatalogTimeout).Load(ctx)
	log.Printf("Catalog ready: %d genres", len(quizCatalog.Genres))

	b, err := bot.New(cfg, db, quizCatalog)
	if err != nil {
		return fmt.Errorf("failed to initialize bot: %w", err)
	}

	log.Println("Bot initialized successfully")
	b.Start(ctx)
	return nil
}

func printStartUpBanner() {
	figure.NewFigure("QUIZBOT", "", true).Print()
	fmt.Println("======================================================")
	fmt.Printf("Genre history quiz bot (v%s)\n\n", version)
}
