package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cardsage/cardsage/internal/catalog"
	"github.com/cardsage/cardsage/internal/cli"
	"github.com/cardsage/cardsage/internal/common"
	"github.com/cardsage/cardsage/internal/config"
	"github.com/cardsage/cardsage/internal/model"
	"github.com/spf13/cobra"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the card catalog",
		Long:  `List, seed, and reset the local card catalog the pipeline searches.`,
	}

	cmd.AddCommand(listCardsCmd())
	cmd.AddCommand(showCardCmd())
	cmd.AddCommand(seedCatalogCmd())
	cmd.AddCommand(resetCatalogCmd())

	return cmd
}

func showCardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single card by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initCatalog(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			card, err := store.Get(ctx, args[0])
			if errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("no card with id %q in the catalog", args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to load card: %w", err)
			}

			fmt.Println(cli.RenderCards([]model.Card{*card}))
			return nil
		},
	}
}

func listCardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all cards in the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initCatalog(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			cards, err := store.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list cards: %w", err)
			}

			fmt.Println(cli.RenderCards(cards))
			return nil
		},
	}
}

func seedCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file.yaml]",
		Short: "Seed the catalog with cards",
		Long: `Load cards into the catalog. With no argument the built-in card set is
loaded. With a YAML file its cards are upserted by ID, so a seed file can
replace built-in cards or add new ones.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cards := catalog.DefaultCards()
			source := "built-in card set"
			if len(args) == 1 {
				var err error
				cards, err = catalog.LoadSeedFile(config.ExpandPath(args[0]))
				if err != nil {
					return fmt.Errorf("failed to load seed file: %w", err)
				}
				source = args[0]
			}

			store, err := initCatalog(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Seed(ctx, cards); err != nil {
				return fmt.Errorf("failed to seed catalog: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Seeded %d cards from %s", len(cards), source)))
			return nil
		},
	}
}

func resetCatalogCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every card from the catalog",
		Long: `Remove all cards from the catalog. The built-in set is restored the
next time the catalog is opened.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			// Confirm unless --force
			if !force {
				fmt.Print("Are you sure you want to delete every card? (y/N): ")
				var response string
				fmt.Scanln(&response)
				if strings.ToLower(response) != "y" {
					fmt.Println("Reset cancelled.")
					return nil
				}
			}

			store, err := initCatalog(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Reset(ctx); err != nil {
				return fmt.Errorf("failed to reset catalog: %w", err)
			}

			fmt.Println(cli.FormatSuccess("Catalog cleared"))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}
