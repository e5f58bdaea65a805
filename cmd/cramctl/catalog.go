package main

import (
	"fmt"
	"io"
	"os"

	"github.com/phrazzld/cramdeck/internal/deckfile"
	"github.com/phrazzld/cramdeck/internal/export"
	"github.com/phrazzld/cramdeck/internal/platform/postgres"
	"github.com/phrazzld/cramdeck/internal/service"
	"github.com/spf13/cobra"
)

func (e *env) catalog() service.CatalogService {
	caps := postgres.NewSchemaCapabilities(e.db, e.logger)
	return service.NewCatalogService(
		postgres.NewPostgresSubjectStore(e.db, e.logger),
		postgres.NewPostgresSubtopicStore(e.db, caps, e.logger),
		postgres.NewPostgresFlashcardStore(e.db, caps, e.logger),
		caps,
		e.db,
		e.logger,
	)
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <deck.yaml>",
		Short: "Merge a YAML deck file into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			deck, err := deckfile.Parse(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if dryRun {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d subjects, %d cards\n",
					args[0], len(deck.Subjects), deck.CardCount())
				return nil
			}

			e, err := openEnv(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := e.catalog().ImportDeck(cmd.Context(), deck)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d subjects, %d subtopics, %d cards\n",
				res.Subjects, res.Subtopics, res.Cards)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without touching the database")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	exportCmd := &cobra.Command{Use: "export", Short: "Export catalog or account data"}

	var out string
	cards := &cobra.Command{
		Use:   "cards",
		Short: "Write every flashcard as plain text, grouped by subject and subtopic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()
			return writeOutput(cmd, out, func(w io.Writer) error {
				return e.catalog().ExportText(cmd.Context(), w)
			})
		},
	}
	cards.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")

	users := &cobra.Command{
		Use:   "users",
		Short: "Write every account as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()
			list, err := e.userStore().List(cmd.Context())
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, func(w io.Writer) error {
				return export.UsersCSV(w, list)
			})
		},
	}
	users.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")

	exportCmd.AddCommand(cards, users)
	return exportCmd
}

// writeOutput runs write against path, or stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
