package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/catalog"
	"github.com/edumarques81/stellar-videoplayer-backend/internal/domain/poster"
)

func tracksCmd() *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "List the track catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(catalogPath)
			if err != nil {
				return err
			}
			printTracks(cmd.OutOrStdout(), cat)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Track catalog (.json or .db); built-in demo catalog when empty")

	cmd.AddCommand(tracksImportCmd(&catalogPath))
	return cmd
}

func tracksImportCmd(catalogPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <db>",
		Short: "Write the catalog into a SQLite database",
		Long: `Load the catalog given by --catalog and store it in a SQLite database,
replacing any tracks already there.

Examples:
  stellar tracks import --catalog tracks.json catalog.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := importTracks(*catalogPath, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tracks into %s\n", n, args[0])
			return nil
		},
	}
}

// importTracks copies the catalog at src into the SQLite database at dst.
func importTracks(src, dst string) (int, error) {
	cat, err := catalog.Load(src)
	if err != nil {
		return 0, err
	}
	db, err := catalog.OpenDB(dst)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if err := db.Save(cat); err != nil {
		return 0, err
	}
	return cat.Len(), nil
}

func printTracks(w io.Writer, cat *catalog.Catalog) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"#", "ID", "Name", "Author", "URL", "Poster"})
	for i, track := range cat.Tracks() {
		posterCell := track.Poster
		if poster.IsRemote(track.Poster) {
			posterCell = text.FgHiBlack.Sprint(track.Poster)
		}
		t.AppendRow(table.Row{i + 1, shortID(track.ID), track.Name, track.Author, track.URL, posterCell})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d tracks", cat.Len())})

	t.Render()
}

func shortID(id string) string {
	return id[:min(8, len(id))]
}
