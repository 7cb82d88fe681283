package main

import (
	"context"
	"fmt"
	"io"

	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/links"
	"github.com/spf13/cobra"
)

const (
	checkPreviewLinks = 5
	checkURLRunes     = 50
)

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Print tables, link count, recent links and the customer profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			return app.printCheck(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (app *application) printCheck(ctx context.Context, out io.Writer) error {
	db, err := app.adapter.Connect(ctx)
	if err != nil {
		return err
	}
	tables, err := db.Migrator().GetTables()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Backend: %s\n", app.adapter.Backend())
	fmt.Fprintf(out, "Tables: %v\n", tables)

	count, err := app.links.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Links: %d\n", count)

	listed, err := app.links.List(ctx, links.Filter{})
	if err != nil {
		return err
	}
	if len(listed) > checkPreviewLinks {
		listed = listed[:checkPreviewLinks]
	}
	for _, link := range listed {
		fmt.Fprintf(out, "  #%d [%s] %s by %s on %s rating=%d liked=%t disliked=%t\n",
			link.ID, link.Platform, truncateRunes(link.URL, checkURLRunes), link.AddedBy,
			link.DateAdded, link.Rating, link.Liked, link.Disliked)
	}

	profile, err := app.customers.Get(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Customer: %s (move-in %q)\n", profile.CustomerName, profile.MoveInDate)
	return nil
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}
