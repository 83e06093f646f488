package main

import (
	"context"
	"fmt"
	"specimencore/internal/search"
	"strings"

	"github.com/spf13/cobra"
)

func searchCommand() *cobra.Command {
	var rawScope string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search collections, specimens and recorded text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := search.ParseScope(rawScope)
			if err != nil {
				return err
			}
			return withApp(cmd, func(_ context.Context, a *app) error {
				results := a.index.Search(strings.Join(args, " "), scope)
				out := cmd.OutOrStdout()
				if len(results) == 0 {
					fmt.Fprintln(out, "no matches")
					return nil
				}
				for _, r := range results {
					fmt.Fprintf(out, "[%s] %s | %s (%s)\n", r.Category, r.Title, r.Subtitle, r.MatchedField)
					if r.Excerpt != "" {
						fmt.Fprintf(out, "    %s\n", r.Excerpt)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rawScope, "scope", "all", "all, collections, specimens or text")
	return cmd
}
