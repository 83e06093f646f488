package main

import (
	"context"
	"errors"
	"fmt"
	"specimencore/internal/capture"
	"specimencore/internal/core"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func collectionCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "collection", Short: "Manage collections"}
	cmd.AddCommand(
		collectionCreateCommand(),
		collectionListCommand(),
		collectionSelectCommand(),
		collectionDeleteCommand(),
		collectionCompleteCommand(),
		collectionOverviewCommand(),
	)
	return cmd
}

func collectionCreateCommand() *cobra.Command {
	var locality, collector string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a new collection and make it current",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				c, err := a.registry.Create(ctx, locality, collector)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s %s\n", c.ID, c.Locality)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&locality, "locality", "", "collection locality")
	cmd.Flags().StringVar(&collector, "collector", "", "collector name")
	return cmd
}

func collectionListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, a *app) error {
				cur, _ := a.registry.Current()
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "#\tID\tLOCALITY\tCOLLECTOR\tDATE\tSPECIMENS\tSTATUS")
				for i, c := range a.registry.Collections() {
					marker := ""
					if c.ID == cur.ID {
						marker = "*"
					}
					status := "in progress"
					if c.IsComplete {
						status = "complete"
					}
					fmt.Fprintf(w, "%d%s\t%s\t%s\t%s\t%s\t%d\t%s\n", i+1, marker, shortID(c.ID), c.Locality,
						c.CollectorName, c.CollectionDate.Format("2006-01-02"), len(c.Specimens), status)
				}
				return w.Flush()
			})
		},
	}
}

func collectionSelectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "select <position|id>",
		Short: "Make a collection current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				c, err := a.resolveCollection(args[0])
				if err != nil {
					return err
				}
				if err := a.registry.Select(ctx, c); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "current collection %s %s\n", shortID(c.ID), c.Locality)
				return nil
			})
		},
	}
}

func collectionDeleteCommand() *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "delete <position|id>",
		Short: "Delete a collection with all specimens and media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return errors.New("deletion is permanent; pass --yes to confirm")
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				c, err := a.resolveCollection(args[0])
				if err != nil {
					return err
				}
				if err := a.registry.Delete(ctx, c); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s (%d specimens)\n", shortID(c.ID), c.Locality, len(c.Specimens))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm deletion")
	return cmd
}

func collectionCompleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "complete",
		Short: "Mark the current collection complete",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				c, err := a.current()
				if err != nil {
					return err
				}
				if err := a.registry.MarkComplete(ctx, c); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "completed %s %s\n", shortID(c.ID), c.Locality)
				return nil
			})
		},
	}
}

func collectionOverviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "overview <image>",
		Short: "Attach the drawer overview photograph to the current collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				c, err := a.current()
				if err != nil {
					return err
				}
				photo, err := capture.FileCamera{Path: args[0]}.Capture(ctx)
				if err != nil {
					return err
				}
				if _, err := a.registry.UpdateCollection(ctx, c.ID, func(col *core.Collection) error {
					col.OverviewImage = photo.JPEG
					return nil
				}); err != nil {
					return err
				}
				printImageQuality(cmd, photo.Quality)
				return nil
			})
		},
	}
}
