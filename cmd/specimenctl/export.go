package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"specimencore/internal/export"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

const jobPollInterval = 100 * time.Millisecond

func exportCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the current collection, or every collection with --all",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				req := export.Request{All: all, RequestedBy: requester()}
				if !all {
					c, err := a.current()
					if err != nil {
						return err
					}
					req.CollectionID = c.ID
				}
				job, err := a.worker.Enqueue(ctx, req)
				if err != nil {
					return err
				}
				progress := func(f float64) {
					fmt.Fprintf(cmd.ErrOrStderr(), "\rexporting %3.0f%%", f*100)
					if f >= 1 {
						fmt.Fprintln(cmd.ErrOrStderr())
					}
				}
				job, err = waitForJob(ctx, a.worker, job.ID, progress)
				if err != nil {
					return err
				}
				res := job.Result
				if !res.Success {
					return errors.New(res.Error)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "exported to %s\n", res.Path)
				fmt.Fprintf(out, "%s files, %s\n", humanize.Comma(int64(res.FileCount)), humanize.Bytes(uint64(res.TotalBytes)))
				for _, id := range res.Skipped {
					fmt.Fprintf(out, "skipped %s\n", id)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "export every collection into one directory")
	return cmd
}

// waitForJob polls the job's progress until the worker finishes it.
func waitForJob(ctx context.Context, w *export.Worker, id string, progress func(float64)) (export.Job, error) {
	var job export.Job
	var err error
	done := make(chan struct{})
	go func() {
		defer close(done)
		job, err = w.Wait(ctx, id)
	}()

	ticker := time.NewTicker(jobPollInterval)
	defer ticker.Stop()
	last := 0.0
	report := func() {
		if j, ok := w.Get(id); ok && j.Progress > last {
			last = j.Progress
			progress(last)
		}
	}
	for {
		select {
		case <-done:
			if err == nil {
				report()
			}
			return job, err
		case <-ticker.C:
			report()
		}
	}
}

func requester() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "specimenctl"
}
