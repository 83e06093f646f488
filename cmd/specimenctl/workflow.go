package main

import (
	"context"
	"errors"
	"fmt"
	"specimencore/internal/workflow"

	"github.com/spf13/cobra"
)

func workflowCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "workflow", Short: "Navigate the documentation steps of the current collection"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the current step and whether it is complete",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, func(_ context.Context, a *app) error {
					if _, err := a.current(); err != nil {
						return err
					}
					printStatus(cmd, a)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "next",
			Short: "Advance when the current step is complete",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return moveStep(cmd, func(m *workflow.Machine, a *app) error {
					if !m.CanAdvance(a.registry.Subject()) {
						if m.IsTerminal() {
							return errors.New("already at the final step")
						}
						return fmt.Errorf("step %q is incomplete", m.Current().Title())
					}
					m.Advance()
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "prev",
			Short: "Return to the previous step",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return moveStep(cmd, func(m *workflow.Machine, _ *app) error {
					if !m.Retreat() {
						return errors.New("already at the first step")
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "jump <step>",
			Short: "Go directly to a step by name or number",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				step, ok := workflow.ParseStep(args[0])
				if !ok {
					return fmt.Errorf("unknown step %q", args[0])
				}
				return moveStep(cmd, func(m *workflow.Machine, _ *app) error {
					m.JumpTo(step)
					return nil
				})
			},
		},
	)
	return cmd
}

func moveStep(cmd *cobra.Command, fn func(*workflow.Machine, *app) error) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if _, err := a.current(); err != nil {
			return err
		}
		m := workflow.NewMachineAt(a.registry.Step())
		if err := fn(m, a); err != nil {
			return err
		}
		if err := a.registry.SetStep(ctx, m.Current()); err != nil {
			return err
		}
		printStatus(cmd, a)
		return nil
	})
}

func printStatus(cmd *cobra.Command, a *app) {
	m := workflow.NewMachineAt(a.registry.Step())
	step := m.Current()
	state := "incomplete"
	if m.ValidateCurrentStep(a.registry.Subject()) {
		state = "complete"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "step %d/%d %s (%s) %.0f%%\n",
		step.Number(), len(workflow.Steps()), step.Title(), state, m.Progress()*100)
}
