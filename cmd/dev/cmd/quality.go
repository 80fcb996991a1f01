package cmd

import (
	"fmt"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

// QualityCmds returns the test and lint commands.
func QualityCmds() []*cobra.Command {
	steps := []struct {
		use   string
		short string
		run   func() error
	}{
		{"test", "Run unit tests", func() error { return test.Test() }},
		{"lint", "Run linting", func() error { return test.Lint() }},
		{"integration-test", "Run tests against a connected tool", func() error { return test.Integ() }},
	}
	cmds := make([]*cobra.Command, 0, len(steps))
	for _, step := range steps {
		cmds = append(cmds, &cobra.Command{
			Use:   step.use,
			Short: step.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := step.run(); err != nil {
					return fmt.Errorf("%s failed: %w", step.use, err)
				}
				return nil
			},
		})
	}
	return cmds
}
