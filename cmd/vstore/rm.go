package main

import (
	"github.com/spf13/cobra"
)

func rmCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <key>...",
		Short: "Remove one or more keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, cleanup, err := openBacking(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, key := range args {
				if err := b.Remove(key); err != nil {
					return err
				}
				success("removed %q", key)
			}
			return nil
		},
	}
}
