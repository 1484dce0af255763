package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vango-sdk/pkg/storage"
)

func listCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all keys in the backing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, cleanup, err := openBacking(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			l, ok := b.(storage.Lister)
			if !ok {
				return fmt.Errorf("backing cannot enumerate keys")
			}
			keys, err := l.Keys()
			if err != nil {
				return err
			}

			sort.Strings(keys)
			for _, k := range keys {
				fmt.Println(k)
			}
			return nil
		},
	}
}
