package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func getCmd(configPath *string) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Read one value",
		Long: `Read the value stored under a key and print it as JSON.
With --raw the encoded form is printed instead of decoding it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, cleanup, err := openBacking(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			key := args[0]
			encoded, ok, err := b.Load(key)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("key %q not found", key)
			}

			if raw {
				fmt.Println(encoded)
				return nil
			}

			var value any
			if err := b.Encoder().Decode(encoded, &value); err != nil {
				return fmt.Errorf("decode %q: %w", key, err)
			}

			out := json.NewEncoder(os.Stdout)
			out.SetIndent("", "  ")
			return out.Encode(value)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the encoded form without decoding")
	return cmd
}
