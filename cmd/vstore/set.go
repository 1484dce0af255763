package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func setCmd(configPath *string) *cobra.Command {
	var asString bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write one value",
		Long: `Write a value under a key. The value is parsed as JSON, so numbers,
booleans, arrays, and objects keep their types; anything that does not
parse is stored as a string. Use --string to skip JSON parsing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, cleanup, err := openBacking(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			key, literal := args[0], args[1]

			var value any = literal
			if !asString {
				var parsed any
				if err := json.Unmarshal([]byte(literal), &parsed); err == nil {
					value = parsed
				}
			}

			encoded, err := b.Encoder().Encode(value)
			if err != nil {
				return fmt.Errorf("encode %q: %w", key, err)
			}
			if err := b.Store(key, encoded); err != nil {
				return err
			}

			success("wrote %q", key)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asString, "string", false, "Store the value as a string without JSON parsing")
	return cmd
}
