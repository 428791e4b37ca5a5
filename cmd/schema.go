package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/framefill/config"
)

// NewSchemaCmd prints the JSON Schema of framefill.yml.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for framefill.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
