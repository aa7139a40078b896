package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema the SQL generator sees",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		res, err := newAPIClient(serverURL).schema(cmd.Context())
		if err != nil {
			return err
		}
		color.Yellow("Schemas: %s", strings.Join(res.Schemas, ", "))
		fmt.Println(res.Text)
		return nil
	},
}
