package main

import (
	"context"

	"github.com/spf13/cobra"
)

var parameterCmd = &cobra.Command{
	Use:     "parameter",
	Aliases: []string{"param"},
	Short:   "Browse the parameter catalog",
	GroupID: "catalog",
}

var parameterListCmd = &cobra.Command{
	Use:   "list <datastore> <version>",
	Short: "List tunable parameters for a datastore version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := troveClient.ListParameters(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(params)
		} else {
			printParameterListTable(params)
		}
		return nil
	},
}

var parameterShowCmd = &cobra.Command{
	Use:   "show <datastore> <version> <name>",
	Short: "Show a single parameter",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		param, err := troveClient.GetParameter(context.Background(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(param)
		} else {
			printParameterTable(param)
		}
		return nil
	},
}

func init() {
	parameterCmd.AddCommand(parameterListCmd)
	parameterCmd.AddCommand(parameterShowCmd)
}
