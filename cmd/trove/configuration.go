package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanhct/trove/internal/client"
)

// parseValuePairs converts key=value pairs into a JSON object. Values that
// parse as integers or booleans are embedded typed; everything else is a
// string.
func parseValuePairs(pairs []string) (json.RawMessage, error) {
	m := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid value %q: expected key=value", p)
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			m[k] = n
		} else if b, err := strconv.ParseBool(v); err == nil {
			m[k] = b
		} else {
			m[k] = v
		}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding values: %w", err)
	}
	return data, nil
}

var configurationCmd = &cobra.Command{
	Use:     "configuration",
	Aliases: []string{"config", "cfg"},
	Short:   "Manage configuration groups",
	GroupID: "configurations",
}

var configurationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configuration groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		groups, err := troveClient.ListConfigurations(context.Background())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(groups)
		} else {
			printConfigurationListTable(groups)
		}
		return nil
	},
}

var configurationShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a configuration group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		group, err := troveClient.GetConfiguration(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(group)
		} else {
			printConfigurationTable(group)
		}
		return nil
	},
}

var configurationCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a configuration group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		datastore, _ := cmd.Flags().GetString("datastore")
		version, _ := cmd.Flags().GetString("datastore-version")
		pairs, _ := cmd.Flags().GetStringArray("value")

		values, err := parseValuePairs(pairs)
		if err != nil {
			return err
		}

		req := &client.CreateConfigurationRequest{
			Name:        args[0],
			Description: description,
			Values:      values,
		}
		if datastore != "" || version != "" {
			req.Datastore = &client.Datastore{Type: datastore, Version: version}
		}

		group, err := troveClient.CreateConfiguration(context.Background(), req)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(group)
		} else {
			printConfigurationTable(group)
		}
		return nil
	},
}

var configurationEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Replace the full value set of a configuration group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, _ := cmd.Flags().GetStringArray("value")
		values, err := parseValuePairs(pairs)
		if err != nil {
			return err
		}

		group, err := troveClient.EditConfiguration(context.Background(), args[0],
			&client.EditConfigurationRequest{Values: values})
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(group)
		} else {
			printConfigurationTable(group)
		}
		return nil
	},
}

var configurationPatchCmd = &cobra.Command{
	Use:   "patch <id>",
	Short: "Merge values into a configuration group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, _ := cmd.Flags().GetStringArray("value")
		name, _ := cmd.Flags().GetString("name")
		description, _ := cmd.Flags().GetString("description")

		req := &client.PatchConfigurationRequest{}
		if len(pairs) > 0 {
			values, err := parseValuePairs(pairs)
			if err != nil {
				return err
			}
			req.Values = values
		}
		if cmd.Flags().Changed("name") {
			req.Name = &name
		}
		if cmd.Flags().Changed("description") {
			req.Description = &description
		}

		group, err := troveClient.PatchConfiguration(context.Background(), args[0], req)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(group)
		} else {
			printConfigurationTable(group)
		}
		return nil
	},
}

var configurationDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a configuration group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := troveClient.DeleteConfiguration(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("configuration %s deleted\n", args[0])
		return nil
	},
}

var configurationInstancesCmd = &cobra.Command{
	Use:   "instances <id>",
	Short: "List instances attached to a configuration group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		instances, err := troveClient.ListAttachedInstances(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(instances)
		} else {
			printInstanceSummaryTable(instances)
		}
		return nil
	},
}

func init() {
	configurationCreateCmd.Flags().StringP("description", "d", "", "group description")
	configurationCreateCmd.Flags().String("datastore", "", "datastore type (default from server)")
	configurationCreateCmd.Flags().String("datastore-version", "", "datastore version")
	configurationCreateCmd.Flags().StringArrayP("value", "v", nil, "parameter value (key=value, repeatable)")

	configurationEditCmd.Flags().StringArrayP("value", "v", nil, "parameter value (key=value, repeatable)")

	configurationPatchCmd.Flags().StringArrayP("value", "v", nil, "parameter value (key=value, repeatable)")
	configurationPatchCmd.Flags().String("name", "", "new group name")
	configurationPatchCmd.Flags().StringP("description", "d", "", "new group description")

	configurationCmd.AddCommand(configurationListCmd)
	configurationCmd.AddCommand(configurationShowCmd)
	configurationCmd.AddCommand(configurationCreateCmd)
	configurationCmd.AddCommand(configurationEditCmd)
	configurationCmd.AddCommand(configurationPatchCmd)
	configurationCmd.AddCommand(configurationDeleteCmd)
	configurationCmd.AddCommand(configurationInstancesCmd)
}
