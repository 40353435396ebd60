package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanhct/trove/internal/client"
)

var instanceCmd = &cobra.Command{
	Use:     "instance",
	Aliases: []string{"inst"},
	Short:   "Manage database instances",
	GroupID: "instances",
}

var instanceCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Provision a new instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		datastore, _ := cmd.Flags().GetString("datastore")
		version, _ := cmd.Flags().GetString("datastore-version")
		configuration, _ := cmd.Flags().GetString("configuration")

		req := &client.CreateInstanceRequest{
			Name:          args[0],
			Configuration: configuration,
		}
		if datastore != "" || version != "" {
			req.Datastore = &client.Datastore{Type: datastore, Version: version}
		}

		inst, err := troveClient.CreateInstance(context.Background(), req)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(inst)
		} else {
			printInstanceTable(inst)
		}
		return nil
	},
}

var instanceShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, err := troveClient.GetInstance(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(inst)
		} else {
			printInstanceTable(inst)
		}
		return nil
	},
}

var instanceAttachCmd = &cobra.Command{
	Use:   "attach <instance-id> <configuration-id>",
	Short: "Attach a configuration group to an instance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := troveClient.AttachConfiguration(context.Background(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("configuration %s attached to %s; restart required\n", args[1], args[0])
		return nil
	},
}

var instanceDetachCmd = &cobra.Command{
	Use:   "detach <instance-id>",
	Short: "Detach the configuration group from an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := troveClient.DetachConfiguration(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("configuration detached from %s\n", args[0])
		return nil
	},
}

var instanceRestartCmd = &cobra.Command{
	Use:   "restart <id>",
	Short: "Restart an instance to apply pending configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := troveClient.RestartInstance(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("instance %s restarting\n", args[0])
		return nil
	},
}

var instanceDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := troveClient.DeleteInstance(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("instance %s deleted\n", args[0])
		return nil
	},
}

func init() {
	instanceCreateCmd.Flags().String("datastore", "", "datastore type (default from server)")
	instanceCreateCmd.Flags().String("datastore-version", "", "datastore version")
	instanceCreateCmd.Flags().StringP("configuration", "c", "", "configuration group to attach at create")

	instanceCmd.AddCommand(instanceCreateCmd)
	instanceCmd.AddCommand(instanceShowCmd)
	instanceCmd.AddCommand(instanceAttachCmd)
	instanceCmd.AddCommand(instanceDetachCmd)
	instanceCmd.AddCommand(instanceRestartCmd)
	instanceCmd.AddCommand(instanceDeleteCmd)
}
