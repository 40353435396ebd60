package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/khanhct/trove/internal/client"
	"github.com/khanhct/trove/internal/ui"
)

var (
	httpURL    string
	authToken  string
	tenant     string
	jsonOutput bool

	troveClient client.ConfigClient
)

func defaultHTTPURL() string {
	if s := os.Getenv("TROVE_HTTP_URL"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:8779"
}

func defaultToken() string {
	if s := os.Getenv("TROVE_AUTH_TOKEN"); s != "" {
		return s
	}
	return activeRemoteToken()
}

func defaultTenant() string {
	if s := os.Getenv("TROVE_TENANT"); s != "" {
		return s
	}
	return activeRemoteTenant()
}

var rootCmd = &cobra.Command{
	Use:   "trove <command>",
	Short: "CLI client for the trove configuration service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		troveClient = client.NewHTTPClient(httpURL, authToken, tenant)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if troveClient != nil {
			troveClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", defaultToken(), "bearer token for authentication")
	rootCmd.PersistentFlags().StringVar(&tenant, "tenant", defaultTenant(), "tenant scope for all requests")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "configurations", Title: "Configuration groups:"},
		&cobra.Group{ID: "instances", Title: "Instances:"},
		&cobra.Group{ID: "catalog", Title: "Parameter catalog:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(configurationCmd)
	rootCmd.AddCommand(instanceCmd)
	rootCmd.AddCommand(parameterCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if !ui.ShouldUseColor() {
		ui.ForceNoColor()
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
