package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	var apiKey, clientID, clientSecret string
	linkCmd := &cobra.Command{
		Use:   "link",
		Short: "Start linking a Bungie account",
		Long:  "Registers the application credentials with the running service and prints the authorization URL to open in a browser.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" || clientID == "" || clientSecret == "" {
				return fmt.Errorf("--api-key, --client-id and --client-secret required")
			}
			payload := map[string]string{
				"apiKey":       apiKey,
				"clientId":     clientID,
				"clientSecret": clientSecret,
			}
			data, err := doPostJSON(fmt.Sprintf("%s/api/link", apiFlag), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	linkCmd.Flags().StringVarP(&apiKey, "api-key", "k", "", "Bungie application API key (required)")
	linkCmd.Flags().StringVarP(&clientID, "client-id", "c", "", "OAuth client ID (required)")
	linkCmd.Flags().StringVarP(&clientSecret, "client-secret", "s", "", "OAuth client secret (required)")
	_ = linkCmd.MarkFlagRequired("api-key")
	_ = linkCmd.MarkFlagRequired("client-id")
	_ = linkCmd.MarkFlagRequired("client-secret")
	rootCmd.AddCommand(linkCmd)
}
