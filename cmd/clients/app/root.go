// Package app provides the commands of the clients CLI.
package app

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/keyxmakerx/identity/internal/hydra"
)

// options holds the persistent flags shared by every sub-command.
type options struct {
	hydraURL string
	timeout  time.Duration
}

func (o *options) client() *hydra.Client {
	return hydra.New(o.hydraURL, o.timeout)
}

// NewRootCmd creates the root command for the clients CLI.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:               "clients",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Manage OAuth2 clients registered with the authorization backend",
		Long: `clients creates, lists and deletes the OAuth2 clients of the authorization
backend through its admin API. Applications listed here can send users to the
identity server's login and consent pages.`,
	}

	defaultURL := os.Getenv("HYDRA_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:4445"
	}
	rootCmd.PersistentFlags().StringVar(&opts.hydraURL, "hydra-url", defaultURL,
		"Base URL of the backend admin API (can also be set via HYDRA_URL)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second,
		"Timeout for each admin API call")

	rootCmd.AddCommand(newCreateCmd(opts), newListCmd(opts), newDeleteCmd(opts))

	return rootCmd
}
