package app

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/keyxmakerx/identity/internal/hydra"
)

func newCreateCmd(opts *options) *cobra.Command {
	var client hydra.OAuth2Client

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new OAuth2 client",
		Long: `Register a new OAuth2 client. The generated client secret is printed once;
the backend does not return it again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, err := opts.client().CreateOAuth2Client(cmd.Context(), client)
			if err != nil {
				return fmt.Errorf("creating client: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "client_id:     %s\n", created.ClientID)
			if created.ClientSecret != "" {
				fmt.Fprintf(out, "client_secret: %s\n", created.ClientSecret)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&client.ClientID, "id", "", "Client ID (generated by the backend when empty)")
	cmd.Flags().StringVar(&client.ClientName, "name", "", "Name shown on the consent page")
	cmd.Flags().StringSliceVar(&client.RedirectURIs, "redirect-uri", nil, "Allowed redirect URI (repeatable)")
	cmd.Flags().StringSliceVar(&client.GrantTypes, "grant-type", []string{"authorization_code", "refresh_token"},
		"Allowed grant type (repeatable)")
	cmd.Flags().StringSliceVar(&client.ResponseTypes, "response-type", []string{"code"},
		"Allowed response type (repeatable)")
	cmd.Flags().StringVar(&client.Scope, "scope", "openid offline_access email profile",
		"Space-separated scopes the client may request")
	cmd.Flags().StringVar(&client.ClientURI, "client-uri", "", "Home page of the client")
	cmd.Flags().StringVar(&client.PolicyURI, "policy-uri", "", "Privacy policy of the client")
	cmd.Flags().StringVar(&client.TOSURI, "tos-uri", "", "Terms of service of the client")
	cmd.Flags().StringVar(&client.TokenEndpointAuthMethod, "token-endpoint-auth-method", "client_secret_basic",
		"Token endpoint authentication method")
	_ = cmd.MarkFlagRequired("redirect-uri")

	return cmd
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered OAuth2 clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clients, err := opts.client().ListOAuth2Clients(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing clients: %w", err)
			}
			if len(clients) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No clients registered")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "CLIENT ID\tNAME\tSCOPE\tREDIRECT URIS")
			for _, c := range clients {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ClientID, c.ClientName, c.Scope, strings.Join(c.RedirectURIs, ","))
			}
			return w.Flush()
		},
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete CLIENT_ID...",
		Short: "Delete one or more OAuth2 clients",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := opts.client()
			for _, id := range args {
				if err := client.DeleteOAuth2Client(cmd.Context(), id); err != nil {
					return fmt.Errorf("deleting client %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			}
			return nil
		},
	}
}
