package main

import (
	"errors"
	"fmt"
	"time"

	service_auth_token "github.com/humanbelnik/gamenight/internal/service/auth/token"
	"github.com/spf13/cobra"
)

func (c *cli) tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <uid>",
		Short: "Issue a development identity token",
		Long: `Signs a token for uid with the server's shared secret, read from
--secret, GAMENIGHTCTL_TOKEN_SECRET or token_secret in the config file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := c.v.GetString(tokenSecretKey)
			if secret == "" {
				return errors.New("token secret is not configured")
			}
			tokens := service_auth_token.New(secret, c.v.GetString(tokenIssuerKey))
			signed, err := tokens.Issue(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().String("secret", "", "shared signing secret")
	cmd.Flags().String("issuer", "gamenight", "token issuer")
	_ = c.v.BindPFlag(tokenSecretKey, cmd.Flags().Lookup("secret"))
	_ = c.v.BindPFlag(tokenIssuerKey, cmd.Flags().Lookup("issuer"))
	return cmd
}
