package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/humanbelnik/gamenight/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	serverKey      = "server"
	tokenKey       = "token"
	tokenSecretKey = "token_secret"
	tokenIssuerKey = "token_issuer"
	timeoutKey     = "timeout"
	verboseKey     = "verbose"
)

type cli struct {
	v       *viper.Viper
	cfgFile string
	service *client.Service
	api     *client.API
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "gamenightctl",
		Short:         "Talk to a game night server",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default $HOME/.gamenightctl.yaml)")
	flags.String("server", "http://localhost:8080", "server base URL")
	flags.String("token", "", "identity token")
	flags.Duration("timeout", 30*time.Second, "per-command timeout")
	flags.BoolP("verbose", "v", false, "log client activity to stderr")

	_ = c.v.BindPFlag(serverKey, flags.Lookup("server"))
	_ = c.v.BindPFlag(tokenKey, flags.Lookup("token"))
	_ = c.v.BindPFlag(timeoutKey, flags.Lookup("timeout"))
	_ = c.v.BindPFlag(verboseKey, flags.Lookup("verbose"))

	root.AddCommand(
		c.previewCmd(),
		c.createCmd(),
		c.claimCmd(),
		c.readyCmd(),
		c.gamesCmd(),
		c.membersCmd(),
		c.removeCmd(),
		c.submitCmd(),
		c.picksCmd(),
		c.selectCmd(),
		c.closeCmd(),
		c.deleteCmd(),
		c.tokenCmd(),
	)
	return root
}

// init resolves configuration from flags, GAMENIGHTCTL_* variables and the
// config file, in that order of precedence.
func (c *cli) init(cmd *cobra.Command) error {
	c.v.SetEnvPrefix("gamenightctl")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		c.v.AddConfigPath(home)
		c.v.SetConfigType("yaml")
		c.v.SetConfigName(".gamenightctl")
	}
	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if c.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	level := slog.LevelWarn
	if c.v.GetBool(verboseKey) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	c.api = client.NewAPI(c.v.GetString(serverKey), client.WithToken(c.v.GetString(tokenKey)))
	c.service = client.NewService(c.api, client.WithLogger(logger))
	return nil
}
