package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"kitsura-miniapp/internal/config"
	environment "kitsura-miniapp/internal/env"
	"kitsura-miniapp/internal/infra/backend"
	"kitsura-miniapp/internal/localization"
	"kitsura-miniapp/internal/stories/userdata"
)

// CLI holds what every subcommand needs once the root command has run.
type CLI struct {
	cfg       config.Config
	logger    *slog.Logger
	backend   *backend.Client
	localizer *localization.Service

	lang    string
	dev     bool
	verbose bool
	botName string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, failure(err.Error()))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cli := &CLI{}

	rootCmd := &cobra.Command{
		Use:           "miniapp",
		Short:         "Drive the VPN mini-app client against its backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.initialize(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cli.lang, "lang", "l", "", "Interface language (ru, en)")
	rootCmd.PersistentFlags().BoolVar(&cli.dev, "dev", false, "Serve mock data instead of calling the backend")
	rootCmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "Log requests to stderr")
	rootCmd.PersistentFlags().StringVar(&cli.botName, "bot", "", "Bot username used to build referral links")

	rootCmd.AddCommand(newUserCommand(cli))
	rootCmd.AddCommand(newOptionsCommand(cli))
	rootCmd.AddCommand(newPreviewCommand(cli))
	rootCmd.AddCommand(newPurchaseCommand(cli))
	rootCmd.AddCommand(newAutopayCommand(cli))
	rootCmd.AddCommand(newSettingsCommand(cli))
	rootCmd.AddCommand(newPromoCommand(cli))
	rootCmd.AddCommand(newReferralsCommand(cli))
	rootCmd.AddCommand(newDevicesCommand(cli))

	return rootCmd
}

func (cli *CLI) initialize(cmd *cobra.Command) error {
	cfg, err := environment.LoadConfig(cmd.Context())
	if err != nil {
		return err
	}
	if cli.dev {
		cfg.Backend.Dev = true
	}
	if !cli.verbose {
		cfg.Logger.Level = "error"
	}
	if cli.lang == "" {
		cli.lang = cfg.Backend.Lang
	}
	cli.cfg = cfg

	cli.logger = environment.NewLogger(cfg, os.Stderr)

	cli.localizer, err = localization.NewService()
	if err != nil {
		return errors.Wrap(err, "load translations")
	}

	cli.backend, err = environment.NewBackendClient(cfg, cli.logger, prometheus.NewRegistry())
	if err != nil {
		return errors.Wrap(err, "backend client")
	}

	return nil
}

func (cli *CLI) fetchUser(ctx context.Context) (*userdata.UserData, error) {
	svc := userdata.NewService(cli.backend, cli.localizer, cli.lang, cli.logger.WithGroup("userdata"))
	return svc.Fetch(ctx)
}
