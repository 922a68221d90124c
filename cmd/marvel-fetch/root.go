package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/severinkast/marvel-catalog-client/pkg/catalog"
	"github.com/severinkast/marvel-catalog-client/pkg/client"
	"github.com/severinkast/marvel-catalog-client/pkg/config"
	"github.com/severinkast/marvel-catalog-client/pkg/logging"
	"github.com/severinkast/marvel-catalog-client/pkg/pagination"
	"github.com/severinkast/marvel-catalog-client/pkg/quota"
	"github.com/severinkast/marvel-catalog-client/pkg/retry"
)

// app holds the wired components shared by all subcommands.
type app struct {
	cfg     *config.Config
	catalog *catalog.Client
	retries int
}

// newRootCmd creates the root command. Credentials come from the
// environment; flags override the remaining environment configuration.
func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "marvel-fetch",
		Short:         "Drain collections from the Marvel comics catalog",
		Long:          "marvel-fetch retrieves complete result sets from the Marvel catalog gateway,\npaging through each collection with signed requests.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().String("base-url", "", "gateway base URL (overrides "+config.EnvBaseURL+")")
	cmd.PersistentFlags().Int("page-size", 0, "records per page, capped at the gateway ceiling")
	cmd.PersistentFlags().Duration("timeout", 0, "per-request timeout")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("pretty", false, "human-readable log output")
	cmd.PersistentFlags().Int("retries", 1, "attempts per fetch; transient failures re-page from scratch")

	cmd.AddCommand(newCharactersCmd(a), newComicsCmd(a))

	return cmd
}

// setup loads configuration, applies flag overrides, and wires the client.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("base-url"); v != "" {
		cfg.BaseURL = v
	}
	if v, _ := cmd.Flags().GetInt("page-size"); v > 0 {
		cfg.PageSize = v
	}
	if v, _ := cmd.Flags().GetDuration("timeout"); v > 0 {
		cfg.Timeout = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	pretty, _ := cmd.Flags().GetBool("pretty")
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: pretty,
		Output: cmd.ErrOrStderr(),
	})

	a.retries, _ = cmd.Flags().GetInt("retries")
	a.cfg = cfg

	clientCfg := client.DefaultConfig(cfg.Credentials())
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.Timeout = cfg.Timeout

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(cmd.Context()).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		clientCfg.Quota = quota.NewTracker(redisClient, cfg.DailyBudget, logging.NewLogger("quota"))
		logger.Info().Str("redis", cfg.RedisAddr).Msg("Quota tracking enabled")
	}

	transport, err := client.New(clientCfg)
	if err != nil {
		return err
	}

	a.catalog = catalog.New(transport, pagination.Config{PageSize: cfg.PageSize})

	logger.Debug().
		Object("credentials", cfg.Credentials()).
		Str("base_url", cfg.BaseURL).
		Int("page_size", cfg.PageSize).
		Msg("Client configured")

	return nil
}

// fetch drains one collection, optionally under the retry wrapper.
func (a *app) fetch(ctx context.Context, fn func(context.Context) ([]json.RawMessage, error)) ([]json.RawMessage, error) {
	if a.retries <= 1 {
		return fn(ctx)
	}

	var records []json.RawMessage
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = a.retries

	err := retry.Do(ctx, retryCfg, func() error {
		var fetchErr error
		records, fetchErr = fn(ctx)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func newCharactersCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "characters",
		Short: "Fetch every character in the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := time.Now()

			records, err := a.fetch(cmd.Context(), a.catalog.FetchCharacters)
			if err != nil {
				return err
			}

			if asJSON {
				return printRaw(cmd.OutOrStdout(), records)
			}

			characters, err := catalog.DecodeCharacters(records)
			if err != nil {
				return err
			}
			for _, c := range characters {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", c.Name, c.Comics.Available)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%d characters in %s\n", len(characters), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw records as JSON lines")
	return cmd
}

func newComicsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "comics",
		Short: "Fetch every comic in the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := time.Now()

			records, err := a.fetch(cmd.Context(), a.catalog.FetchComics)
			if err != nil {
				return err
			}

			if asJSON {
				return printRaw(cmd.OutOrStdout(), records)
			}

			comics, err := catalog.DecodeComics(records)
			if err != nil {
				return err
			}
			for _, c := range comics {
				fmt.Fprintln(cmd.OutOrStdout(), c.Title)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%d comics in %s\n", len(comics), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw records as JSON lines")
	return cmd
}

// printRaw emits one compact JSON record per line.
func printRaw(out io.Writer, records []json.RawMessage) error {
	for _, record := range records {
		if _, err := fmt.Fprintf(out, "%s\n", record); err != nil {
			return err
		}
	}
	return nil
}
