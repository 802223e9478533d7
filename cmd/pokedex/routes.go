package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"pokedex/internal/config"
	"pokedex/internal/observability"
	"pokedex/internal/present"
	"pokedex/internal/upstream"
)

const defaultRouteLimit = 151

func newRoutesCmd() *cobra.Command {
	var (
		configPath string
		limit      int
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the detail page path of every known Pokémon",
		Long: `Ask the upstream API for the first N Pokémon names and print one
/pokemon/<name> path per line, for pre-generating or warming detail pages.

Examples:
  # The original 151
  pokedex routes

  # Everything up to the second generation
  pokedex routes --limit 251`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			client := upstream.New(upstream.Options{
				Endpoint: cfg.UpstreamURL,
				Timeout:  cfg.UpstreamTimeout,
				Logger:   observability.NewLogger(observability.ConfigFromEnv()),
			})
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return printRoutes(ctx, cmd.OutOrStdout(), client, limit)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	cmd.Flags().IntVar(&limit, "limit", defaultRouteLimit, "number of Pokémon to list")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "give up after this long (0 waits forever)")
	return cmd
}

type nameLister interface {
	ListNames(ctx context.Context, limit int) ([]string, error)
}

func printRoutes(ctx context.Context, w io.Writer, src nameLister, limit int) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}
	names, err := src.ListNames(ctx, limit)
	if err != nil {
		return fmt.Errorf("list names: %w", err)
	}
	for _, name := range names {
		if _, err := fmt.Fprintln(w, present.DetailURL(name)); err != nil {
			return err
		}
	}
	return nil
}
