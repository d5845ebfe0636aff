package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"neighborfit/server/config"
	"neighborfit/server/internal/bootstrap"
	"neighborfit/server/internal/geocoding"
	"neighborfit/server/internal/neighborhood"
	"neighborfit/server/internal/seed"
)

// ServiceFactory opens the engine and returns a function releasing its store.
type ServiceFactory func(ctx context.Context, logger *logrus.Logger) (*neighborhood.Service, func() error, error)

// DefaultServiceFactory opens the store configured through the environment.
func DefaultServiceFactory(ctx context.Context, logger *logrus.Logger) (*neighborhood.Service, func() error, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	repo, closeFn, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return neighborhood.NewService(repo, logger), closeFn, nil
}

func main() {
	if err := newRootCmd(os.Stdout, DefaultServiceFactory).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer, factory ServiceFactory) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "neighborctl",
		Short:        "neighborctl - inspect and seed the neighborhood store",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine activity to stderr")

	// withService opens the engine for the duration of one command.
	withService := func(cmd *cobra.Command, run func(ctx context.Context, svc *neighborhood.Service, logger *logrus.Logger) error) error {
		logger := logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.WarnLevel)
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		}

		ctx := cmd.Context()
		svc, closeFn, err := factory(ctx, logger)
		if err != nil {
			return err
		}
		defer closeFn()
		return run(ctx, svc, logger)
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the bundled sample neighborhoods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *neighborhood.Service, logger *logrus.Logger) error {
				items, err := seed.Samples()
				if err != nil {
					return err
				}
				result, err := seed.Run(ctx, svc, items, logger)
				if err != nil {
					return err
				}
				return writeJSON(out, result)
			})
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show min, max and mean per lifestyle dimension",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *neighborhood.Service, logger *logrus.Logger) error {
				stats, err := svc.ComputeStatistics(ctx)
				if err != nil {
					return err
				}
				return writeJSON(out, stats)
			})
		},
	}

	var searchLimit, searchOffset int
	searchCmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search active neighborhoods by text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *neighborhood.Service, logger *logrus.Logger) error {
				return writeJSON(out, svc.Search(ctx, args[0], searchLimit, searchOffset))
			})
		},
	}
	searchCmd.Flags().IntVar(&searchLimit, "limit", neighborhood.DefaultSearchLimit, "Maximum number of results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "Number of results to skip")

	var topOrder string
	var topLimit int
	topCmd := &cobra.Command{
		Use:   "top <dimension>",
		Short: "Rank active neighborhoods by one lifestyle dimension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *neighborhood.Service, logger *logrus.Logger) error {
				records, err := svc.TopByDimension(ctx, args[0], neighborhood.ParseSortOrder(topOrder), topLimit)
				if err != nil {
					return err
				}
				return writeJSON(out, records)
			})
		},
	}
	topCmd.Flags().StringVar(&topOrder, "order", "desc", "Sort order: asc or desc")
	topCmd.Flags().IntVar(&topLimit, "limit", neighborhood.DefaultTopLimit, "Maximum number of results")

	var geocoderURL, cacheDir string
	geocodeCmd := &cobra.Command{
		Use:   "geocode",
		Short: "Fill in coordinates for neighborhoods that have none",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *neighborhood.Service, logger *logrus.Logger) error {
				geocoder := geocoding.NewGeocoder(logger, geocoding.Options{BaseURL: geocoderURL, CacheDir: cacheDir})
				result, err := svc.FillMissingCoordinates(ctx, geocoder)
				if err != nil {
					return err
				}
				return writeJSON(out, result)
			})
		},
	}
	geocodeCmd.Flags().StringVar(&geocoderURL, "url", geocoding.DefaultBaseURL, "Nominatim base URL")
	geocodeCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Directory for the lookup cache")

	root.AddCommand(seedCmd, statsCmd, searchCmd, topCmd, geocodeCmd)
	return root
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
