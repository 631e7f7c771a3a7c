package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flexsearch/indexer/internal/config"
	"github.com/flexsearch/indexer/internal/engine"
	"github.com/flexsearch/indexer/internal/lifecycle"
	"github.com/flexsearch/indexer/internal/util"
)

// Admin is the index administration surface of the CLI.
type Admin interface {
	Index() string
	EnsureIndex(ctx context.Context, index string) (bool, error)
	EnsureType(ctx context.Context, docType string, properties map[string]interface{}) error
	ResetIndex(ctx context.Context, index string) error
	DeleteIndex(ctx context.Context, index string) error
	ResetAllIndices(ctx context.Context) ([]string, error)
	ClusterHealth(ctx context.Context) (*engine.ClusterHealth, error)
}

type connectFunc func(ctx context.Context, opts *options) (Admin, error)

type options struct {
	configPath string
	url        string
	index      string
	attempts   int
	timeout    time.Duration
	verbose    bool
}

type engineAdmin struct {
	*lifecycle.Manager
	client *engine.Client
}

func (a engineAdmin) ClusterHealth(ctx context.Context) (*engine.ClusterHealth, error) {
	return a.client.ClusterHealth(ctx)
}

// loadConfig reads the service configuration when the file exists and
// applies the command line overrides.
func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(opts.configPath); err == nil {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if opts.url != "" {
		cfg.Elasticsearch.URL = opts.url
	}
	if opts.index != "" {
		cfg.Elasticsearch.Index = opts.index
	}
	if opts.attempts > 0 {
		cfg.Elasticsearch.HealthCheckAttempts = opts.attempts
	}
	return cfg, cfg.Validate()
}

func connectEngine(ctx context.Context, opts *options) (Admin, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger := util.NewNopLogger()
	if opts.verbose {
		if logger, err = util.NewLogger("debug", "console", "stderr"); err != nil {
			return nil, err
		}
	}

	client, err := engine.Dial(ctx, cfg.Elasticsearch, logger, nil)
	if err != nil {
		return nil, err
	}
	manager := lifecycle.NewManager(client, cfg.Elasticsearch, nil, logger, nil)
	return engineAdmin{Manager: manager, client: client}, nil
}

func newRootCmd(connect connectFunc) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "indexctl",
		Short:         "Administer the search indices",
		Long:          `indexctl creates, maps, resets and deletes the indices served by the indexer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "configs/config.yaml", "indexer configuration file")
	flags.StringVar(&opts.url, "url", "", "Elasticsearch URL, overrides the configuration")
	flags.StringVar(&opts.index, "index", "", "index name, overrides the configuration")
	flags.IntVar(&opts.attempts, "attempts", 0, "cluster health attempts before giving up")
	flags.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "timeout of the whole command")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log engine calls to stderr")

	rootCmd.AddCommand(
		newEnsureCmd(opts, connect),
		newEnsureTypeCmd(opts, connect),
		newResetCmd(opts, connect),
		newDeleteCmd(opts, connect),
		newResetAllCmd(opts, connect),
		newHealthCmd(opts, connect),
	)
	return rootCmd
}

// withAdmin connects under the command timeout and runs fn.
func withAdmin(cmd *cobra.Command, opts *options, connect connectFunc, fn func(ctx context.Context, admin Admin) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	admin, err := connect(ctx, opts)
	if err != nil {
		return err
	}
	return fn(ctx, admin)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
