// Package commands implements the openelex CLI: one subcommand per
// pipeline stage, run against a state and an optional datefilter.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"openelex-backend/lib/configutil"
	configsqlite "openelex-backend/lib/configutil/sqlite"
	"openelex-backend/lib/telemetry"
	"openelex-backend/internal/catalog"
	"openelex-backend/internal/datastore"
	"openelex-backend/internal/pipeline"
)

type Config struct {
	// DataRoot holds the us/<state> trees: fixtures, mappings, caches.
	DataRoot   string              `json:"data_root"`
	CatalogUrl string              `json:"catalog_url"`
	Database   configsqlite.Struct `json:"database"`
}

var (
	configFile *string
	verbose    *bool
	stateFlag  *string
)

var rootCmd = &cobra.Command{
	Use:   "openelex",
	Short: "openelex ingests official US election results into a canonical store.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

func init() {
	configFile = rootCmd.PersistentFlags().String("config", "openelex.json5", "Path to the pipeline config.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
	stateFlag = rootCmd.PersistentFlags().String("state", "", "Two-letter state code, e.g. md.")
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func requireState() (string, error) {
	state := strings.ToLower(strings.TrimSpace(*stateFlag))
	if state == "" {
		return "", fmt.Errorf("--state is required (registered: %s)",
			strings.Join(pipeline.RegisteredStates(), ", "))
	}
	return state, nil
}

func newPipelineContext() (*pipeline.Context, error) {
	cfg, err := configutil.ReadConfig[Config](*configFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if cfg.DataRoot == "" {
		cfg.DataRoot = "."
	}
	if cfg.CatalogUrl == "" {
		cfg.CatalogUrl = "https://openelections.github.io/metadata"
	}
	if cfg.Database.File == "" {
		cfg.Database.File = "openelex.db"
	}

	db, err := cfg.Database.OpenDB(datastore.Schema)
	if err != nil {
		return nil, err
	}
	return pipeline.NewContext(db, catalog.NewClient(cfg.CatalogUrl), cfg.DataRoot), nil
}
