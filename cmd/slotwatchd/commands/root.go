package commands

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"slotwatch-backend/config"
	"slotwatch-backend/internal/checker"
	"slotwatch-backend/internal/pagescan"
	"slotwatch-backend/internal/parse"
	"slotwatch-backend/internal/portal"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "slotwatchd",
	Short: "slotwatchd watches a scheduling portal for newly opened appointment slots.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default $CONFIG_PATH or ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// ExecuteContext runs the CLI; a failed command exits nonzero.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the config path (flag, env, default) and loads
// it.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "./config/config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration from %s: %w", path, err)
	}
	log.Printf("configuration loaded from %s", path)
	return cfg, nil
}

// newSource builds the upstream data source selected by the config.
func newSource(cfg *config.Config) checker.Source {
	if cfg.Checker.Source == "page" {
		return pagescan.NewSource(cfg.Portal)
	}
	return portal.NewClient(cfg.Portal, parse.NewDateCodec(cfg.Checker.Epoch()))
}

// bookingURL is the portal link included in notifications.
func bookingURL(cfg *config.Config) string {
	if cfg.Portal.BaseURL == "" {
		return ""
	}
	params := url.Values{}
	params.Set("dept", cfg.Portal.DepartmentIDs)
	params.Set("vt", cfg.Portal.VisitType)
	return cfg.Portal.BaseURL + "/Scheduling/Embedded?" + params.Encode()
}
