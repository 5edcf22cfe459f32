package commands

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"slotwatch-backend/internal/checker"
	"slotwatch-backend/internal/db"
	"slotwatch-backend/internal/history"
	"slotwatch-backend/internal/notify"
	"slotwatch-backend/internal/store"
)

var (
	dryRun     bool
	sourceName string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single check cycle and exit.",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&dryRun, "dry-run", false, "skip notifications and history updates")
	checkCmd.Flags().StringVar(&sourceName, "source", "", "override data source: api or page")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if sourceName != "" {
		if sourceName != "api" && sourceName != "page" {
			return fmt.Errorf("--source must be %q or %q", "api", "page")
		}
		cfg.Checker.Source = sourceName
	}

	hist := history.NewStore(cfg.Checker.HistoryFile)

	// The archive database is useful but not essential for a one-shot
	// check; a broken DSN should not stop the cycle.
	var archive store.Store
	if gormDB, err := db.Init(&cfg.Database); err != nil {
		log.Printf("check: archive database unavailable: %v", err)
	} else {
		archive = store.NewGormStore(gormDB)
	}

	notifier := notify.NewGitHubNotifier(cfg.GitHub, bookingURL(cfg))

	svc := checker.NewService(cfg, newSource(cfg), hist, archive, notifier, nil, nil)
	svc.SetDryRun(dryRun)

	summary, err := svc.CheckOnce(cmd.Context())
	printSummary(summary, err)
	if err != nil {
		return err
	}
	return nil
}

// printSummary mirrors the cycle outcome to stdout for humans and CI
// logs.
func printSummary(summary *checker.Summary, err error) {
	line := strings.Repeat("=", 50)
	fmt.Println("\n" + line)
	fmt.Println("APPOINTMENT CHECK SUMMARY")
	fmt.Println(line)
	if err != nil {
		fmt.Println("Status: FAILED")
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Println("Status: SUCCESS")
		fmt.Printf("Source: %s\n", summary.Source)
		fmt.Printf("Total slots found: %d\n", summary.SlotsFound)
		fmt.Printf("New slots: %d\n", summary.NewCount)
		fmt.Printf("Removed slots: %d\n", summary.RemovedCount)
		fmt.Printf("Notification sent: %v\n", summary.NotificationSent)
		if summary.IssueURL != "" {
			fmt.Printf("Issue: %s\n", summary.IssueURL)
		}
		if summary.DryRun {
			fmt.Println("Dry run: notifications and history update skipped")
		}
	}
	fmt.Println(line)
}
