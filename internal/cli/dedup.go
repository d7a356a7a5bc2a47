package cli

import (
	"fmt"

	"github.com/lazypower/recall/internal/dedup"
	"github.com/spf13/cobra"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Manage the content fingerprint index",
}

var dedupCheckCmd = &cobra.Command{
	Use:   "check <text>",
	Short: "Check whether content is already known",
	Args:  cobra.ExactArgs(1),
	RunE:  runDedupCheck,
}

var dedupScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Rebuild the fingerprint index and report duplicates",
	RunE:  runDedupScan,
}

var dedupStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show fingerprint index statistics",
	RunE:  runDedupStats,
}

func init() {
	dedupCmd.AddCommand(dedupCheckCmd)
	dedupCmd.AddCommand(dedupScanCmd)
	dedupCmd.AddCommand(dedupStatsCmd)
}

func runDedupCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	checker := dedup.NewChecker(db, cfg.NotesPath())
	result, err := checker.CheckDuplicate(args[0])
	if err != nil {
		return err
	}

	if !result.IsDuplicate {
		fmt.Printf("new content (fingerprint %s)\n", result.Fingerprint[:12])
		return nil
	}
	fmt.Printf("duplicate of %s, first seen %s\n", result.OriginalSource, result.FirstSeen)
	return nil
}

func runDedupScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	checker := dedup.NewChecker(db, cfg.NotesPath())
	report, err := checker.RebuildIndex()
	if err != nil {
		return err
	}

	fmt.Printf("processed %d items, index size %d\n", report.TotalProcessed, report.IndexSize)
	if len(report.Duplicates) == 0 {
		fmt.Println("no duplicates found")
		return nil
	}
	fmt.Printf("%d duplicates:\n", len(report.Duplicates))
	for _, d := range report.Duplicates {
		fmt.Printf("  %s duplicates %s: %q\n", d.DuplicateSource, d.OriginalSource, d.Content)
	}
	return nil
}

func runDedupStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	total, err := db.CountFingerprints()
	if err != nil {
		return err
	}
	sources, err := db.FingerprintSourceCounts()
	if err != nil {
		return err
	}

	fmt.Printf("fingerprints: %d\n", total)
	for kind, n := range sources {
		fmt.Printf("  %s: %d\n", kind, n)
	}
	return nil
}
