package cli

import (
	"fmt"

	"github.com/lazypower/recall/internal/salience"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store-wide statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	total, active, err := db.CountFacts()
	if err != nil {
		return err
	}
	entities, err := db.AllEntities()
	if err != nil {
		return err
	}
	fingerprints, err := db.CountFingerprints()
	if err != nil {
		return err
	}
	relations, err := db.RelationCounts()
	if err != nil {
		return err
	}
	edges := 0
	for _, n := range relations {
		edges += n
	}

	fmt.Printf("entities:      %d\n", len(entities))
	fmt.Printf("facts:         %d active / %d total\n", active, total)
	fmt.Printf("relationships: %d\n", edges)
	fmt.Printf("fingerprints:  %d\n", fingerprints)

	facts, err := db.AllActiveFacts()
	if err != nil {
		return err
	}
	if len(facts) == 0 {
		return nil
	}

	scorer := salience.NewScorer(cfg.Salience.MaxDays)
	var sum, max float64
	high, low := 0, 0
	for _, f := range facts {
		score := scorer.Score(f)
		sum += score
		if score > max {
			max = score
		}
		if score > 1.0 {
			high++
		}
		if score < 0.1 {
			low++
		}
	}
	fmt.Printf("salience:      avg %.3f, max %.3f, %d high, %d stale\n",
		sum/float64(len(facts)), max, high, low)
	return nil
}
