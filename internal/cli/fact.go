package cli

import (
	"fmt"

	"github.com/lazypower/recall/internal/dedup"
	"github.com/lazypower/recall/internal/salience"
	"github.com/lazypower/recall/internal/store"
	"github.com/spf13/cobra"
)

var factCmd = &cobra.Command{
	Use:   "fact",
	Short: "Manage entity facts",
}

var factCategory string

var factAddCmd = &cobra.Command{
	Use:   "add <type> <name> <fact>",
	Short: "Add a fact to an entity, gated by duplicate checks",
	Args:  cobra.ExactArgs(3),
	RunE:  runFactAdd,
}

var factListLimit int
var factListRanked bool

var factListCmd = &cobra.Command{
	Use:   "list <type> <name>",
	Short: "List an entity's active facts",
	Args:  cobra.ExactArgs(2),
	RunE:  runFactList,
}

var factAccessCmd = &cobra.Command{
	Use:   "access <type> <name> <fact-id>",
	Short: "Record an access to a fact, boosting its salience",
	Args:  cobra.ExactArgs(3),
	RunE:  runFactAccess,
}

var factScoreCmd = &cobra.Command{
	Use:   "score <type> <name> <fact-id>",
	Short: "Show a fact's salience score breakdown",
	Args:  cobra.ExactArgs(3),
	RunE:  runFactScore,
}

var factSupersedeBy string

var factSupersedeCmd = &cobra.Command{
	Use:   "supersede <type> <name> <fact-id>",
	Short: "Mark a fact superseded by a newer one",
	Args:  cobra.ExactArgs(3),
	RunE:  runFactSupersede,
}

func init() {
	factAddCmd.Flags().StringVar(&factCategory, "category", "", "fact category")
	factListCmd.Flags().IntVar(&factListLimit, "limit", 0, "maximum facts to show")
	factListCmd.Flags().BoolVar(&factListRanked, "ranked", false, "order by salience score")
	factSupersedeCmd.Flags().StringVar(&factSupersedeBy, "by", "", "id of the replacing fact")
	factSupersedeCmd.MarkFlagRequired("by")

	factCmd.AddCommand(factAddCmd)
	factCmd.AddCommand(factListCmd)
	factCmd.AddCommand(factAccessCmd)
	factCmd.AddCommand(factScoreCmd)
	factCmd.AddCommand(factSupersedeCmd)
}

func runFactAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	entity := store.EntityKey(args[0], args[1])
	text := args[2]

	checker := dedup.NewChecker(db, cfg.NotesPath())
	check, err := checker.CheckDuplicate(text)
	if err != nil {
		return err
	}
	if check.IsDuplicate {
		fmt.Printf("duplicate of %s (first seen %s)\n", check.OriginalSource, check.FirstSeen)
		return nil
	}

	active, err := db.ActiveFacts(entity)
	if err != nil {
		return err
	}
	if dedup.NearDuplicate(text, active) {
		fmt.Printf("near-duplicate of an existing %s fact, not stored\n", entity)
		return nil
	}

	fact := store.Fact{Entity: entity, Fact: text, Category: factCategory}
	if err := db.CreateFact(&fact); err != nil {
		return err
	}
	if _, err := checker.RegisterContent(fact.Fact, entity+"#"+fact.ID); err != nil {
		return err
	}
	fmt.Printf("stored %s#%s\n", entity, fact.ID)
	return nil
}

func runFactList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	entity := store.EntityKey(args[0], args[1])
	facts, err := db.ActiveFacts(entity)
	if err != nil {
		return err
	}
	if len(facts) == 0 {
		fmt.Printf("no facts for %s\n", entity)
		return nil
	}

	if factListRanked {
		scorer := salience.NewScorer(cfg.Salience.MaxDays)
		for _, r := range scorer.Rank(facts, factListLimit) {
			fmt.Printf("%s  [%.3f]  %s\n", r.Fact.ID, r.Score, r.Fact.Fact)
		}
		return nil
	}

	if factListLimit > 0 && len(facts) > factListLimit {
		facts = facts[:factListLimit]
	}
	for _, f := range facts {
		fmt.Printf("%s  [%s]  %s\n", f.ID, f.Timestamp, f.Fact)
	}
	return nil
}

func runFactAccess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	entity := store.EntityKey(args[0], args[1])
	if err := db.RecordAccess(entity, args[2]); err != nil {
		return err
	}
	fmt.Printf("recorded access to %s#%s\n", entity, args[2])
	return nil
}

func runFactScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	entity := store.EntityKey(args[0], args[1])
	fact, err := db.GetFact(entity, args[2])
	if err != nil {
		return err
	}
	if fact == nil {
		return fmt.Errorf("fact %s#%s not found", entity, args[2])
	}

	scorer := salience.NewScorer(cfg.Salience.MaxDays)
	fmt.Printf("fact:      %s\n", fact.Fact)
	fmt.Printf("accessed:  %s (%d times)\n", fact.LastAccessed, fact.AccessCount)
	fmt.Printf("recency:   %.4f\n", scorer.RecencyWeight(fact.LastAccessed))
	fmt.Printf("frequency: %.4f\n", salience.FrequencyWeight(fact.AccessCount))
	fmt.Printf("score:     %.4f\n", scorer.Score(*fact))
	return nil
}

func runFactSupersede(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	entity := store.EntityKey(args[0], args[1])
	if err := db.SupersedeFact(entity, args[2], factSupersedeBy); err != nil {
		return err
	}
	fmt.Printf("%s#%s superseded by %s\n", entity, args[2], factSupersedeBy)
	return nil
}
