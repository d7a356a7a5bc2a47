package cli

import (
	"fmt"
	"time"

	"github.com/lazypower/recall/internal/search"
	"github.com/spf13/cobra"
)

var (
	searchLimit         int
	searchKeywordOnly   bool
	searchVectorOnly    bool
	searchVectorWeight  float64
	searchKeywordWeight float64
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search facts and notes by hybrid keyword and semantic retrieval",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum results")
	searchCmd.Flags().BoolVar(&searchKeywordOnly, "keyword-only", false, "skip the semantic service")
	searchCmd.Flags().BoolVar(&searchVectorOnly, "vector-only", false, "query only the semantic service")
	searchCmd.Flags().Float64Var(&searchVectorWeight, "vector-weight", search.DefaultVectorWeight, "vector path weight (0-1)")
	searchCmd.Flags().Float64Var(&searchKeywordWeight, "keyword-weight", search.DefaultKeywordWeight, "keyword path weight (0-1)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	keyword := search.NewKeyword(db, cfg.NotesPath())
	vector := search.NewSemanticClient(cfg.SemanticURL(), cfg.Semantic.Enabled,
		time.Duration(cfg.Semantic.TimeoutSeconds)*time.Second)

	ctx := cmd.Context()
	var results []search.Result
	switch {
	case searchKeywordOnly:
		results, err = keyword.Search(query, searchLimit)
		if err != nil {
			return err
		}
	case searchVectorOnly:
		results = vector.Search(ctx, query, searchLimit)
	default:
		hybrid := search.NewHybrid(keyword, vector, searchVectorWeight, searchKeywordWeight)
		results, err = hybrid.Search(ctx, query, searchLimit)
		if err != nil {
			return err
		}
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}
	for i, r := range results {
		score := r.FinalScore
		if score == 0 {
			score = r.Score
		}
		fmt.Printf("%d. %s [%.3f]", i+1, r.Entity, score)
		if r.SearchType != "" {
			fmt.Printf(" (%s)", r.SearchType)
		}
		fmt.Printf("\n   %s\n   source: %s\n", r.Content, r.Source)
	}
	return nil
}
