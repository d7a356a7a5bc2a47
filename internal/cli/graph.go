package cli

import (
	"fmt"
	"sort"

	"github.com/lazypower/recall/internal/graph"
	"github.com/lazypower/recall/internal/store"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect and edit the relationship graph",
}

var (
	graphShowDepth     int
	graphShowDirection string
)

var graphShowCmd = &cobra.Command{
	Use:   "show <type> <name>",
	Short: "Show an entity's connections by traversal depth",
	Args:  cobra.ExactArgs(2),
	RunE:  runGraphShow,
}

var graphAddSince string

var graphAddCmd = &cobra.Command{
	Use:   "add <from> <to> <relation>",
	Short: "Add an explicit relationship between two entity keys",
	Args:  cobra.ExactArgs(3),
	RunE:  runGraphAdd,
}

var graphScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Detect relationships from facts and notes, storing new edges",
	RunE:  runGraphScan,
}

var graphStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show edge counts by relation",
	RunE:  runGraphStats,
}

var graphListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every stored relationship",
	RunE:  runGraphList,
}

func init() {
	graphShowCmd.Flags().IntVar(&graphShowDepth, "depth", 0, "traversal depth (default from config)")
	graphShowCmd.Flags().StringVar(&graphShowDirection, "direction", graph.DirectionBoth, "out, in or both")
	graphAddCmd.Flags().StringVar(&graphAddSince, "since", "", "relationship start date (default today)")

	graphCmd.AddCommand(graphShowCmd)
	graphCmd.AddCommand(graphAddCmd)
	graphCmd.AddCommand(graphScanCmd)
	graphCmd.AddCommand(graphStatsCmd)
	graphCmd.AddCommand(graphListCmd)
}

func runGraphShow(cmd *cobra.Command, args []string) error {
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
	depth := graphShowDepth
	if depth == 0 {
		depth = cfg.Graph.DefaultDepth
	}

	g, err := graph.Load(db)
	if err != nil {
		return err
	}
	connections, err := g.Traverse(entity, depth, graphShowDirection)
	if err != nil {
		return err
	}

	if len(connections) == 0 {
		fmt.Printf("%s has no connections within depth %d\n", entity, depth)
		return nil
	}

	depths := make([]int, 0, len(connections))
	for d := range connections {
		depths = append(depths, d)
	}
	sort.Ints(depths)
	for _, d := range depths {
		fmt.Printf("depth %d:\n", d)
		for _, c := range connections[d] {
			arrow := "->"
			if c.Type == graph.TypeInbound {
				arrow = "<-"
			}
			fmt.Printf("  %s %s %s\n", arrow, c.Relation, c.Entity)
		}
	}
	return nil
}

func runGraphAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	added, err := db.AddRelationship(store.Relationship{
		From:     args[0],
		To:       args[1],
		Relation: args[2],
		Since:    graphAddSince,
		Source:   "manual",
	})
	if err != nil {
		return err
	}
	if !added {
		fmt.Println("relationship already exists")
		return nil
	}
	fmt.Printf("added %s -%s-> %s\n", args[0], args[2], args[1])
	return nil
}

func runGraphScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	detector := graph.NewDetector(db, cfg.NotesPath(), nil)
	found, merged, err := detector.DetectAndMerge()
	if err != nil {
		return err
	}
	fmt.Printf("detected %d relationships, %d new\n", len(found), merged)
	return nil
}

func runGraphStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	counts, err := db.RelationCounts()
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Println("no relationships stored")
		return nil
	}

	relations := make([]string, 0, len(counts))
	for r := range counts {
		relations = append(relations, r)
	}
	sort.Strings(relations)
	for _, r := range relations {
		fmt.Printf("%-14s %d\n", r, counts[r])
	}

	// Edge counts by entity-type pair, e.g. people->companies.
	rels, err := db.AllRelationships()
	if err != nil {
		return err
	}
	pairs := make(map[string]int)
	for _, rel := range rels {
		fromType, _, ferr := store.SplitEntityKey(rel.From)
		toType, _, terr := store.SplitEntityKey(rel.To)
		if ferr != nil || terr != nil {
			continue
		}
		pairs[fromType+"->"+toType]++
	}
	if len(pairs) > 0 {
		fmt.Println("by entity types:")
		keys := make([]string, 0, len(pairs))
		for k := range pairs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-22s %d\n", k, pairs[k])
		}
	}
	return nil
}

func runGraphList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	rels, err := db.AllRelationships()
	if err != nil {
		return err
	}
	if len(rels) == 0 {
		fmt.Println("no relationships stored")
		return nil
	}
	for _, r := range rels {
		fmt.Printf("%s -%s-> %s", r.From, r.Relation, r.To)
		if r.Since != "" {
			fmt.Printf(" (since %s)", r.Since)
		}
		fmt.Println()
	}
	return nil
}
