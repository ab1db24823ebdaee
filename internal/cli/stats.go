package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chemtutor/internal/port"
	"chemtutor/internal/usecase"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var healthJSON bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the index is readable and populated",
	Long: `Report healthy, degraded or unhealthy. The index is unhealthy when it cannot be
read and degraded when it is empty or no generation model is configured.`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(healthCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "output as JSON")
}

// inspectUseCase opens the index for read-only commands. No embedder is
// built, so no embedding API key is needed.
func inspectUseCase() (*usecase.AskUseCase, port.VectorStore, error) {
	cfg := GetConfig()
	dir := GetRootDir()
	if err := requireIndex(cfg, dir); err != nil {
		return nil, nil, err
	}
	st, err := openStore(cfg, dir, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}

	var composer *usecase.ComposeUseCase
	if gen, err := newGenerator(cfg); err == nil {
		composer = usecase.NewComposeUseCase(gen, cfg.Generation.SystemPrompt, generationRetry(cfg), logger)
	}
	return usecase.NewAskUseCase(nil, composer, st, cfg.Retrieve.TopK, cfg.Retrieve.MaxContextChunks, logger), st, nil
}

func runStats(cmd *cobra.Command, args []string) error {
	askUC, st, err := inspectUseCase()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := askUC.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	if statsJSON {
		output, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	db := stats.Database
	fmt.Printf("Chunks:    %d\n", db.TotalChunks)
	fmt.Printf("Chapters:  %d (%s)\n", db.UniqueChapters, strings.Join(db.Chapters, ", "))
	fmt.Printf("Sections:  %d\n", db.UniqueSections)
	fmt.Printf("Top-k:     %d\n", stats.TopK)
	fmt.Printf("Context:   %d chunks\n", stats.MaxContextChunks)
	fmt.Printf("Model:     %s\n", stats.Model)
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	askUC, st, err := inspectUseCase()
	if err != nil {
		return err
	}
	defer st.Close()

	report := askUC.Health(cmd.Context())
	if healthJSON {
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Status: %s\n", report.Status)
		for name, ok := range report.Checks {
			fmt.Printf("  %-13s %v\n", name, ok)
		}
		if report.Error != "" {
			fmt.Printf("  error: %s\n", report.Error)
		}
	}

	if report.Status == usecase.StatusUnhealthy {
		return fmt.Errorf("index is unhealthy")
	}
	return nil
}
