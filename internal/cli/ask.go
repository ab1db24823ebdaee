package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chemtutor/internal/adapter/embedding"
	"chemtutor/internal/domain"
	"chemtutor/internal/usecase"
)

var (
	askChapter int
	askSection string
	askTopK    int
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the tutor a question",
	Long: `Answer a question in Icelandic from the ingested chapters. The answer cites the
chapter sections it is based on.

Examples:
  tutor ask "Hvað er samgilt tengi?"
  tutor ask --chapter 2 "Hvernig er mólmassi reiknaður?"
  tutor ask --section 2.3 --json "Hvað er jón?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().IntVar(&askChapter, "chapter", 0, "only use chunks from this chapter")
	askCmd.Flags().StringVar(&askSection, "section", "", "only use chunks from this section, e.g. 2.3")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()
	ctx := cmd.Context()
	question := strings.Join(args, " ")

	if err := requireIndex(cfg, dir); err != nil {
		return err
	}

	emb, err := newEmbedder(ctx, cfg, embedding.TaskRetrievalQuery)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	gen, err := newGenerator(cfg)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}
	st, err := openStore(cfg, dir, emb.Dimension())
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	topK := cfg.Retrieve.TopK
	if askTopK > 0 {
		topK = askTopK
	}

	var filter map[string]string
	if askChapter > 0 {
		filter = map[string]string{domain.MetaChapterNumber: strconv.Itoa(askChapter)}
	}
	if askSection != "" {
		if filter == nil {
			filter = map[string]string{}
		}
		filter[domain.MetaSectionNumber] = askSection
	}

	askUC := usecase.NewAskUseCase(
		usecase.NewRetrieveUseCase(emb, st, embeddingRetry(cfg), logger),
		usecase.NewComposeUseCase(gen, cfg.Generation.SystemPrompt, generationRetry(cfg), logger),
		st,
		topK,
		cfg.Retrieve.MaxContextChunks,
		logger,
	)

	resp, err := askUC.Ask(ctx, question, filter)
	if err != nil {
		logger.Debug("ask failed", zap.Error(err))
		fmt.Println(usecase.UserMessage(err))
		return &shownError{err: err}
	}

	if askJSON {
		output, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(resp.Answer)
	if len(resp.Citations) > 0 {
		fmt.Println("\nHeimildir:")
		for i, c := range resp.Citations {
			fmt.Printf("  [%d] Kafli %s: %s\n", i+1, c.Section, c.Title)
		}
	}
	m := resp.Metadata
	fmt.Printf("\n(%d chunks found, %d used, %d ms", m.ChunksFound, m.ChunksUsed, m.ResponseTimeMs)
	if m.Usage.Total() > 0 {
		fmt.Printf(", %d tokens", m.Usage.Total())
	}
	fmt.Println(")")
	return nil
}
