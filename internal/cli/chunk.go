package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"chemtutor/internal/adapter/chunker"
	"chemtutor/internal/adapter/fs"
	"chemtutor/internal/domain"
)

var (
	chunkCheck bool
	chunkJSON  bool
)

var chunkCmd = &cobra.Command{
	Use:   "chunk <file>",
	Short: "Show how a chapter is split into chunks",
	Long: `Split a chapter into chunks without embedding or storing anything.
With --check every chunk is also checked for size and metadata problems.

Examples:
  tutor chunk kafli1.md
  tutor chunk kafli1.md --check --json`,
	Args: cobra.ExactArgs(1),
	RunE: runChunk,
}

func init() {
	rootCmd.AddCommand(chunkCmd)
	chunkCmd.Flags().BoolVar(&chunkCheck, "check", false, "run quality checks on every chunk")
	chunkCmd.Flags().BoolVar(&chunkJSON, "json", false, "output as JSON")
}

type chunkOutput struct {
	domain.Chunk
	Issues []string `json:"issues,omitempty"`
}

func runChunk(cmd *cobra.Command, args []string) error {
	content, err := fs.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	c := newChunker(GetConfig())
	chunks, err := c.Chunk(args[0], content)
	if err != nil {
		return err
	}

	out := make([]chunkOutput, len(chunks))
	flagged := 0
	for i, ch := range chunks {
		out[i].Chunk = ch
		if chunkCheck {
			out[i].Issues = chunker.CheckChunk(ch, c.Limits())
			if len(out[i].Issues) > 0 {
				flagged++
			}
		}
	}

	if chunkJSON {
		output, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	for _, o := range out {
		m := o.Metadata
		fmt.Printf("--- %s (%d words) Kafli %s: %s ---\n", o.ID, m.WordCount, m.SectionNumber, m.SectionTitle)
		fmt.Println(o.Text)
		for _, issue := range o.Issues {
			fmt.Printf("  ! %s\n", issue)
		}
		fmt.Println()
	}
	fmt.Printf("%d chunks", len(out))
	if chunkCheck {
		fmt.Printf(", %d with issues", flagged)
	}
	fmt.Println()
	return nil
}
