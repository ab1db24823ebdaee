package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"chemtutor/internal/domain"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check chapter files before ingestion",
	Long: `Run the structural checks used by the ingestion gate and print the errors and
warnings found. Errors block ingestion; warnings do not.

Examples:
  tutor validate kafli1.md
  tutor validate chapters/*.md --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "output as JSON")
}

type validateResult struct {
	Path string `json:"path"`
	domain.ValidationResult
}

func runValidate(cmd *cobra.Command, args []string) error {
	v := newValidator(GetConfig())

	results := make([]validateResult, 0, len(args))
	failed := 0
	for _, path := range args {
		res, _ := v.ValidateFile(path)
		if !res.Valid {
			failed++
		}
		results = append(results, validateResult{Path: path, ValidationResult: res})
	}

	if validateJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
	} else {
		for _, r := range results {
			status := "VALID"
			if !r.Valid {
				status = "INVALID"
			}
			fmt.Printf("%s: %s\n", r.Path, status)
			if n, ok := r.ChapterInfo["chapter_number"]; ok {
				fmt.Printf("  Chapter %v: %v (%v sections)\n", n, r.ChapterInfo["chapter_title"], r.ChapterInfo["section_count"])
			}
			for _, e := range r.Errors {
				fmt.Printf("  error:   %s\n", e)
			}
			for _, w := range r.Warnings {
				fmt.Printf("  warning: %s\n", w)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed validation", failed, len(args))
	}
	return nil
}
