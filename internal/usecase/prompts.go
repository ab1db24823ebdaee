package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"chemtutor/internal/domain"
)

//go:embed prompts/system.txt prompts/user.tmpl
var promptFiles embed.FS

// NoEvidenceAnswer is returned when retrieval finds nothing to ground an answer on.
const NoEvidenceAnswer = "Því miður fann ég engin viðeigandi gögn til að svara þessari spurningu. " +
	"Vinsamlegast reyndu að orða spurninguna öðruvísi eða spyrðu um annað efni."

const sourceSeparator = "\n---\n"

var userTemplate = template.Must(
	template.New("user.tmpl").Funcs(template.FuncMap{"sources": formatSources}).ParseFS(promptFiles, "prompts/user.tmpl"),
)

// DefaultSystemPrompt returns the built-in Icelandic tutor instruction.
func DefaultSystemPrompt() string {
	data, err := promptFiles.ReadFile("prompts/system.txt")
	if err != nil {
		panic(err)
	}
	return strings.TrimRight(string(data), "\n")
}

type promptData struct {
	Question string
	Chunks   []domain.RetrievedChunk
}

// UserPrompt renders the numbered source blocks and the question.
func UserPrompt(question string, chunks []domain.RetrievedChunk) (string, error) {
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, promptData{Question: question, Chunks: chunks}); err != nil {
		return "", fmt.Errorf("render user prompt: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func formatSources(chunks []domain.RetrievedChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[Heimild %d - Kafli %s: %s]\n%s\n",
			i+1, c.Metadata[domain.MetaSectionNumber], c.Metadata[domain.MetaSectionTitle], c.Text)
	}
	return strings.Join(parts, sourceSeparator)
}
