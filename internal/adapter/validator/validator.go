// Package validator is the admission gate for textbook chapters. It never
// fails: every problem is reported as an error or a warning in the result.
package validator

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"chemtutor/config"
	"chemtutor/internal/adapter/markdown"
	"chemtutor/internal/domain"
)

const (
	icelandicChars = "áéíóúýþæöðÁÉÍÓÚÝÞÆÖÐ"
	shortSection   = 50
	maxBlankRun    = 3
)

var (
	corruptedChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	subsection     = regexp.MustCompile(`(?m)^###\s+(.+)$`)
	bulletMarker   = regexp.MustCompile(`^\s*([-*+])\s+`)
)

// ChemistryTerms are the Icelandic terms at least one of which is expected
// in a chemistry chapter.
var ChemistryTerms = []string{
	"atóm", "efni", "efnafræði", "rafeind", "róteind", "nifteind",
	"efnatengi", "sameind", "jón", "lofttegund", "vökvi", "fast ástand",
}

type Limits struct {
	MaxFileBytes     int64
	MinContentLength int
	MinSections      int
	MaxSections      int
}

func LimitsFromConfig(c config.ValidationConfig) Limits {
	return Limits{
		MaxFileBytes:     int64(c.MaxFileSizeMB) * 1024 * 1024,
		MinContentLength: c.MinContentLength,
		MinSections:      c.MinSections,
		MaxSections:      c.MaxSections,
	}
}

func DefaultLimits() Limits {
	return LimitsFromConfig(config.DefaultConfig().Validation)
}

// Validator holds only limits; each call builds its own result.
type Validator struct {
	limits Limits
	logger *zap.Logger
}

func New(limits Limits, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{limits: limits, logger: logger}
}

// pass accumulates the findings of one validation run.
type pass struct {
	errors   []string
	warnings []string
	info     map[string]any
}

func (p *pass) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *pass) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *pass) result() domain.ValidationResult {
	return domain.ValidationResult{
		Valid:       len(p.errors) == 0,
		Errors:      p.errors,
		Warnings:    p.warnings,
		ChapterInfo: p.info,
	}
}

// ValidateFile checks file-level limits and then the content. The file
// content is returned so callers need not read it twice; it is empty when
// the file could not be read or is over the size limit.
func (v *Validator) ValidateFile(path string) (domain.ValidationResult, string) {
	p := &pass{info: map[string]any{}}

	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			p.errorf("File does not exist: %s", path)
		} else {
			p.errorf("Error reading file: %v", err)
		}
		return p.result(), ""
	}
	if st.Size() == 0 {
		p.errorf("File is empty")
		return p.result(), ""
	}
	if st.Size() > v.limits.MaxFileBytes {
		p.errorf("File size (%.2f MB) exceeds maximum (%d MB)",
			float64(st.Size())/1024/1024, v.limits.MaxFileBytes/1024/1024)
		return p.result(), ""
	}

	data, err := os.ReadFile(path)
	if err != nil {
		p.errorf("Error reading file: %v", err)
		return p.result(), ""
	}
	content := string(data)
	res := v.ValidateContent(content)
	v.logger.Debug("validated file",
		zap.String("source", path), zap.Bool("valid", res.Valid),
		zap.Int("errors", len(res.Errors)), zap.Int("warnings", len(res.Warnings)))
	return res, content
}

// ValidateContent runs every content check; a failing check never stops
// the following ones.
func (v *Validator) ValidateContent(content string) domain.ValidationResult {
	p := &pass{info: map[string]any{}}
	lines := strings.Split(content, "\n")

	v.checkLength(p, content)
	checkEncoding(p, content)
	checkControlChars(p, content)
	v.checkStructure(p, content, lines)
	checkHierarchy(p, lines)
	extractInfo(p, content, lines)
	checkParagraphs(p, lines)
	checkSectionBodies(p, lines)
	checkIcelandic(p, content)
	checkFormatting(p, lines)

	return p.result()
}

func (v *Validator) checkLength(p *pass, content string) {
	if strings.TrimSpace(content) == "" {
		p.errorf("Content is empty")
		return
	}
	if n := utf8.RuneCountInString(content); n < v.limits.MinContentLength {
		p.errorf("Content too short (%d chars, minimum %d)", n, v.limits.MinContentLength)
	}
}

func checkEncoding(p *pass, content string) {
	if !utf8.ValidString(content) {
		p.errorf("Invalid UTF-8 encoding")
	}
}

func checkControlChars(p *pass, content string) {
	if n := len(corruptedChars.FindAllStringIndex(content, -1)); n > 0 {
		p.errorf("Found %d corrupted control characters in content", n)
	}
}

func (v *Validator) checkStructure(p *pass, content string, lines []string) {
	chapters := markdown.ChapterPattern.FindAllStringIndex(content, -1)
	switch {
	case len(chapters) == 0:
		p.errorf("Missing chapter heading (# Kafli X: Title)")
	default:
		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "#") {
				if !markdown.ChapterPattern.MatchString(line) {
					p.warnf("First heading is not a chapter heading (# Kafli X: Title)")
				}
				break
			}
		}
		if len(chapters) > 1 {
			p.warnf("Found %d chapter headings, expected exactly one", len(chapters))
		}
	}

	n := 0
	for _, line := range lines {
		if markdown.SectionPattern.MatchString(line) {
			n++
		}
	}
	if n < v.limits.MinSections {
		p.errorf("Too few sections (%d, minimum %d)", n, v.limits.MinSections)
	} else if n > v.limits.MaxSections {
		p.warnf("Many sections (%d, maximum %d)", n, v.limits.MaxSections)
	}
}

func checkHierarchy(p *pass, lines []string) {
	prev := 0
	for i, line := range lines {
		m := markdown.HeadingPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		level := len(m[1])
		if prev > 0 && level > prev+1 {
			p.warnf("Line %d: Heading hierarchy skip (h%d -> h%d)", i+1, prev, level)
		}
		prev = level
	}
}

func extractInfo(p *pass, content string, lines []string) {
	if m := markdown.ChapterPattern.FindStringSubmatch(content); m != nil {
		n, _ := strconv.Atoi(m[1])
		p.info["chapter_number"] = n
		p.info["chapter_title"] = strings.TrimSpace(m[2])
	}

	var sections []map[string]string
	for _, line := range lines {
		if m := markdown.SectionPattern.FindStringSubmatch(line); m != nil {
			sections = append(sections, map[string]string{"number": m[1], "title": strings.TrimSpace(m[2])})
		}
	}
	p.info["section_count"] = len(sections)
	p.info["sections"] = sections
	p.info["subsection_count"] = len(subsection.FindAllStringIndex(content, -1))
	p.info["word_count"] = markdown.CountWords(content)
	p.info["line_count"] = len(lines)
}

func checkParagraphs(p *pass, lines []string) {
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t != "" && !strings.HasPrefix(t, "#") {
			return
		}
	}
	p.errorf("No paragraph content found")
}

// checkSectionBodies looks at the text between each "## N.M" line and the
// next one.
func checkSectionBodies(p *pass, lines []string) {
	var (
		number string
		body   []string
		open   bool
	)
	flush := func() {
		if !open {
			return
		}
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if text == "" {
			p.warnf("Section %s appears to be empty", number)
		} else if n := utf8.RuneCountInString(text); n < shortSection {
			p.warnf("Section %s has very little content (%d chars)", number, n)
		}
	}
	for _, line := range lines {
		if m := markdown.SectionPattern.FindStringSubmatch(line); m != nil {
			flush()
			number, body, open = m[1], nil, true
			continue
		}
		body = append(body, line)
	}
	flush()
}

func checkIcelandic(p *pass, content string) {
	count := 0
	for _, r := range content {
		if strings.ContainsRune(icelandicChars, r) {
			count++
		}
	}
	p.info["icelandic_char_count"] = count
	if count == 0 {
		p.warnf("No Icelandic special characters found - content might not be in Icelandic")
	}

	lower := cases.Lower(language.Icelandic).String(content)
	found := []string{}
	for _, term := range ChemistryTerms {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	p.info["icelandic_chemistry_terms_found"] = found
	if len(found) == 0 {
		p.warnf("No common Icelandic chemistry terms found - verify content is chemistry-related")
	}
}

func checkFormatting(p *pass, lines []string) {
	trailing := 0
	for _, line := range lines {
		if line != "" && line != strings.TrimRightFunc(line, unicode.IsSpace) {
			trailing++
		}
	}
	if trailing > 0 {
		p.warnf("Found trailing whitespace on %d lines", trailing)
	}

	groups, run := 0, 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			run++
			continue
		}
		if run > maxBlankRun {
			groups++
		}
		run = 0
	}
	if groups > 0 {
		p.warnf("Found %d groups of excessive blank lines (>%d)", groups, maxBlankRun)
	}

	var markers []string
	seen := map[string]bool{}
	for _, line := range lines {
		if m := bulletMarker.FindStringSubmatch(line); m != nil && !seen[m[1]] {
			seen[m[1]] = true
			markers = append(markers, m[1])
		}
	}
	if len(markers) > 1 {
		p.warnf("Inconsistent list markers found: %s", strings.Join(markers, ", "))
	}
}
