package chunker

import (
	"chemtutor/config"
	"chemtutor/internal/domain"
)

// Limits are the word-count bands used when grouping blocks.
type Limits struct {
	Min       int
	TargetMin int
	TargetMax int
	Max       int
}

func DefaultLimits() Limits {
	return LimitsFromConfig(config.DefaultConfig().Chunking)
}

func LimitsFromConfig(c config.ChunkingConfig) Limits {
	return Limits{
		Min:       c.MinWords,
		TargetMin: c.TargetMinWords,
		TargetMax: c.TargetMaxWords,
		Max:       c.MaxWords,
	}
}

// Assemble greedily groups the blocks of one section into chunk groups.
// Section headings are skipped; they are re-attached at render time.
// Lists, equations and code are never split: they may push a group past
// TargetMax, and a single one larger than Max becomes its own group.
func Assemble(blocks []domain.ContentBlock, lim Limits) [][]domain.ContentBlock {
	var (
		groups  [][]domain.ContentBlock
		current []domain.ContentBlock
		words   int
	)
	closeGroup := func() {
		groups = append(groups, current)
		current = nil
		words = 0
	}

	for _, b := range blocks {
		if b.Kind == domain.BlockHeading && b.Level == 2 {
			continue
		}

		if b.IsAtomic() {
			if len(current) > 0 && words+b.Words > lim.Max {
				closeGroup()
			}
		} else if words >= lim.TargetMin && words+b.Words > lim.TargetMax {
			closeGroup()
		}

		current = append(current, b)
		words += b.Words

		if words >= lim.Max {
			closeGroup()
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// GroupWords sums the word counts of a chunk group.
func GroupWords(group []domain.ContentBlock) int {
	n := 0
	for _, b := range group {
		n += b.Words
	}
	return n
}
