package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"chemtutor/internal/domain"
)

func TestRootLeavesErrorOutputToCommands(t *testing.T) {
	assert.True(t, rootCmd.SilenceErrors)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestReportError(t *testing.T) {
	genErr := &domain.GenerationError{Attempts: 2, Err: errors.New("upstream 503")}

	var buf bytes.Buffer
	reportError(&buf, &shownError{err: genErr})
	assert.Empty(t, buf.String(), "message already shown to the user")

	buf.Reset()
	reportError(&buf, fmt.Errorf("ask: %w", &shownError{err: genErr}))
	assert.Empty(t, buf.String())

	buf.Reset()
	reportError(&buf, errors.New("failed to load config: bad yaml"))
	assert.Equal(t, "Error: failed to load config: bad yaml\n", buf.String())
}

func TestShownErrorUnwraps(t *testing.T) {
	err := &shownError{err: domain.ErrEmptyQuery}
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	assert.Equal(t, domain.ErrEmptyQuery.Error(), err.Error())
}
