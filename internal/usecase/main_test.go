package usecase

import (
	"testing"

	"go.uber.org/goleak"
)

// Anything linking the genai client starts an opencensus worker from an init.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}
