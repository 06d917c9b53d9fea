package repositories

import (
	"context"

	"github.com/woodguard/server/domain/entities"
)

// Classifier abstracts window-level audio classification strategies.
// Implementations include the built-in onset/rhythm heuristic and external
// species-level models; the detection gate treats their output identically.
type Classifier interface {
	// Classify analyzes one analysis window of normalized samples in [-1,1]
	// and returns the classification outcome. A failed analysis returns
	// entities.NoAnalysis() together with the error; callers log the error
	// and proceed with the recovery value, never surfacing it to the client.
	Classify(ctx context.Context, window []float64) (entities.Analysis, error)

	// WindowSize returns the number of samples one analysis window requires.
	WindowSize() int
}
