package species

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/woodguard/server/domain/entities"
	"github.com/woodguard/server/domain/repositories"
	"github.com/woodguard/server/internal/audio"
)

// MockClassifier stands in for an external species-level model (the
// long-window BirdNET-style collaborator). It honors the same silence
// floor as the onset pipeline and otherwise replays scripted results,
// defaulting to "none". Useful for development and tests; the production
// model is wired in behind the same repositories.Classifier contract.
type MockClassifier struct {
	windowSize int
	rmsFloor   float64
	logger     *zap.Logger

	mu       sync.Mutex
	scripted []entities.Analysis
}

var _ repositories.Classifier = (*MockClassifier)(nil)

// NewMockClassifier creates a mock species classifier for windowSize samples.
func NewMockClassifier(windowSize int, rmsFloor float64, logger *zap.Logger) *MockClassifier {
	return &MockClassifier{
		windowSize: windowSize,
		rmsFloor:   rmsFloor,
		logger:     logger,
	}
}

// Script queues analyses to be returned by subsequent Classify calls,
// oldest first.
func (m *MockClassifier) Script(results ...entities.Analysis) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted = append(m.scripted, results...)
}

// WindowSize implements repositories.Classifier.
func (m *MockClassifier) WindowSize() int {
	return m.windowSize
}

// Classify implements repositories.Classifier.
func (m *MockClassifier) Classify(_ context.Context, window []float64) (entities.Analysis, error) {
	if audio.RMS(window) < m.rmsFloor {
		return entities.NoAnalysis(), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.scripted) > 0 {
		next := m.scripted[0]
		m.scripted = m.scripted[1:]
		m.logger.Debug("mock species classifier returning scripted result",
			zap.String("classification", string(next.Classification)),
			zap.String("species", next.Species))
		return next, nil
	}

	return entities.NoAnalysis(), nil
}
