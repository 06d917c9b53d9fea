package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/woodguard/server/domain/entities"
	"github.com/woodguard/server/domain/repositories"
)

// DetectionService runs the classification strategy over analysis windows
// and persists accepted detections. It is shared by all sessions; the
// per-session state (buffer, gate, counters) stays with the connection.
type DetectionService struct {
	classifier repositories.Classifier
	detections repositories.DetectionRepository
	logger     *zap.Logger
}

// NewDetectionService creates the service.
func NewDetectionService(
	classifier repositories.Classifier,
	detections repositories.DetectionRepository,
	logger *zap.Logger,
) *DetectionService {
	return &DetectionService{
		classifier: classifier,
		detections: detections,
		logger:     logger,
	}
}

// WindowSize returns the classifier's required window size in samples.
func (s *DetectionService) WindowSize() int {
	return s.classifier.WindowSize()
}

// ClassifyWindow analyzes one window. Analysis failures are logged and
// mapped to the zero-confidence "none" outcome; they never propagate to
// the transport.
func (s *DetectionService) ClassifyWindow(ctx context.Context, window []float64) entities.Analysis {
	analysis, err := s.classifier.Classify(ctx, window)
	if err != nil {
		s.logger.Warn("window analysis failed, treating as no event", zap.Error(err))
		return entities.NoAnalysis()
	}
	return analysis
}

// RecordDetection persists an accepted detection. Persistence is best
// effort: a storage failure is logged and does not disturb the session.
func (s *DetectionService) RecordDetection(ctx context.Context, session *entities.Session, analysis entities.Analysis, chunk int) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	event := &entities.DetectionEvent{
		DeviceID:       session.DeviceID,
		SessionID:      session.ID,
		Classification: analysis.Classification,
		Confidence:     analysis.Confidence,
		Species:        analysis.Species,
		Metrics:        analysis.Metrics,
		Chunk:          chunk,
		DetectedAt:     time.Now(),
	}
	if err := s.detections.Record(ctx, event); err != nil {
		s.logger.Error("failed to record detection",
			zap.String("deviceID", session.DeviceID),
			zap.String("sessionID", session.ID),
			zap.Error(err))
	}
}
