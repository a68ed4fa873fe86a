package batch

import "go.uber.org/zap"

type Stage int

const (
	StageIdle Stage = iota
	StageValidating
	StageTransforming
	StageArchiving
	StageReporting
	StageDone
	StageFailed
)

func (s Stage) String() string {
	return [...]string{"Idle", "Validating", "Transforming", "Archiving", "Reporting", "Done", "Failed"}[s]
}

func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// CanTransition reports whether a batch may move from s to next. Stages only
// move forward one step at a time; Failed is reachable from any live stage.
func (s Stage) CanTransition(next Stage) bool {
	if s.Terminal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	return next == s+1
}

type stateMachine struct {
	batchID string
	stage   Stage
	logger  *zap.Logger
}

func newStateMachine(batchID string, logger *zap.Logger) *stateMachine {
	return &stateMachine{
		batchID: batchID,
		stage:   StageIdle,
		logger:  logger,
	}
}

func (m *stateMachine) advance(next Stage) {
	if !m.stage.CanTransition(next) {
		m.logger.Error("Illegal batch transition",
			zap.String("batch_id", m.batchID),
			zap.Stringer("from", m.stage),
			zap.Stringer("to", next))
		return
	}

	m.logger.Debug("Batch stage",
		zap.String("batch_id", m.batchID),
		zap.Stringer("from", m.stage),
		zap.Stringer("to", next))
	m.stage = next
}

func (m *stateMachine) fail(err error) {
	if m.stage.Terminal() {
		return
	}

	m.logger.Error("Batch failed",
		zap.String("batch_id", m.batchID),
		zap.Stringer("stage", m.stage),
		zap.Error(err))
	m.stage = StageFailed
}
