package batch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestStage_CanTransition(t *testing.T) {
	assert.True(t, StageIdle.CanTransition(StageValidating))
	assert.True(t, StageValidating.CanTransition(StageTransforming))
	assert.True(t, StageTransforming.CanTransition(StageArchiving))
	assert.True(t, StageArchiving.CanTransition(StageReporting))
	assert.True(t, StageReporting.CanTransition(StageDone))

	assert.False(t, StageValidating.CanTransition(StageArchiving))
	assert.False(t, StageArchiving.CanTransition(StageTransforming))
	assert.False(t, StageDone.CanTransition(StageFailed))
	assert.False(t, StageFailed.CanTransition(StageIdle))

	for _, s := range []Stage{StageIdle, StageValidating, StageTransforming, StageArchiving, StageReporting} {
		assert.True(t, s.CanTransition(StageFailed), s.String())
	}
}

func TestStateMachine(t *testing.T) {
	sm := newStateMachine("batch", zaptest.NewLogger(t))

	sm.advance(StageValidating)
	sm.advance(StageArchiving) // skipped stage is ignored
	assert.Equal(t, StageValidating, sm.stage)

	sm.advance(StageTransforming)
	sm.fail(errors.New("disk full"))
	assert.Equal(t, StageFailed, sm.stage)

	sm.advance(StageArchiving)
	assert.Equal(t, StageFailed, sm.stage)
	assert.Equal(t, "Failed", sm.stage.String())
}
