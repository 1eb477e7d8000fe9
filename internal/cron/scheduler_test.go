package cron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRecoverFromPanic(t *testing.T) {
	s := &Scheduler{logger: zap.NewNop()}
	assert.NotPanics(t, func() {
		defer s.recoverFromPanic("boom")
		panic("boom")
	})
}
