package qservice

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neuralground/qmk/internal/qmkapi"
)

func TestJobStoreCreateAndGet(t *testing.T) {
	assert := assert.New(t)

	js := NewJobStore()
	cancelled := false
	j := js.Create("session-1", func() { cancelled = true })

	assert.NotEmpty(j.ID)
	assert.Equal("session-1", j.SessionID)

	got, ok := js.Get(j.ID)
	assert.True(ok)
	assert.Same(j, got)

	_, ok = js.Get("no-such-job")
	assert.False(ok)

	state, _, _ := got.snapshot()
	assert.Equal(qmkapi.Queued, state)

	got.cancel()
	assert.True(cancelled)
}
