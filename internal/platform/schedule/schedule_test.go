package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("0 3 * * *"))
	assert.NoError(t, Validate("@hourly"))
	assert.Error(t, Validate("every day"))
	assert.Error(t, Validate("* * * * * *"))
}

func TestScheduler_Add(t *testing.T) {
	s := New(nil)

	require.NoError(t, s.Add("blacklist-cleanup", "@hourly", func(context.Context) {}))
	assert.Error(t, s.Add("broken", "not a schedule", func(context.Context) {}))
	assert.Equal(t, 1, s.Len())
}

func TestScheduler_StopCancelsJobContext(t *testing.T) {
	s := New(nil)
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	select {
	case <-s.ctx.Done():
	default:
		t.Fatal("job context still live after Stop")
	}
	// A second Stop is a no-op.
	s.Stop(ctx)
}
