package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncEnqueued("task", "create")
		IncProcessed("task", "create")
		IncFailed("project", "update")
		IncDeadLettered("task", "delete")
		IncDrain()
		SetQueueDepth(3)
		IncReminderResync()
	})
}
