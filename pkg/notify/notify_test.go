package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userdeck/userdeck/pkg/interfaces"
	"github.com/userdeck/userdeck/pkg/logger"
	"github.com/userdeck/userdeck/pkg/types"
)

func TestShowAndActive(t *testing.T) {
	c := NewCenter(logger.NewTestLogger())

	first := c.Show(types.NotificationInfo, "3 users removed. Undo in 5s.",
		interfaces.ShowOptions{Actions: []string{"undo"}})
	c.Show(types.NotificationSuccess, "saved", interfaces.ShowOptions{})

	active := c.Active()
	require.Len(t, active, 2)
	assert.Equal(t, first, active[0].Handle, "oldest first")
	assert.Equal(t, []string{"undo"}, active[0].Actions)
	assert.Empty(t, active[1].Actions)
}

func TestUpdate(t *testing.T) {
	c := NewCenter(logger.NewTestLogger())
	handle := c.Show(types.NotificationInfo, "Undo in 5s.",
		interfaces.ShowOptions{Actions: []string{"undo"}})

	c.Update(handle, "Undo in 4s.", []string{"undo"})
	active := c.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Undo in 4s.", active[0].Message)

	// Withdrawing the action leaves the message in place.
	c.Update(handle, "Deleting...", nil)
	active = c.Active()
	require.Len(t, active, 1)
	assert.Empty(t, active[0].Actions)

	// Updating an unknown handle is a no-op.
	c.Update(types.NotificationHandle("gone"), "x", nil)
	assert.Len(t, c.Active(), 1)
}

func TestDismiss(t *testing.T) {
	c := NewCenter(logger.NewTestLogger())
	handle := c.Show(types.NotificationInfo, "pending", interfaces.ShowOptions{})

	c.Dismiss(handle)
	assert.Empty(t, c.Active())

	// Dismissing twice is safe.
	c.Dismiss(handle)
}

func TestAutoDismissAfterDuration(t *testing.T) {
	c := NewCenter(logger.NewTestLogger())
	c.Show(types.NotificationSuccess, "2 user(s) deleted permanently",
		interfaces.ShowOptions{Duration: 60 * time.Millisecond})

	require.Len(t, c.Active(), 1)
	assert.False(t, c.Active()[0].ExpiresAt.IsZero())

	require.Eventually(t, func() bool {
		return len(c.Active()) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestReusedHandleReplacesPrior(t *testing.T) {
	c := NewCenter(logger.NewTestLogger())
	fixed := types.NotificationHandle("bulk-delete")

	c.Show(types.NotificationInfo, "first", interfaces.ShowOptions{Handle: fixed, Duration: time.Hour})
	got := c.Show(types.NotificationWarning, "second", interfaces.ShowOptions{Handle: fixed})
	assert.Equal(t, fixed, got)

	active := c.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "second", active[0].Message)
	assert.Equal(t, types.NotificationWarning, active[0].Kind)
}
