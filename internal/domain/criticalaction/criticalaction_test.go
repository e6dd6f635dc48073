package criticalaction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Lucasschwertz/procurement-core/internal/domain/criticalaction"
	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
)

func TestRequireBlocksCriticalWithoutConfirmation(t *testing.T) {
	t.Parallel()

	assert.False(t, criticalaction.Require(flowpolicy.ActionPushToErp, criticalaction.Confirmation{}))
}

func TestRequireAllowsCriticalWithFlag(t *testing.T) {
	t.Parallel()

	assert.True(t, criticalaction.Require(flowpolicy.ActionPushToErp, criticalaction.Confirmation{Flag: true}))
}

func TestRequireAllowsCriticalWithToken(t *testing.T) {
	t.Parallel()

	assert.True(t, criticalaction.Require(flowpolicy.ActionPushToErp, criticalaction.Confirmation{Token: "abc"}))
}

func TestRequireAlwaysAllowsNonCritical(t *testing.T) {
	t.Parallel()

	assert.True(t, criticalaction.Require(flowpolicy.ActionViewOrder, criticalaction.Confirmation{}))
}

func TestModeReflectsConfirmationSource(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "token", criticalaction.Confirmation{Token: "x"}.Mode())
	assert.Equal(t, "flag", criticalaction.Confirmation{Flag: true}.Mode())
	assert.Equal(t, "none", criticalaction.Confirmation{}.Mode())
}
