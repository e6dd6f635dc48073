package flowpolicy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
)

func TestPrimaryActionIsAlwaysAllowed(t *testing.T) {
	t.Parallel()

	stages := []flowpolicy.Stage{
		flowpolicy.StageSolicitacao,
		flowpolicy.StageCotacao,
		flowpolicy.StageDecisao,
		flowpolicy.StageOrdemCompra,
		flowpolicy.StageFornecedor,
	}

	statuses := []string{
		"pending_rfq", "in_rfq", "awarded", "ordered", "partially_received", "received", "cancelled",
		"draft", "open", "collecting_quotes", "closed",
		"converted_to_po",
		"sent_to_erp", "erp_accepted", "approved", "erp_error",
		"pending", "opened", "submitted", "expired",
	}

	for _, stage := range stages {
		for _, status := range statuses {
			policy := flowpolicy.PolicyFor(stage, status)
			if policy.PrimaryAction == "" {
				continue
			}

			assert.Truef(t, policy.ActionAllowed(policy.PrimaryAction),
				"primary action %q not in allowed_actions for (%s, %s)", policy.PrimaryAction, stage, status)
		}
	}
}

func TestUnknownPairDeniesAll(t *testing.T) {
	t.Parallel()

	policy := flowpolicy.PolicyFor(flowpolicy.StageOrdemCompra, "nonexistent_status")
	assert.Empty(t, policy.AllowedActions)
	assert.Empty(t, policy.PrimaryAction)
	assert.False(t, policy.ActionAllowed(flowpolicy.ActionPushToErp))
}

func TestDeleteDeniedWhenErpAccepted(t *testing.T) {
	t.Parallel()

	allowed := flowpolicy.AllowedActions(flowpolicy.StageOrdemCompra, "erp_accepted")
	assert.Contains(t, allowed, flowpolicy.ActionViewOrder)
	assert.Contains(t, allowed, flowpolicy.ActionTrackReceipt)
	assert.NotContains(t, allowed, flowpolicy.ActionCancelPo)
	assert.Equal(t, flowpolicy.ActionTrackReceipt, flowpolicy.PrimaryAction(flowpolicy.StageOrdemCompra, "erp_accepted"))
}

func TestProcessStepsMarksCurrentAndFuture(t *testing.T) {
	t.Parallel()

	steps := flowpolicy.ProcessSteps(flowpolicy.StageDecisao)

	want := map[flowpolicy.Stage]flowpolicy.ProcessStepState{
		flowpolicy.StageSolicitacao: flowpolicy.StepCompleted,
		flowpolicy.StageCotacao:     flowpolicy.StepCompleted,
		flowpolicy.StageDecisao:     flowpolicy.StepCurrent,
		flowpolicy.StageOrdemCompra: flowpolicy.StepFuture,
	}

	for _, step := range steps {
		assert.Equal(t, want[step.Stage], step.State, "stage %s", step.Stage)
	}
}
