package quorum

import (
	"context"

	"github.com/coveyhq/covey/pkg/log"
	"github.com/coveyhq/covey/pkg/types"
)

// Sizer reports the current member count of a scale set.
// *inventory.Inventory satisfies it.
type Sizer interface {
	Size(ctx context.Context, resourceGroup, scaleSet string) (int, error)
}

// Plan derives the quorum parameters for one agent start. Clients
// never bootstrap a quorum, so their plan carries no expectation and
// makes no inventory call. For servers, bootstrap_expect is the
// member count as observed at this instant; it is not re-validated
// afterward. During a concurrent scale-out, different nodes may
// observe different counts and plan different expectations — an
// accepted property of uncoordinated per-node sizing, not something
// this layer papers over.
func Plan(ctx context.Context, role types.Role, sizer Sizer, set types.ScaleSetRef, raftProtocol int) (types.BootstrapPlan, error) {
	plan := types.BootstrapPlan{
		Role:         role,
		RaftProtocol: raftProtocol,
	}
	if role != types.RoleServer {
		return plan, nil
	}

	count, err := sizer.Size(ctx, set.ResourceGroup, set.Name)
	if err != nil {
		return types.BootstrapPlan{}, err
	}
	plan.BootstrapExpect = &count

	logger := log.WithComponent("quorum")
	logger.Info().
		Str("scale_set", set.Name).
		Int("bootstrap_expect", count).
		Msg("sized server quorum from current membership")
	return plan, nil
}
