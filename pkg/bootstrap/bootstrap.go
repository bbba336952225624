package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coveyhq/covey/pkg/compose"
	"github.com/coveyhq/covey/pkg/log"
	"github.com/coveyhq/covey/pkg/peers"
	"github.com/coveyhq/covey/pkg/quorum"
	"github.com/coveyhq/covey/pkg/types"
)

// MetadataClient resolves the identity of the local instance.
// *metadata.Client satisfies it.
type MetadataClient interface {
	Identity(ctx context.Context) (types.InstanceIdentity, error)
}

// FleetInventory answers fleet membership questions.
// *inventory.Inventory satisfies it.
type FleetInventory interface {
	ResolveOwningSet(ctx context.Context, resourceGroup, instanceName string) (types.ScaleSetRef, error)
	Membership(ctx context.Context, resourceGroup, scaleSet string) (types.MembershipSnapshot, error)
	Size(ctx context.Context, resourceGroup, scaleSet string) (int, error)
}

// Runner executes one configuration pass. Every pass rebuilds all
// state from the metadata service and the control plane; nothing
// survives between runs.
type Runner struct {
	metadata  MetadataClient
	inventory FleetInventory
	opts      Options
	logger    zerolog.Logger
}

// NewRunner creates a Runner for one pass.
func NewRunner(meta MetadataClient, inv FleetInventory, opts Options) *Runner {
	runID := uuid.New().String()
	return &Runner{
		metadata:  meta,
		inventory: inv,
		opts:      opts,
		logger:    log.WithRunID(runID),
	}
}

// Run performs the whole pass in sequence: identity, owning set,
// membership, peer selection, quorum sizing, rendering. The first
// unrecoverable failure aborts the pass with nothing rendered; there
// is no partial output.
//
// Many instances run this same pass concurrently and independently
// during a scale event, with no coordination between them. Peer
// selection races are harmless (join is idempotent at the consensus
// layer); divergent bootstrap_expect observations are an accepted
// property of uncoordinated sizing.
func (r *Runner) Run(ctx context.Context) (types.RenderedConfig, error) {
	if err := r.opts.Validate(); err != nil {
		return types.RenderedConfig{}, err
	}

	if r.opts.SkipConsulConfig {
		// Supervisor descriptor only; no discovery needed.
		r.logger.Info().Msg("skipping consul config generation")
		return types.RenderedConfig{SupervisorConf: compose.RenderSupervisor(r.opts.composeOptions())}, nil
	}

	identity, err := r.metadata.Identity(ctx)
	if err != nil {
		return types.RenderedConfig{}, err
	}
	r.logger.Info().
		Str("vm", identity.ID).
		Str("private_ip", identity.PrivateIP).
		Msg("resolved instance identity")

	set, err := r.resolveSet(ctx, identity)
	if err != nil {
		return types.RenderedConfig{}, err
	}

	// A standalone instance has no peers to enumerate; keep the
	// snapshot empty and let sizing short-circuit to one.
	var membership types.MembershipSnapshot
	if set.Known() {
		membership, err = r.inventory.Membership(ctx, set.ResourceGroup, set.Name)
		if err != nil {
			return types.RenderedConfig{}, err
		}
	}

	plan, err := quorum.Plan(ctx, r.opts.Role, r.inventory, set, r.opts.RaftProtocol)
	if err != nil {
		return types.RenderedConfig{}, err
	}
	if peer, ok := peers.SelectPeer(identity.PrivateIP, membership); ok {
		plan.RetryJoinIP = &peer
		r.logger.Info().Str("peer", peer).Msg("selected join seed")
	}

	rendered, err := compose.Render(identity, plan, r.opts.composeOptions())
	if err != nil {
		return types.RenderedConfig{}, err
	}
	r.logger.Info().
		Str("scale_set", set.Name).
		Bool("server", plan.Role == types.RoleServer).
		Msg("rendered bootstrap artifacts")
	return rendered, nil
}

func (r *Runner) resolveSet(ctx context.Context, identity types.InstanceIdentity) (types.ScaleSetRef, error) {
	if r.opts.ScaleSetName != "" {
		return types.ScaleSetRef{
			ResourceGroup: identity.ResourceGroup,
			Name:          r.opts.ScaleSetName,
		}, nil
	}
	return r.inventory.ResolveOwningSet(ctx, identity.ResourceGroup, identity.ID)
}

// WriteArtifacts persists a rendered config to the configured
// directories: the agent document as consul.json under ConfigDir and
// the supervisor descriptor as consul.conf under SupervisorDir. It
// is only ever called with a complete RenderedConfig; ownership and
// permission policy beyond plain file bits belongs to the deployment
// tooling around covey.
func (r *Runner) WriteArtifacts(cfg types.RenderedConfig) error {
	if len(cfg.AgentConfig) > 0 {
		path := filepath.Join(r.opts.ConfigDir, "consul.json")
		if err := os.MkdirAll(r.opts.ConfigDir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.WriteFile(path, cfg.AgentConfig, 0644); err != nil {
			return fmt.Errorf("writing agent config: %w", err)
		}
		r.logger.Info().Str("path", path).Msg("wrote agent config")
	}

	path := filepath.Join(r.opts.SupervisorDir, "consul.conf")
	if err := os.MkdirAll(r.opts.SupervisorDir, 0755); err != nil {
		return fmt.Errorf("creating supervisor directory: %w", err)
	}
	if err := os.WriteFile(path, cfg.SupervisorConf, 0644); err != nil {
		return fmt.Errorf("writing supervisor descriptor: %w", err)
	}
	r.logger.Info().Str("path", path).Msg("wrote supervisor descriptor")
	return nil
}
