package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/coveyhq/covey/pkg/log"
	"github.com/coveyhq/covey/pkg/types"
)

// ErrInventoryUnavailable indicates a control-plane call needed to
// complete the plan failed. An empty listing is not this error: zero
// members is a valid answer.
var ErrInventoryUnavailable = errors.New("fleet inventory unavailable")

// SetLister enumerates the scale sets of a resource group.
type SetLister interface {
	ListScaleSets(ctx context.Context, resourceGroup string) ([]string, error)
}

// InstanceLister enumerates the members of one named scale set, by
// VM name and by private IP.
type InstanceLister interface {
	ListInstanceNames(ctx context.Context, resourceGroup, scaleSet string) ([]string, error)
	ListPrivateIPs(ctx context.Context, resourceGroup, scaleSet string) ([]string, error)
}

// Inventory answers membership questions about the fleet. The two
// lister seams keep the owning-set scan a pure function of list
// calls, so it is testable without a live control plane.
type Inventory struct {
	sets      SetLister
	instances InstanceLister
}

// New creates an Inventory over the given listers.
func New(sets SetLister, instances InstanceLister) *Inventory {
	return &Inventory{sets: sets, instances: instances}
}

// ResolveOwningSet scans every scale set in the resource group for
// the given instance and returns the first set containing it, or a
// ref with types.UnknownScaleSet when the scan is exhausted.
//
// The scan is O(sets x instances-per-set) against an eventually
// consistent listing API. That is acceptable for a once-per-start
// lookup, but the two nested enumerations are not atomic: a set
// deleted between listing it and listing its instances reads as "no
// match in this set", never as a fatal error.
func (inv *Inventory) ResolveOwningSet(ctx context.Context, resourceGroup, instanceName string) (types.ScaleSetRef, error) {
	logger := log.WithComponent("inventory")

	names, err := inv.sets.ListScaleSets(ctx, resourceGroup)
	if err != nil {
		return types.ScaleSetRef{}, fmt.Errorf("%w: listing scale sets in %s: %v", ErrInventoryUnavailable, resourceGroup, err)
	}

	for _, set := range names {
		members, err := inv.instances.ListInstanceNames(ctx, resourceGroup, set)
		if err != nil {
			logger.Warn().
				Str("scale_set", set).
				Err(err).
				Msg("could not list instances, skipping set")
			continue
		}
		for _, name := range members {
			if name == instanceName {
				logger.Info().
					Str("scale_set", set).
					Str("instance", instanceName).
					Msg("resolved owning scale set")
				return types.ScaleSetRef{ResourceGroup: resourceGroup, Name: set}, nil
			}
		}
	}

	logger.Info().
		Str("instance", instanceName).
		Str("resource_group", resourceGroup).
		Msg("instance belongs to no discoverable scale set, planning standalone")
	return types.ScaleSetRef{ResourceGroup: resourceGroup, Name: types.UnknownScaleSet}, nil
}

// Membership captures the current member private IPs of a scale set
// from a single listing call. An empty result is a valid snapshot
// with count zero.
func (inv *Inventory) Membership(ctx context.Context, resourceGroup, scaleSet string) (types.MembershipSnapshot, error) {
	ips, err := inv.instances.ListPrivateIPs(ctx, resourceGroup, scaleSet)
	if err != nil {
		return types.MembershipSnapshot{}, fmt.Errorf("%w: listing members of %s/%s: %v", ErrInventoryUnavailable, resourceGroup, scaleSet, err)
	}
	return types.MembershipSnapshot{MemberIPs: ips}, nil
}

// Size returns the current member count of a scale set. For the
// unknown set it short-circuits to 1 without any API call: a
// standalone instance always plans for a quorum of one.
func (inv *Inventory) Size(ctx context.Context, resourceGroup, scaleSet string) (int, error) {
	if scaleSet == types.UnknownScaleSet {
		return 1, nil
	}
	snapshot, err := inv.Membership(ctx, resourceGroup, scaleSet)
	if err != nil {
		return 0, err
	}
	return snapshot.Count(), nil
}
