/*
Package types defines the core data structures used throughout Covey.

All entities here are constructed fresh at process start, held in
memory for the duration of one configuration pass, and discarded after
the artifacts are written. There is no cross-run state: a later pass
rebuilds everything from the metadata service and the control plane.

The main types are:

  - InstanceIdentity: who am I (VM name, private IP, region, group)
  - ScaleSetRef: which scale set owns me, possibly UnknownScaleSet
  - MembershipSnapshot: who my peers are, as of one inventory query
  - BootstrapPlan: the derived consul join/quorum parameters
  - RenderedConfig: the two textual artifacts, ready for the disk

Optional values use pointers: a nil BootstrapExpect means "client
agent, never bootstraps a quorum", a nil RetryJoinIP means "no peer
found, form a new cluster". Neither is an error state.
*/
package types
