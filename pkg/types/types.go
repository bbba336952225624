package types

// Role determines whether the generated agent runs as a consul
// server (participates in the quorum) or a client.
type Role string

const (
	RoleServer Role = "server"
	RoleClient Role = "client"
)

// UnknownScaleSet is the terminal name for an instance that belongs
// to no discoverable scale set. It is a valid value, not an error:
// downstream sizing treats it as a standalone single-node case.
const UnknownScaleSet = "unknown"

// InstanceIdentity is the snapshot of facts the instance metadata
// service reports about the VM covey is running on. It is fetched
// once per pass and never persisted.
type InstanceIdentity struct {
	ID            string // VM name, becomes the consul node name
	PrivateIP     string // primary NIC private address
	Location      string // Azure region, becomes the datacenter
	ResourceGroup string
}

// ScaleSetRef names a scale set within a resource group. Name is
// UnknownScaleSet when no owning set could be resolved.
type ScaleSetRef struct {
	ResourceGroup string
	Name          string
}

// Known reports whether the ref points at a real scale set.
func (r ScaleSetRef) Known() bool {
	return r.Name != UnknownScaleSet
}

// MembershipSnapshot is a point-in-time view of a scale set's member
// private IPs, captured from a single inventory query. A later query
// may disagree; callers must not assume the view is stable.
type MembershipSnapshot struct {
	MemberIPs []string
}

// Count returns the number of members in the snapshot. Zero is a
// valid count and distinct from a failed query.
func (m MembershipSnapshot) Count() int {
	return len(m.MemberIPs)
}

// BootstrapPlan carries the derived join and quorum parameters for
// one agent start.
//
// Invariants: BootstrapExpect is non-nil iff Role is RoleServer;
// RetryJoinIP is non-nil iff the membership snapshot contained an
// address distinct from the instance's own.
type BootstrapPlan struct {
	Role            Role
	RetryJoinIP     *string
	BootstrapExpect *int
	RaftProtocol    int
}

// RenderedConfig holds the two generated artifacts: the consul agent
// configuration document and the supervisord program descriptor.
// Both are complete before anything touches the filesystem.
type RenderedConfig struct {
	AgentConfig    []byte
	SupervisorConf []byte
}
