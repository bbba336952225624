package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coveyhq/covey/pkg/log"
	"github.com/coveyhq/covey/pkg/types"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})
	os.Exit(m.Run())
}

type fakeMetadata struct {
	identity types.InstanceIdentity
	err      error
	calls    int
}

func (f *fakeMetadata) Identity(ctx context.Context) (types.InstanceIdentity, error) {
	f.calls++
	return f.identity, f.err
}

type fakeInventory struct {
	owningSet types.ScaleSetRef
	members   []string
	err       error

	resolveCalls    int
	membershipCalls int
	sizeCalls       int
}

func (f *fakeInventory) ResolveOwningSet(ctx context.Context, rg, instance string) (types.ScaleSetRef, error) {
	f.resolveCalls++
	if f.err != nil {
		return types.ScaleSetRef{}, f.err
	}
	return f.owningSet, nil
}

func (f *fakeInventory) Membership(ctx context.Context, rg, set string) (types.MembershipSnapshot, error) {
	f.membershipCalls++
	if f.err != nil {
		return types.MembershipSnapshot{}, f.err
	}
	return types.MembershipSnapshot{MemberIPs: f.members}, nil
}

func (f *fakeInventory) Size(ctx context.Context, rg, set string) (int, error) {
	f.sizeCalls++
	if set == types.UnknownScaleSet {
		return 1, nil
	}
	if f.err != nil {
		return 0, f.err
	}
	return len(f.members), nil
}

func testOptions(role types.Role) Options {
	opts := DefaultOptions()
	opts.Role = role
	return opts
}

func decode(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

// TestRunServerJoinsExistingSet is the two-node scale-out case: the
// pass sizes the quorum at two and seeds join from the other member
func TestRunServerJoinsExistingSet(t *testing.T) {
	meta := &fakeMetadata{identity: types.InstanceIdentity{
		ID: "vm-1", PrivateIP: "10.0.0.4", Location: "eastus", ResourceGroup: "rg1",
	}}
	inv := &fakeInventory{
		owningSet: types.ScaleSetRef{ResourceGroup: "rg1", Name: "vmss1"},
		members:   []string{"10.0.0.4", "10.0.0.5"},
	}

	runner := NewRunner(meta, inv, testOptions(types.RoleServer))
	rendered, err := runner.Run(context.Background())
	require.NoError(t, err)

	doc := decode(t, rendered.AgentConfig)
	assert.Equal(t, float64(2), doc["bootstrap_expect"])
	assert.Equal(t, []interface{}{"10.0.0.5"}, doc["retry_join"])
	assert.Equal(t, true, doc["server"])
	assert.Equal(t, "vm-1", doc["node_name"])
	assert.Equal(t, "eastus", doc["datacenter"])
}

// TestRunClientUnresolvedSet: a client whose instance belongs to no
// discoverable set degrades to a standalone plan without ever
// querying membership
func TestRunClientUnresolvedSet(t *testing.T) {
	meta := &fakeMetadata{identity: types.InstanceIdentity{
		ID: "vm-1", PrivateIP: "10.0.0.4", Location: "eastus", ResourceGroup: "rg1",
	}}
	inv := &fakeInventory{
		owningSet: types.ScaleSetRef{ResourceGroup: "rg1", Name: types.UnknownScaleSet},
	}

	runner := NewRunner(meta, inv, testOptions(types.RoleClient))
	rendered, err := runner.Run(context.Background())
	require.NoError(t, err)

	doc := decode(t, rendered.AgentConfig)
	_, hasExpect := doc["bootstrap_expect"]
	assert.False(t, hasExpect, "clients carry no bootstrap_expect")
	_, hasRetry := doc["retry_join"]
	assert.False(t, hasRetry, "standalone instance has no join seed")
	assert.Equal(t, false, doc["server"])
	assert.Zero(t, inv.membershipCalls, "membership must not be queried for an unknown set")
}

// TestRunServerEmptyMembership: a known set that lists zero members
// is a valid observation, not a failure
func TestRunServerEmptyMembership(t *testing.T) {
	meta := &fakeMetadata{identity: types.InstanceIdentity{
		ID: "vm-1", PrivateIP: "10.0.0.4", Location: "eastus", ResourceGroup: "rg1",
	}}
	inv := &fakeInventory{
		owningSet: types.ScaleSetRef{ResourceGroup: "rg1", Name: "vmss1"},
		members:   nil,
	}

	runner := NewRunner(meta, inv, testOptions(types.RoleServer))
	rendered, err := runner.Run(context.Background())
	require.NoError(t, err)

	doc := decode(t, rendered.AgentConfig)
	assert.Equal(t, float64(0), doc["bootstrap_expect"])
	_, hasRetry := doc["retry_join"]
	assert.False(t, hasRetry)
}

// TestRunMetadataFailureWritesNothing: the pass aborts before any
// artifact reaches the disk
func TestRunMetadataFailureWritesNothing(t *testing.T) {
	meta := &fakeMetadata{err: fmt.Errorf("endpoint returned garbage")}
	inv := &fakeInventory{}

	opts := testOptions(types.RoleServer)
	opts.ConfigDir = filepath.Join(t.TempDir(), "consul.d")
	opts.SupervisorDir = filepath.Join(t.TempDir(), "conf.d")

	runner := NewRunner(meta, inv, opts)
	_, err := runner.Run(context.Background())
	require.Error(t, err)

	_, statErr := os.Stat(opts.ConfigDir)
	assert.True(t, os.IsNotExist(statErr), "config dir must not exist after a failed pass")
	_, statErr = os.Stat(opts.SupervisorDir)
	assert.True(t, os.IsNotExist(statErr), "supervisor dir must not exist after a failed pass")
	assert.Zero(t, inv.resolveCalls, "pass must abort on the first failure")
}

func TestRunInventoryFailure(t *testing.T) {
	meta := &fakeMetadata{identity: types.InstanceIdentity{
		ID: "vm-1", PrivateIP: "10.0.0.4", Location: "eastus", ResourceGroup: "rg1",
	}}
	inv := &fakeInventory{err: fmt.Errorf("throttled")}

	runner := NewRunner(meta, inv, testOptions(types.RoleServer))
	_, err := runner.Run(context.Background())
	require.Error(t, err)
}

// TestRunExplicitScaleSetName skips owning-set discovery
func TestRunExplicitScaleSetName(t *testing.T) {
	meta := &fakeMetadata{identity: types.InstanceIdentity{
		ID: "vm-1", PrivateIP: "10.0.0.4", Location: "eastus", ResourceGroup: "rg1",
	}}
	inv := &fakeInventory{members: []string{"10.0.0.4", "10.0.0.5", "10.0.0.6"}}

	opts := testOptions(types.RoleServer)
	opts.ScaleSetName = "vmss1"

	runner := NewRunner(meta, inv, opts)
	rendered, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, inv.resolveCalls, "explicit set name must skip discovery")
	doc := decode(t, rendered.AgentConfig)
	assert.Equal(t, float64(3), doc["bootstrap_expect"])
}

// TestRunSkipConsulConfig emits only the supervisor descriptor and
// performs no discovery at all
func TestRunSkipConsulConfig(t *testing.T) {
	meta := &fakeMetadata{}
	inv := &fakeInventory{}

	opts := testOptions(types.RoleServer)
	opts.SkipConsulConfig = true

	runner := NewRunner(meta, inv, opts)
	rendered, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, rendered.AgentConfig)
	assert.Contains(t, string(rendered.SupervisorConf), "[program:consul]")
	assert.Zero(t, meta.calls)
	assert.Zero(t, inv.resolveCalls+inv.membershipCalls+inv.sizeCalls)
}

func TestWriteArtifacts(t *testing.T) {
	meta := &fakeMetadata{identity: types.InstanceIdentity{
		ID: "vm-1", PrivateIP: "10.0.0.4", Location: "eastus", ResourceGroup: "rg1",
	}}
	inv := &fakeInventory{
		owningSet: types.ScaleSetRef{ResourceGroup: "rg1", Name: "vmss1"},
		members:   []string{"10.0.0.4", "10.0.0.5"},
	}

	opts := testOptions(types.RoleServer)
	opts.ConfigDir = filepath.Join(t.TempDir(), "consul.d")
	opts.SupervisorDir = filepath.Join(t.TempDir(), "conf.d")

	runner := NewRunner(meta, inv, opts)
	rendered, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, runner.WriteArtifacts(rendered))

	agent, err := os.ReadFile(filepath.Join(opts.ConfigDir, "consul.json"))
	require.NoError(t, err)
	assert.Equal(t, rendered.AgentConfig, agent)

	supervisor, err := os.ReadFile(filepath.Join(opts.SupervisorDir, "consul.conf"))
	require.NoError(t, err)
	assert.Equal(t, rendered.SupervisorConf, supervisor)
}

func TestValidate(t *testing.T) {
	opts := DefaultOptions()
	assert.Error(t, opts.Validate(), "missing role must be rejected")

	opts.Role = types.RoleServer
	assert.NoError(t, opts.Validate())

	opts.RaftProtocol = 0
	assert.Error(t, opts.Validate(), "raft protocol must be positive")
}

func TestMergeOptionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "covey.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
raft_protocol: 2
data_dir: /mnt/consul
user: svc-consul
`), 0644))

	opts := DefaultOptions()
	require.NoError(t, MergeOptionsFile(&opts, path))

	assert.Equal(t, 2, opts.RaftProtocol)
	assert.Equal(t, "/mnt/consul", opts.DataDir)
	assert.Equal(t, "svc-consul", opts.User)
	// untouched fields keep their defaults
	assert.Equal(t, "/etc/consul.d", opts.ConfigDir)
}

func TestMergeOptionsFileMissing(t *testing.T) {
	opts := DefaultOptions()
	assert.Error(t, MergeOptionsFile(&opts, filepath.Join(t.TempDir(), "absent.yaml")))
}
