package compose

import (
	"encoding/json"
	"fmt"

	"github.com/coveyhq/covey/pkg/types"
)

// Options are the ambient settings the artifacts embed: filesystem
// layout for the agent and the identity it runs under. All defaults
// are resolved by the caller at the boundary; nothing here reads the
// environment.
type Options struct {
	BinDir    string // directory holding the consul binary
	ConfigDir string // consul -config-dir
	DataDir   string // consul -data-dir
	LogDir    string // stdout/stderr log file directory
	User      string // run-as user for the supervised process
}

// agentConfig is the consul agent configuration document. Field
// order is the wire order; retry_join and bootstrap_expect are
// omitted entirely when unset rather than emitted empty.
type agentConfig struct {
	AdvertiseAddr   string   `json:"advertise_addr"`
	BindAddr        string   `json:"bind_addr"`
	BootstrapExpect *int     `json:"bootstrap_expect,omitempty"`
	ClientAddr      string   `json:"client_addr"`
	Datacenter      string   `json:"datacenter"`
	NodeName        string   `json:"node_name"`
	RetryJoin       []string `json:"retry_join,omitempty"`
	Server          bool     `json:"server"`
	UI              bool     `json:"ui"`
	RaftProtocol    int      `json:"raft_protocol"`
}

const supervisorTemplate = `[program:consul]
command=%s/consul agent -config-dir %s -data-dir %s
stdout_logfile=%s/consul-stdout.log
stderr_logfile=%s/consul-stderr.log
numprocs=1
autostart=true
autorestart=true
stopsignal=INT
user=%s
`

// Render produces both artifacts from an identity and a plan. It is
// a pure function: identical inputs yield byte-identical output, and
// nothing is written anywhere — the caller owns file emission.
func Render(identity types.InstanceIdentity, plan types.BootstrapPlan, opts Options) (types.RenderedConfig, error) {
	cfg := agentConfig{
		AdvertiseAddr:   identity.PrivateIP,
		BindAddr:        identity.PrivateIP,
		BootstrapExpect: plan.BootstrapExpect,
		ClientAddr:      "0.0.0.0",
		Datacenter:      identity.Location,
		NodeName:        identity.ID,
		Server:          plan.Role == types.RoleServer,
		UI:              true,
		RaftProtocol:    plan.RaftProtocol,
	}
	if plan.RetryJoinIP != nil {
		cfg.RetryJoin = []string{*plan.RetryJoinIP}
	}

	doc, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return types.RenderedConfig{}, fmt.Errorf("encoding agent config: %w", err)
	}
	doc = append(doc, '\n')

	supervisor := fmt.Sprintf(supervisorTemplate,
		opts.BinDir, opts.ConfigDir, opts.DataDir,
		opts.LogDir, opts.LogDir, opts.User)

	return types.RenderedConfig{
		AgentConfig:    doc,
		SupervisorConf: []byte(supervisor),
	}, nil
}

// RenderSupervisor produces only the supervisord descriptor, for runs
// that bypass consul config generation.
func RenderSupervisor(opts Options) []byte {
	return []byte(fmt.Sprintf(supervisorTemplate,
		opts.BinDir, opts.ConfigDir, opts.DataDir,
		opts.LogDir, opts.LogDir, opts.User))
}
