package bootstrap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coveyhq/covey/pkg/compose"
	"github.com/coveyhq/covey/pkg/inventory"
	"github.com/coveyhq/covey/pkg/types"
)

// DefaultRaftProtocol is the raft protocol version written into the
// agent config unless overridden.
const DefaultRaftProtocol = 3

// Options is the fully resolved input of one configuration pass.
// Every ambient default (paths, raft protocol, run-as user) is fixed
// here, at the boundary, before any component runs; inner packages
// never consult the environment.
type Options struct {
	Role         types.Role
	Credentials  inventory.Credentials
	ScaleSetName string // known set name; skips owning-set discovery
	RaftProtocol int

	BinDir        string
	ConfigDir     string
	DataDir       string
	LogDir        string
	SupervisorDir string
	User          string

	SkipConsulConfig bool
	DryRun           bool
}

// DefaultOptions returns the stock filesystem layout for a consul
// agent managed by supervisord.
func DefaultOptions() Options {
	return Options{
		RaftProtocol:  DefaultRaftProtocol,
		BinDir:        "/usr/local/bin",
		ConfigDir:     "/etc/consul.d",
		DataDir:       "/var/lib/consul",
		LogDir:        "/var/log/consul",
		SupervisorDir: "/etc/supervisor/conf.d",
		User:          "consul",
	}
}

// fileOptions is the YAML shape of a site defaults file. Only fields
// that make sense as site-wide settings are accepted; role and
// credentials always come from the command line.
type fileOptions struct {
	RaftProtocol  int    `yaml:"raft_protocol"`
	BinDir        string `yaml:"bin_dir"`
	ConfigDir     string `yaml:"config_dir"`
	DataDir       string `yaml:"data_dir"`
	LogDir        string `yaml:"log_dir"`
	SupervisorDir string `yaml:"supervisor_dir"`
	User          string `yaml:"user"`
}

// MergeOptionsFile overlays a YAML site defaults file onto opts.
// File values replace defaults; flag values applied after this call
// win over both.
func MergeOptionsFile(opts *Options, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading options file: %w", err)
	}
	var file fileOptions
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parsing options file %s: %w", path, err)
	}

	if file.RaftProtocol != 0 {
		opts.RaftProtocol = file.RaftProtocol
	}
	if file.BinDir != "" {
		opts.BinDir = file.BinDir
	}
	if file.ConfigDir != "" {
		opts.ConfigDir = file.ConfigDir
	}
	if file.DataDir != "" {
		opts.DataDir = file.DataDir
	}
	if file.LogDir != "" {
		opts.LogDir = file.LogDir
	}
	if file.SupervisorDir != "" {
		opts.SupervisorDir = file.SupervisorDir
	}
	if file.User != "" {
		opts.User = file.User
	}
	return nil
}

// Validate rejects option sets that cannot produce a correct plan.
func (o Options) Validate() error {
	switch o.Role {
	case types.RoleServer, types.RoleClient:
	default:
		return fmt.Errorf("role must be %q or %q", types.RoleServer, types.RoleClient)
	}
	if o.RaftProtocol < 1 {
		return fmt.Errorf("raft protocol must be a positive integer, got %d", o.RaftProtocol)
	}
	return nil
}

func (o Options) composeOptions() compose.Options {
	return compose.Options{
		BinDir:    o.BinDir,
		ConfigDir: o.ConfigDir,
		DataDir:   o.DataDir,
		LogDir:    o.LogDir,
		User:      o.User,
	}
}
