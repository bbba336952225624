package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coveyhq/covey/pkg/bootstrap"
	"github.com/coveyhq/covey/pkg/inventory"
	"github.com/coveyhq/covey/pkg/metadata"
	"github.com/coveyhq/covey/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate consul agent config and supervisor descriptor",
	Long: `Generate runs one configuration pass on the local instance.

It queries the instance metadata service for the VM's identity,
resolves which scale set the VM belongs to (unless --scale-set-name
is given), counts the current members to size bootstrap_expect, picks
one peer as the retry_join seed, and writes the consul agent config
and the supervisord program descriptor.

Exactly one of --server or --client is required. Clients never size a
quorum and must name their scale set explicitly.`,
	RunE: runGenerate,
}

func init() {
	flags := generateCmd.Flags()

	flags.Bool("server", false, "Configure a consul server agent")
	flags.Bool("client", false, "Configure a consul client agent")

	flags.String("tenant-id", "", "Azure AD tenant of the service principal")
	flags.String("client-id", "", "Service principal application ID")
	flags.String("client-secret", "", "Service principal secret")
	flags.String("subscription-id", "", "Azure subscription ID")

	flags.String("scale-set-name", "", "Scale set name (skips discovery; required with --client)")
	flags.Int("raft-protocol", bootstrap.DefaultRaftProtocol, "Raft protocol version for the agent")

	flags.String("bin-dir", "", "Directory holding the consul binary")
	flags.String("config-dir", "", "Consul configuration directory")
	flags.String("data-dir", "", "Consul data directory")
	flags.String("log-dir", "", "Consul log file directory")
	flags.String("supervisor-dir", "", "Supervisord conf.d directory")
	flags.String("user", "", "Run-as user for the supervised agent")

	flags.String("options-file", "", "YAML file with site default options")
	flags.Bool("skip-consul-config", false, "Only emit the supervisor descriptor")
	flags.Bool("dry-run", false, "Print artifacts to stdout instead of writing files")

	for _, required := range []string{"tenant-id", "client-id", "client-secret", "subscription-id"} {
		_ = generateCmd.MarkFlagRequired(required)
	}
	generateCmd.MarkFlagsMutuallyExclusive("server", "client")
	generateCmd.MarkFlagsOneRequired("server", "client")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return err
	}

	meta := metadata.NewClient()
	lister, err := inventory.NewAzureLister(opts.Credentials)
	if err != nil {
		return fmt.Errorf("connecting to control plane: %w", err)
	}
	inv := inventory.New(lister, lister)

	runner := bootstrap.NewRunner(meta, inv, opts)
	rendered, err := runner.Run(context.Background())
	if err != nil {
		return err
	}

	if opts.DryRun {
		if len(rendered.AgentConfig) > 0 {
			fmt.Println("--- consul.json ---")
			fmt.Print(string(rendered.AgentConfig))
		}
		fmt.Println("--- consul.conf ---")
		fmt.Print(string(rendered.SupervisorConf))
		return nil
	}

	return runner.WriteArtifacts(rendered)
}

func optionsFromFlags(cmd *cobra.Command) (bootstrap.Options, error) {
	flags := cmd.Flags()
	opts := bootstrap.DefaultOptions()

	// Site defaults first, explicit flags after: flags win.
	if path, _ := flags.GetString("options-file"); path != "" {
		if err := bootstrap.MergeOptionsFile(&opts, path); err != nil {
			return bootstrap.Options{}, err
		}
	}

	if server, _ := flags.GetBool("server"); server {
		opts.Role = types.RoleServer
	} else {
		opts.Role = types.RoleClient
	}

	opts.Credentials.TenantID, _ = flags.GetString("tenant-id")
	opts.Credentials.ClientID, _ = flags.GetString("client-id")
	opts.Credentials.ClientSecret, _ = flags.GetString("client-secret")
	opts.Credentials.SubscriptionID, _ = flags.GetString("subscription-id")

	opts.ScaleSetName, _ = flags.GetString("scale-set-name")
	if flags.Changed("raft-protocol") {
		opts.RaftProtocol, _ = flags.GetInt("raft-protocol")
	}

	for flag, dst := range map[string]*string{
		"bin-dir":        &opts.BinDir,
		"config-dir":     &opts.ConfigDir,
		"data-dir":       &opts.DataDir,
		"log-dir":        &opts.LogDir,
		"supervisor-dir": &opts.SupervisorDir,
		"user":           &opts.User,
	} {
		if value, _ := flags.GetString(flag); value != "" {
			*dst = value
		}
	}

	opts.SkipConsulConfig, _ = flags.GetBool("skip-consul-config")
	opts.DryRun, _ = flags.GetBool("dry-run")

	if opts.Role == types.RoleClient && opts.ScaleSetName == "" {
		return bootstrap.Options{}, fmt.Errorf("--scale-set-name is required with --client")
	}

	return opts, opts.Validate()
}
