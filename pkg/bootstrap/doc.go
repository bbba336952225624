/*
Package bootstrap orchestrates one complete configuration pass.

A pass is a single logical thread of blocking calls executed in
sequence: resolve identity from the metadata service, resolve the
owning scale set and its membership from the control plane, pick a
join seed, size the quorum, render the artifacts. It either completes
wholly or exits on the first unrecoverable failure — a half-built
configuration is never written.

The Runner takes its collaborators as interfaces so a pass can run
against fakes in tests, and takes a fully resolved Options struct so
no inner component reads ambient state.
*/
package bootstrap
