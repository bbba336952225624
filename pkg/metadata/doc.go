/*
Package metadata resolves the identity of the VM covey runs on from
the Azure Instance Metadata Service (IMDS).

IMDS is a link-local, unauthenticated HTTP endpoint; the only
handshake is the mandatory "Metadata: true" request header. The
client performs a single GET per pass and treats every failure mode
(unreachable endpoint, non-200 status, malformed or incomplete JSON)
as the one fatal condition ErrMetadataUnavailable. A pass that cannot
establish its own identity has nothing useful to generate.
*/
package metadata
