// Package quorum derives the bootstrap_expect parameter from live
// scale set membership.
package quorum
