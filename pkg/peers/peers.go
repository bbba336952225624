package peers

import (
	"github.com/coveyhq/covey/pkg/log"
	"github.com/coveyhq/covey/pkg/types"
)

// SelectPeer picks one member of the snapshot to seed the agent's
// retry_join, skipping the instance's own address. It returns the
// last non-self entry in enumeration order; any non-self entry would
// do, since the agent's join protocol de-duplicates and needs only
// one live seed.
//
// ok is false when the snapshot is empty or contains only selfIP.
// That is the expected state for the first node of a new set, an
// informational condition rather than a failure.
func SelectPeer(selfIP string, members types.MembershipSnapshot) (peer string, ok bool) {
	for _, ip := range members.MemberIPs {
		if ip != selfIP {
			peer = ip
		}
	}
	if peer == "" {
		logger := log.WithComponent("peers")
		logger.Info().
			Str("self_ip", selfIP).
			Int("members", members.Count()).
			Msg("no peer to join, agent will form a new cluster")
		return "", false
	}
	return peer, true
}
