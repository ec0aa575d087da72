// Package scm models tenant configuration objects for Strata Cloud Manager
// style tenants: the closed set of pushable object kinds, their dependency
// ordering, opaque payloads, and the API surface the push engine drives.
//
// Wire formats of the vendor API are out of scope; Client is the boundary
// behind which a REST implementation (or the in-memory Inventory) lives.
package scm

import (
	"fmt"

	"github.com/panshift/panshift/pkg/util"
)

// ItemKind identifies a pushable configuration object type. The set is
// closed: selections carrying any other kind string fail ParseItemKind and
// surface as per-item errors instead of being silently bucketed.
type ItemKind string

const (
	KindTag               ItemKind = "tag"
	KindAddress           ItemKind = "address"
	KindService           ItemKind = "service"
	KindAddressGroup      ItemKind = "address_group"
	KindServiceGroup      ItemKind = "service_group"
	KindApplicationFilter ItemKind = "application_filter"
	KindApplicationGroup  ItemKind = "application_group"

	KindExternalDynamicList ItemKind = "external_dynamic_list"
	KindSchedule            ItemKind = "schedule"
	KindHIPObject           ItemKind = "hip_object"
	KindHIPProfile          ItemKind = "hip_profile"
	KindDecryptionProfile   ItemKind = "decryption_profile"
	KindLogForwarding       ItemKind = "log_forwarding"

	KindAntivirusProfile     ItemKind = "antivirus_profile"
	KindAntiSpywareProfile   ItemKind = "anti_spyware_profile"
	KindVulnerabilityProfile ItemKind = "vulnerability_profile"
	KindURLFilteringProfile  ItemKind = "url_filtering_profile"
	KindFileBlockingProfile  ItemKind = "file_blocking_profile"
	KindWildfireProfile      ItemKind = "wildfire_profile"
	KindProfileGroup         ItemKind = "profile_group"

	KindIKECryptoProfile   ItemKind = "ike_crypto_profile"
	KindIKEGateway         ItemKind = "ike_gateway"
	KindIPSecCryptoProfile ItemKind = "ipsec_crypto_profile"
	KindIPSecTunnel        ItemKind = "ipsec_tunnel"
	KindServiceConnection  ItemKind = "service_connection"
	KindRemoteNetwork      ItemKind = "remote_network"

	KindSecurityRule ItemKind = "security_rule"
	KindNATRule      ItemKind = "nat_rule"

	KindCertificateProfile    ItemKind = "certificate_profile"
	KindAuthenticationProfile ItemKind = "authentication_profile"
)

// ============================================================================
// Push Ordering
// ============================================================================

// Buckets group kinds so that referenced objects land before their referrers.
// Lower bucket pushes first; subrank orders kinds inside a bucket; items of
// the same kind keep selection order.
const (
	bucketTags = iota
	bucketAtoms
	bucketGroups
	bucketAppFilters
	bucketAppGroups
	bucketOther
	bucketProfiles
	bucketInfra
	bucketRules
	bucketRest
)

type rank struct {
	bucket  int
	subrank int
}

var kindRanks = map[ItemKind]rank{
	KindTag: {bucketTags, 0},

	KindAddress: {bucketAtoms, 0},
	KindService: {bucketAtoms, 1},

	KindAddressGroup: {bucketGroups, 0},
	KindServiceGroup: {bucketGroups, 1},

	KindApplicationFilter: {bucketAppFilters, 0},
	KindApplicationGroup:  {bucketAppGroups, 0},

	KindExternalDynamicList: {bucketOther, 0},
	KindSchedule:            {bucketOther, 1},
	KindHIPObject:           {bucketOther, 2},
	KindHIPProfile:          {bucketOther, 3},
	KindDecryptionProfile:   {bucketOther, 4},
	KindLogForwarding:       {bucketOther, 5},

	KindAntivirusProfile:     {bucketProfiles, 0},
	KindAntiSpywareProfile:   {bucketProfiles, 1},
	KindVulnerabilityProfile: {bucketProfiles, 2},
	KindURLFilteringProfile:  {bucketProfiles, 3},
	KindFileBlockingProfile:  {bucketProfiles, 4},
	KindWildfireProfile:      {bucketProfiles, 5},
	KindProfileGroup:         {bucketProfiles, 6},

	// Infra subranks come from InfraChainOrder at runtime.

	KindSecurityRule: {bucketRules, 0},
	KindNATRule:      {bucketRules, 1},

	KindCertificateProfile:    {bucketRest, 0},
	KindAuthenticationProfile: {bucketRest, 1},
}

// infraChain lists the infrastructure kinds in declaration order. Dependency
// edges point at the kinds a given kind must follow.
var infraChain = []ItemKind{
	KindIKECryptoProfile,
	KindIKEGateway,
	KindIPSecCryptoProfile,
	KindIPSecTunnel,
	KindServiceConnection,
	KindRemoteNetwork,
}

var infraDeps = map[ItemKind][]ItemKind{
	KindIKEGateway:        {KindIKECryptoProfile},
	KindIPSecTunnel:       {KindIPSecCryptoProfile, KindIKEGateway},
	KindServiceConnection: {KindIPSecTunnel},
	KindRemoteNetwork:     {KindIPSecTunnel},
}

// ParseItemKind validates a kind string against the closed set.
func ParseItemKind(s string) (ItemKind, error) {
	k := ItemKind(s)
	if _, ok := kindRanks[k]; ok {
		return k, nil
	}
	for _, infra := range infraChain {
		if k == infra {
			return k, nil
		}
	}
	return "", fmt.Errorf("scm: %q: %w", s, util.ErrUnknownKind)
}

// KnownKind reports whether k is in the closed set.
func KnownKind(k ItemKind) bool {
	_, err := ParseItemKind(string(k))
	return err == nil
}

// Rank returns the (bucket, subrank) sort key for a kind. Infra kinds take
// their subrank from the resolved chain order. Unknown kinds report ok=false
// and must be rejected by the caller, never silently bucketed.
func Rank(k ItemKind, infraOrder map[ItemKind]int) (bucket, subrank int, ok bool) {
	if r, found := kindRanks[k]; found {
		return r.bucket, r.subrank, true
	}
	if sub, found := infraOrder[k]; found {
		return bucketInfra, sub, true
	}
	return 0, 0, false
}

// InfraChainOrder resolves the push order of the infrastructure kinds with a
// worklist over the dependency edges. Ties break by declaration order. A
// dependency cycle degrades to declaration order for the remaining kinds and
// returns an error describing the cycle members; callers record it and
// continue.
func InfraChainOrder() (map[ItemKind]int, error) {
	return infraOrderFrom(infraChain, infraDeps)
}

func infraOrderFrom(chain []ItemKind, deps map[ItemKind][]ItemKind) (map[ItemKind]int, error) {
	inChain := make(map[ItemKind]bool, len(chain))
	for _, k := range chain {
		inChain[k] = true
	}

	order := make(map[ItemKind]int, len(chain))
	placed := make(map[ItemKind]bool, len(chain))
	next := 0

	// Worklist: each pass places every kind whose dependencies are all
	// placed, scanning in declaration order. No recursion, no stack.
	for len(order) < len(chain) {
		progressed := false
		for _, k := range chain {
			if placed[k] {
				continue
			}
			ready := true
			for _, d := range deps[k] {
				if inChain[d] && !placed[d] {
					ready = false
					break
				}
			}
			if ready {
				order[k] = next
				next++
				placed[k] = true
				progressed = true
			}
		}
		if !progressed {
			// Cycle: fall back to declaration order for whatever is left.
			var stuck []ItemKind
			for _, k := range chain {
				if !placed[k] {
					stuck = append(stuck, k)
					order[k] = next
					next++
					placed[k] = true
				}
			}
			return order, fmt.Errorf("scm: dependency cycle among %v, using declaration order", stuck)
		}
	}
	return order, nil
}

// ============================================================================
// Reference Fields
// ============================================================================

// referenceFields lists, per kind, the payload fields that hold names of
// other objects. Rename repair rewrites these; list fields hold []string,
// scalar fields hold string.
var referenceFields = map[ItemKind][]string{
	KindAddress:           {"tag"},
	KindService:           {"tag"},
	KindAddressGroup:      {"static", "tag"},
	KindServiceGroup:      {"members", "tag"},
	KindApplicationGroup:  {"members"},
	KindProfileGroup:      {"members"},
	KindHIPProfile:        {"match"},
	KindSecurityRule:      {"source", "destination", "service", "application", "tag"},
	KindNATRule:           {"source", "destination", "service", "tag"},
	KindIKEGateway:        {"ike_crypto_profile"},
	KindIPSecTunnel:       {"ike_gateway", "ipsec_crypto_profile"},
	KindServiceConnection: {"ipsec_tunnel"},
	KindRemoteNetwork:     {"ipsec_tunnel"},
}

// ReferenceFields returns the payload fields of k that reference other
// objects by name. Nil when k carries none.
func ReferenceFields(k ItemKind) []string {
	return referenceFields[k]
}

// memberFields maps group kinds to the payload field listing their members.
// Items destined to a new snippet are checked against these: a brand-new
// snippet is empty, so unseen members cannot already exist there.
var memberFields = map[ItemKind]string{
	KindAddressGroup:     "static",
	KindServiceGroup:     "members",
	KindApplicationGroup: "members",
}

// MemberField returns the member list field for group kinds.
func MemberField(k ItemKind) (string, bool) {
	f, ok := memberFields[k]
	return f, ok
}
