package scm

import (
	"errors"
	"strings"
	"testing"

	"github.com/panshift/panshift/pkg/util"
)

func TestParseItemKind(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"tag", false},
		{"address", false},
		{"address_group", false},
		{"application_filter", false},
		{"ike_gateway", false},
		{"remote_network", false},
		{"security_rule", false},
		{"authentication_profile", false},
		{"vlan", true},
		{"Address", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			k, err := ParseItemKind(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseItemKind(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, util.ErrUnknownKind) {
					t.Errorf("error should wrap ErrUnknownKind, got %v", err)
				}
				return
			}
			if string(k) != tt.input {
				t.Errorf("ParseItemKind(%q) = %q", tt.input, k)
			}
		})
	}
}

func TestRank_BucketOrdering(t *testing.T) {
	infraOrder, err := InfraChainOrder()
	if err != nil {
		t.Fatalf("InfraChainOrder() error: %v", err)
	}

	// Every earlier kind must sort strictly before every later kind.
	sequence := []ItemKind{
		KindTag,
		KindAddress,
		KindService,
		KindAddressGroup,
		KindServiceGroup,
		KindApplicationFilter,
		KindApplicationGroup,
		KindSchedule,
		KindAntivirusProfile,
		KindProfileGroup,
		KindIKECryptoProfile,
		KindRemoteNetwork,
		KindSecurityRule,
		KindNATRule,
		KindCertificateProfile,
	}

	for i := 0; i < len(sequence)-1; i++ {
		b1, s1, ok1 := Rank(sequence[i], infraOrder)
		b2, s2, ok2 := Rank(sequence[i+1], infraOrder)
		if !ok1 || !ok2 {
			t.Fatalf("Rank missing for %s or %s", sequence[i], sequence[i+1])
		}
		if b1 > b2 || (b1 == b2 && s1 >= s2) {
			t.Errorf("%s (%d,%d) should sort before %s (%d,%d)",
				sequence[i], b1, s1, sequence[i+1], b2, s2)
		}
	}
}

func TestRank_UnknownKind(t *testing.T) {
	if _, _, ok := Rank(ItemKind("vlan"), nil); ok {
		t.Error("Rank should reject unknown kinds")
	}
}

func TestInfraChainOrder(t *testing.T) {
	order, err := InfraChainOrder()
	if err != nil {
		t.Fatalf("InfraChainOrder() error: %v", err)
	}

	want := []ItemKind{
		KindIKECryptoProfile,
		KindIKEGateway,
		KindIPSecCryptoProfile,
		KindIPSecTunnel,
		KindServiceConnection,
		KindRemoteNetwork,
	}
	for i, k := range want {
		if order[k] != i {
			t.Errorf("order[%s] = %d, want %d", k, order[k], i)
		}
	}
}

func TestInfraOrderFrom_CycleDegradesToDeclarationOrder(t *testing.T) {
	chain := []ItemKind{"a", "b", "c"}
	deps := map[ItemKind][]ItemKind{
		"a": {"c"},
		"b": {"a"},
		"c": {"b"},
	}

	order, err := infraOrderFrom(chain, deps)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Errorf("error should mention the cycle: %v", err)
	}
	// Declaration order fallback for all members.
	for i, k := range chain {
		if order[k] != i {
			t.Errorf("order[%s] = %d, want declaration position %d", k, order[k], i)
		}
	}
}

func TestInfraOrderFrom_PartialCycle(t *testing.T) {
	// d is acyclic and must place first; the b<->c cycle degrades after it.
	chain := []ItemKind{"b", "c", "d"}
	deps := map[ItemKind][]ItemKind{
		"b": {"c"},
		"c": {"b"},
	}

	order, err := infraOrderFrom(chain, deps)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if order["d"] != 0 {
		t.Errorf("acyclic member should place first, order[d] = %d", order["d"])
	}
	if order["b"] != 1 || order["c"] != 2 {
		t.Errorf("cycle members should keep declaration order: b=%d c=%d", order["b"], order["c"])
	}
}

func TestReferenceFields(t *testing.T) {
	if got := ReferenceFields(KindAddressGroup); len(got) == 0 || got[0] != "static" {
		t.Errorf("address_group reference fields = %v, want static first", got)
	}
	if got := ReferenceFields(KindTag); got != nil {
		t.Errorf("tag should carry no reference fields, got %v", got)
	}
}

func TestMemberField(t *testing.T) {
	tests := []struct {
		kind ItemKind
		want string
		ok   bool
	}{
		{KindAddressGroup, "static", true},
		{KindServiceGroup, "members", true},
		{KindApplicationGroup, "members", true},
		{KindSecurityRule, "", false},
		{KindAddress, "", false},
	}

	for _, tt := range tests {
		got, ok := MemberField(tt.kind)
		if got != tt.want || ok != tt.ok {
			t.Errorf("MemberField(%s) = (%q, %v), want (%q, %v)", tt.kind, got, ok, tt.want, tt.ok)
		}
	}
}
