// Package namedgroup implements the NamedGroupRegistry: a static,
// immutable table mapping TLS group identifiers to internal NIDs,
// curve/scheme names, aliases, and a per-entry available flag set at
// table-construction time. It has no dependency on any concrete
// key-exchange implementation, including pkg/keyshare: the dependency
// runs the other way, with pkg/keyshare's factory consulting this
// registry to decide which concrete KeyShare to construct for a group
// id. Available is therefore a static table lookup, not a live check
// against what pkg/keyshare or pkg/kem actually have compiled in --
// keeping it that way is what avoids the import cycle a live check
// would create (pkg/keyshare already imports this package).
package namedgroup

// kind classifies how a registry entry's key material is produced.
// It does not affect lookup, only documents intent for readers.
type kind int

const (
	kindClassicalDH kind = iota
	kindHybrid
	kindPureKEM
)

// Internal NIDs. These numbers carry no meaning outside this package;
// they exist only so two lookups of the same group agree on identity.
// Unlike GroupID, a NID is never sent on the wire.
const (
	nidSecp224r1 = 1000
	nidX9_62_prime256v1 = 1001
	nidSecp384r1 = 1002
	nidSecp521r1 = 1003
	nidX25519 = 1004
	nidCECPQ2 = 1005
	nidBike1l1cpa = 1006
	nidP256_bike1l1cpa = 1007
	nidBike1l3cpa = 1008
	nidP384_bike1l3cpa = 1009
	nidBike1l1fo = 1010
	nidP256_bike1l1fo = 1011
	nidBike1l3fo = 1012
	nidP384_bike1l3fo = 1013
	nidFrodo640aes = 1014
	nidP256_frodo640aes = 1015
	nidFrodo640shake = 1016
	nidP256_frodo640shake = 1017
	nidFrodo976aes = 1018
	nidP384_frodo976aes = 1019
	nidFrodo976shake = 1020
	nidP384_frodo976shake = 1021
	nidFrodo1344aes = 1022
	nidP521_frodo1344aes = 1023
	nidFrodo1344shake = 1024
	nidP521_frodo1344shake = 1025
	nidKyber512 = 1026
	nidP256_kyber512 = 1027
	nidKyber768 = 1028
	nidP384_kyber768 = 1029
	nidKyber1024 = 1030
	nidP521_kyber1024 = 1031
	nidKyber90s512 = 1032
	nidP256_kyber90s512 = 1033
	nidKyber90s768 = 1034
	nidP384_kyber90s768 = 1035
	nidKyber90s1024 = 1036
	nidP521_kyber90s1024 = 1037
	nidNtru_hps2048509 = 1038
	nidP256_ntru_hps2048509 = 1039
	nidNtru_hps2048677 = 1040
	nidP384_ntru_hps2048677 = 1041
	nidNtru_hps4096821 = 1042
	nidP521_ntru_hps4096821 = 1043
	nidNtru_hrss701 = 1044
	nidP384_ntru_hrss701 = 1045
	nidLightsaber = 1046
	nidP256_lightsaber = 1047
	nidSaber = 1048
	nidP384_saber = 1049
	nidFiresaber = 1050
	nidP521_firesaber = 1051
	nidSidhp434 = 1052
	nidP256_sidhp434 = 1053
	nidSidhp503 = 1054
	nidP256_sidhp503 = 1055
	nidSidhp610 = 1056
	nidP384_sidhp610 = 1057
	nidSidhp751 = 1058
	nidP521_sidhp751 = 1059
	nidSikep434 = 1060
	nidP256_sikep434 = 1061
	nidSikep503 = 1062
	nidP256_sikep503 = 1063
	nidSikep610 = 1064
	nidP384_sikep610 = 1065
	nidSikep751 = 1066
	nidP521_sikep751 = 1067
	nidHqc128_1_cca2 = 1068
	nidP256_hqc128_1_cca2 = 1069
	nidHqc192_1_cca2 = 1070
	nidP384_hqc192_1_cca2 = 1071
	nidHqc192_2_cca2 = 1072
	nidP384_hqc192_2_cca2 = 1073
	nidHqc256_1_cca2 = 1074
	nidP521_hqc256_1_cca2 = 1075
	nidHqc256_2_cca2 = 1076
	nidP521_hqc256_2_cca2 = 1077
	nidHqc256_3_cca2 = 1078
	nidP521_hqc256_3_cca2 = 1079
)

// entry is one row of the NamedGroupRegistry.
type entry struct {
	nid       int
	groupID   uint16
	name      string
	alias     string
	kind      kind
	available bool
}

// registry is the immutable ~80 entry table. It is built once at
// package init and never mutated afterward; all lookups are plain
// linear scans, matching the table's own access pattern in the
// codebase this was distilled from (a handful of lookups per
// handshake does not justify a hash map).
var registry = []entry{
	{nid: nidSecp224r1, groupID: 0x15, name: "P-224", alias: "secp224r1", kind: kindClassicalDH, available: true},
	{nid: nidX9_62_prime256v1, groupID: 0x17, name: "P-256", alias: "prime256v1", kind: kindClassicalDH, available: true},
	{nid: nidSecp384r1, groupID: 0x18, name: "P-384", alias: "secp384r1", kind: kindClassicalDH, available: true},
	{nid: nidSecp521r1, groupID: 0x19, name: "P-521", alias: "secp521r1", kind: kindClassicalDH, available: true},
	{nid: nidX25519, groupID: 0x1d, name: "X25519", alias: "x25519", kind: kindClassicalDH, available: true},
	{nid: nidCECPQ2, groupID: 0xfe00, name: "CECPQ2", alias: "CECPQ2", kind: kindPureKEM, available: false},
	{nid: nidBike1l1cpa, groupID: 0x2a00, name: "bike1l1cpa", alias: "bike1l1cpa", kind: kindPureKEM, available: false},
	{nid: nidP256_bike1l1cpa, groupID: 0xfe10, name: "p256_bike1l1cpa", alias: "p256_bike1l1cpa", kind: kindHybrid, available: false},
	{nid: nidBike1l3cpa, groupID: 0x2a01, name: "bike1l3cpa", alias: "bike1l3cpa", kind: kindPureKEM, available: false},
	{nid: nidP384_bike1l3cpa, groupID: 0xfe11, name: "p384_bike1l3cpa", alias: "p384_bike1l3cpa", kind: kindHybrid, available: false},
	{nid: nidBike1l1fo, groupID: 0x2a02, name: "bike1l1fo", alias: "bike1l1fo", kind: kindPureKEM, available: false},
	{nid: nidP256_bike1l1fo, groupID: 0xfe12, name: "p256_bike1l1fo", alias: "p256_bike1l1fo", kind: kindHybrid, available: false},
	{nid: nidBike1l3fo, groupID: 0x2a03, name: "bike1l3fo", alias: "bike1l3fo", kind: kindPureKEM, available: false},
	{nid: nidP384_bike1l3fo, groupID: 0xfe13, name: "p384_bike1l3fo", alias: "p384_bike1l3fo", kind: kindHybrid, available: false},
	{nid: nidFrodo640aes, groupID: 0x2a04, name: "frodo640aes", alias: "frodo640aes", kind: kindPureKEM, available: false},
	{nid: nidP256_frodo640aes, groupID: 0xfe14, name: "p256_frodo640aes", alias: "p256_frodo640aes", kind: kindHybrid, available: false},
	{nid: nidFrodo640shake, groupID: 0x2a05, name: "frodo640shake", alias: "frodo640shake", kind: kindPureKEM, available: false},
	{nid: nidP256_frodo640shake, groupID: 0xfe15, name: "p256_frodo640shake", alias: "p256_frodo640shake", kind: kindHybrid, available: false},
	{nid: nidFrodo976aes, groupID: 0x2a06, name: "frodo976aes", alias: "frodo976aes", kind: kindPureKEM, available: false},
	{nid: nidP384_frodo976aes, groupID: 0xfe16, name: "p384_frodo976aes", alias: "p384_frodo976aes", kind: kindHybrid, available: false},
	{nid: nidFrodo976shake, groupID: 0x2a07, name: "frodo976shake", alias: "frodo976shake", kind: kindPureKEM, available: false},
	{nid: nidP384_frodo976shake, groupID: 0xfe17, name: "p384_frodo976shake", alias: "p384_frodo976shake", kind: kindHybrid, available: false},
	{nid: nidFrodo1344aes, groupID: 0x2a08, name: "frodo1344aes", alias: "frodo1344aes", kind: kindPureKEM, available: false},
	{nid: nidP521_frodo1344aes, groupID: 0xfe18, name: "p521_frodo1344aes", alias: "p521_frodo1344aes", kind: kindHybrid, available: false},
	{nid: nidFrodo1344shake, groupID: 0x2a09, name: "frodo1344shake", alias: "frodo1344shake", kind: kindPureKEM, available: false},
	{nid: nidP521_frodo1344shake, groupID: 0xfe19, name: "p521_frodo1344shake", alias: "p521_frodo1344shake", kind: kindHybrid, available: false},
	{nid: nidKyber512, groupID: 0x2a0a, name: "kyber512", alias: "kyber512", kind: kindPureKEM, available: true},
	{nid: nidP256_kyber512, groupID: 0xfe1a, name: "p256_kyber512", alias: "p256_kyber512", kind: kindHybrid, available: true},
	{nid: nidKyber768, groupID: 0x2a0b, name: "kyber768", alias: "kyber768", kind: kindPureKEM, available: true},
	{nid: nidP384_kyber768, groupID: 0xfe1b, name: "p384_kyber768", alias: "p384_kyber768", kind: kindHybrid, available: true},
	{nid: nidKyber1024, groupID: 0x2a0c, name: "kyber1024", alias: "kyber1024", kind: kindPureKEM, available: true},
	{nid: nidP521_kyber1024, groupID: 0xfe1c, name: "p521_kyber1024", alias: "p521_kyber1024", kind: kindHybrid, available: true},
	{nid: nidKyber90s512, groupID: 0x2a0d, name: "kyber90s512", alias: "kyber90s512", kind: kindPureKEM, available: false},
	{nid: nidP256_kyber90s512, groupID: 0xfe1d, name: "p256_kyber90s512", alias: "p256_kyber90s512", kind: kindHybrid, available: false},
	{nid: nidKyber90s768, groupID: 0x2a0e, name: "kyber90s768", alias: "kyber90s768", kind: kindPureKEM, available: false},
	{nid: nidP384_kyber90s768, groupID: 0xfe1e, name: "p384_kyber90s768", alias: "p384_kyber90s768", kind: kindHybrid, available: false},
	{nid: nidKyber90s1024, groupID: 0x2a0f, name: "kyber90s1024", alias: "kyber90s1024", kind: kindPureKEM, available: false},
	{nid: nidP521_kyber90s1024, groupID: 0xfe1f, name: "p521_kyber90s1024", alias: "p521_kyber90s1024", kind: kindHybrid, available: false},
	{nid: nidNtru_hps2048509, groupID: 0x2a10, name: "ntru_hps2048509", alias: "ntru_hps2048509", kind: kindPureKEM, available: false},
	{nid: nidP256_ntru_hps2048509, groupID: 0xfe20, name: "p256_ntru_hps2048509", alias: "p256_ntru_hps2048509", kind: kindHybrid, available: false},
	{nid: nidNtru_hps2048677, groupID: 0x2a11, name: "ntru_hps2048677", alias: "ntru_hps2048677", kind: kindPureKEM, available: false},
	{nid: nidP384_ntru_hps2048677, groupID: 0xfe21, name: "p384_ntru_hps2048677", alias: "p384_ntru_hps2048677", kind: kindHybrid, available: false},
	{nid: nidNtru_hps4096821, groupID: 0x2a12, name: "ntru_hps4096821", alias: "ntru_hps4096821", kind: kindPureKEM, available: false},
	{nid: nidP521_ntru_hps4096821, groupID: 0xfe22, name: "p521_ntru_hps4096821", alias: "p521_ntru_hps4096821", kind: kindHybrid, available: false},
	{nid: nidNtru_hrss701, groupID: 0x2a13, name: "ntru_hrss701", alias: "ntru_hrss701", kind: kindPureKEM, available: false},
	{nid: nidP384_ntru_hrss701, groupID: 0xfe23, name: "p384_ntru_hrss701", alias: "p384_ntru_hrss701", kind: kindHybrid, available: false},
	{nid: nidLightsaber, groupID: 0x2a14, name: "lightsaber", alias: "lightsaber", kind: kindPureKEM, available: false},
	{nid: nidP256_lightsaber, groupID: 0xfe24, name: "p256_lightsaber", alias: "p256_lightsaber", kind: kindHybrid, available: false},
	{nid: nidSaber, groupID: 0x2a15, name: "saber", alias: "saber", kind: kindPureKEM, available: false},
	{nid: nidP384_saber, groupID: 0xfe25, name: "p384_saber", alias: "p384_saber", kind: kindHybrid, available: false},
	{nid: nidFiresaber, groupID: 0x2a16, name: "firesaber", alias: "firesaber", kind: kindPureKEM, available: false},
	{nid: nidP521_firesaber, groupID: 0xfe26, name: "p521_firesaber", alias: "p521_firesaber", kind: kindHybrid, available: false},
	{nid: nidSidhp434, groupID: 0x2a17, name: "sidhp434", alias: "sidhp434", kind: kindPureKEM, available: false},
	{nid: nidP256_sidhp434, groupID: 0xfe27, name: "p256_sidhp434", alias: "p256_sidhp434", kind: kindHybrid, available: false},
	{nid: nidSidhp503, groupID: 0x2a18, name: "sidhp503", alias: "sidhp503", kind: kindPureKEM, available: false},
	{nid: nidP256_sidhp503, groupID: 0xfe28, name: "p256_sidhp503", alias: "p256_sidhp503", kind: kindHybrid, available: false},
	{nid: nidSidhp610, groupID: 0x2a19, name: "sidhp610", alias: "sidhp610", kind: kindPureKEM, available: false},
	{nid: nidP384_sidhp610, groupID: 0xfe29, name: "p384_sidhp610", alias: "p384_sidhp610", kind: kindHybrid, available: false},
	{nid: nidSidhp751, groupID: 0x2a1a, name: "sidhp751", alias: "sidhp751", kind: kindPureKEM, available: false},
	{nid: nidP521_sidhp751, groupID: 0xfe2a, name: "p521_sidhp751", alias: "p521_sidhp751", kind: kindHybrid, available: false},
	{nid: nidSikep434, groupID: 0x2a1b, name: "sikep434", alias: "sikep434", kind: kindPureKEM, available: false},
	{nid: nidP256_sikep434, groupID: 0xfe2b, name: "p256_sikep434", alias: "p256_sikep434", kind: kindHybrid, available: false},
	{nid: nidSikep503, groupID: 0x2a1c, name: "sikep503", alias: "sikep503", kind: kindPureKEM, available: false},
	{nid: nidP256_sikep503, groupID: 0xfe2c, name: "p256_sikep503", alias: "p256_sikep503", kind: kindHybrid, available: false},
	{nid: nidSikep610, groupID: 0x2a1d, name: "sikep610", alias: "sikep610", kind: kindPureKEM, available: false},
	{nid: nidP384_sikep610, groupID: 0xfe2d, name: "p384_sikep610", alias: "p384_sikep610", kind: kindHybrid, available: false},
	{nid: nidSikep751, groupID: 0x2a1e, name: "sikep751", alias: "sikep751", kind: kindPureKEM, available: false},
	{nid: nidP521_sikep751, groupID: 0xfe2e, name: "p521_sikep751", alias: "p521_sikep751", kind: kindHybrid, available: false},
	{nid: nidHqc128_1_cca2, groupID: 0x2a1f, name: "hqc128_1_cca2", alias: "hqc128_1_cca2", kind: kindPureKEM, available: false},
	{nid: nidP256_hqc128_1_cca2, groupID: 0xfe2f, name: "p256_hqc128_1_cca2", alias: "p256_hqc128_1_cca2", kind: kindHybrid, available: false},
	{nid: nidHqc192_1_cca2, groupID: 0x2a20, name: "hqc192_1_cca2", alias: "hqc192_1_cca2", kind: kindPureKEM, available: false},
	{nid: nidP384_hqc192_1_cca2, groupID: 0xfe30, name: "p384_hqc192_1_cca2", alias: "p384_hqc192_1_cca2", kind: kindHybrid, available: false},
	{nid: nidHqc192_2_cca2, groupID: 0x2a21, name: "hqc192_2_cca2", alias: "hqc192_2_cca2", kind: kindPureKEM, available: false},
	{nid: nidP384_hqc192_2_cca2, groupID: 0xfe31, name: "p384_hqc192_2_cca2", alias: "p384_hqc192_2_cca2", kind: kindHybrid, available: false},
	{nid: nidHqc256_1_cca2, groupID: 0x2a22, name: "hqc256_1_cca2", alias: "hqc256_1_cca2", kind: kindPureKEM, available: false},
	{nid: nidP521_hqc256_1_cca2, groupID: 0xfe32, name: "p521_hqc256_1_cca2", alias: "p521_hqc256_1_cca2", kind: kindHybrid, available: false},
	{nid: nidHqc256_2_cca2, groupID: 0x2a23, name: "hqc256_2_cca2", alias: "hqc256_2_cca2", kind: kindPureKEM, available: false},
	{nid: nidP521_hqc256_2_cca2, groupID: 0xfe33, name: "p521_hqc256_2_cca2", alias: "p521_hqc256_2_cca2", kind: kindHybrid, available: false},
	{nid: nidHqc256_3_cca2, groupID: 0x2a24, name: "hqc256_3_cca2", alias: "hqc256_3_cca2", kind: kindPureKEM, available: false},
	{nid: nidP521_hqc256_3_cca2, groupID: 0xfe34, name: "p521_hqc256_3_cca2", alias: "p521_hqc256_3_cca2", kind: kindHybrid, available: false},
	// x-wing, sntrup761 and sntrup761x25519 postdate the table above;
	// they are added as separate entries rather than shoehorned into
	// one of the rows above, matching how new hybrid schemes have
	// always been appended to this table rather than replacing old
	// rows. x-wing is classified kindPureKEM rather than kindHybrid:
	// circl's xwing package already combines X25519 and ML-KEM-768
	// into one Scheme with a single keypair and ciphertext, so from
	// this table's point of view it is one primitive, not a
	// composition of two.
	{nid: nidXwing, groupID: 0x6399, name: "x25519_kyber768_xwing", alias: "xwing", kind: kindPureKEM, available: true},
	{nid: nidSntrup761, groupID: 0x6400, name: "sntrup761", alias: "sntrup761", kind: kindPureKEM, available: true},
	{nid: nidSntrup761x25519, groupID: 0x6401, name: "sntrup761x25519", alias: "ntrup761x25519-sha512", kind: kindHybrid, available: true},
}

const (
	nidXwing           = 9001
	nidSntrup761       = 9002
	nidSntrup761x25519 = 9003
)

// LookupByGroupID returns the registry entry whose wire GroupID
// matches id.
func LookupByGroupID(id uint16) (NamedGroup, bool) {
	for _, e := range registry {
		if e.groupID == id {
			return e.toNamedGroup(), true
		}
	}
	return NamedGroup{}, false
}

// NIDToGroupID converts an internal NID back to its wire GroupID.
func NIDToGroupID(nid int) (uint16, bool) {
	for _, e := range registry {
		if e.nid == nid {
			return e.groupID, true
		}
	}
	return 0, false
}

// NameToGroupID looks up a group by its canonical name or alias.
// The match is exact: "p256" does not match "P-256", mirroring the
// strcmp-based lookup this table was distilled from rather than a
// case-insensitive or prefix search.
func NameToGroupID(name string) (uint16, bool) {
	for _, e := range registry {
		if e.name == name || e.alias == name {
			return e.groupID, true
		}
	}
	return 0, false
}

// CurveNameOf returns the canonical name of the group identified by id.
func CurveNameOf(id uint16) (string, bool) {
	for _, e := range registry {
		if e.groupID == id {
			return e.name, true
		}
	}
	return "", false
}

// Available reports whether a compiled-in key-exchange implementation
// backs this entry. Entries present in the table but not backed by
// any library in the build report false here, mirroring
// OQS_KEM_alg_is_enabled returning false for algorithms compiled out
// of a liboqs build: the table documents everything BoringSSL once
// knew how to name, not everything this build can actually do.
func Available(id uint16) bool {
	for _, e := range registry {
		if e.groupID == id {
			return e.available
		}
	}
	return false
}

// All returns every registered group, in table order. Callers that
// need only the available subset should filter with Available.
func All() []NamedGroup {
	out := make([]NamedGroup, 0, len(registry))
	for _, e := range registry {
		out = append(out, e.toNamedGroup())
	}
	return out
}

// NamedGroup is the public, read-only view of a registry entry.
type NamedGroup struct {
	NID       int
	GroupID   uint16
	Name      string
	Alias     string
	Available bool
}

func (e entry) toNamedGroup() NamedGroup {
	return NamedGroup{
		NID:       e.nid,
		GroupID:   e.groupID,
		Name:      e.name,
		Alias:     e.alias,
		Available: e.available,
	}
}
