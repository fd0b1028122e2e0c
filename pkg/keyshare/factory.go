package keyshare

import (
	"crypto/ecdh"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/pqtls/kexdispatch/pkg/kem"
	"github.com/pqtls/kexdispatch/pkg/namedgroup"
)

// hybridSpec names the two sub-shares a composed hybrid group builds
// from. The factory builds the classical half by calling Create again
// with the classical group's id, and the PQ half directly from pkg/kem.
// The recursion cannot loop, since no classical group ever maps to a
// hybrid constructor.
type hybridSpec struct {
	classicalGroup string
	pqKEMName      string
}

var hybridSpecsByName = map[string]hybridSpec{
	"p256_kyber512":   {classicalGroup: "P-256", pqKEMName: "kyber512"},
	"p384_kyber768":   {classicalGroup: "P-384", pqKEMName: "kyber768"},
	"p521_kyber1024":  {classicalGroup: "P-521", pqKEMName: "kyber1024"},
	"sntrup761x25519": {classicalGroup: "X25519", pqKEMName: "sntrup761"},
}

// pureKEMNameByGroup maps a named group to the kem.KEM it is backed by.
// x-wing appears here rather than in hybridSpecsByName because circl's
// xwing package already combines X25519 and ML-KEM-768 into a single
// Scheme with one keypair and one ciphertext; composing it again out of
// two independent sub-shares would double up work the library already
// does internally.
var pureKEMNameByGroup = map[string]string{
	"kyber512":             "kyber512",
	"kyber768":              "kyber768",
	"kyber1024":             "kyber1024",
	"x25519_kyber768_xwing": "xwing",
	"sntrup761":             "sntrup761",
}

// Create constructs a fresh, unarmed KeyShare for the given wire group
// id. It returns false if the group is unknown, or if it names an OQS or
// hybrid algorithm that is not backed by a compiled-in implementation --
// mirroring OQS_KEM_alg_is_enabled returning false and the factory
// declining to construct a disabled share rather than falling back to
// something else.
func Create(groupID uint16) (KeyShare, bool) {
	g, ok := namedgroup.LookupByGroupID(groupID)
	if !ok || !g.Available {
		return nil, false
	}

	if curve, ok := classicalCurve(g.Name); ok {
		if curve == nil {
			return newX25519KeyShare(groupID), true
		}
		return newECKeyShare(groupID, curve), true
	}

	if kemName, ok := pureKEMNameByGroup[g.Name]; ok {
		scheme := kem.Get(kemName)
		if scheme == nil {
			return nil, false
		}
		return newOQSKeyShare(groupID, scheme), true
	}

	if spec, ok := hybridSpecsByName[g.Name]; ok {
		classicalGroupID, ok := namedgroup.NameToGroupID(spec.classicalGroup)
		if !ok {
			return nil, false
		}
		classical, ok := Create(classicalGroupID)
		if !ok {
			return nil, false
		}
		pqScheme := kem.Get(spec.pqKEMName)
		if pqScheme == nil {
			return nil, false
		}
		pqGroupID, ok := namedgroup.NameToGroupID(spec.pqKEMName)
		if !ok {
			// The bare pq scheme has no standalone registry entry of its
			// own (e.g. a future scheme added only as a hybrid half); the
			// group id only needs to be unique within this hybrid share,
			// so reuse the hybrid's own id for the sub-share.
			pqGroupID = groupID
		}
		pq := newOQSKeyShare(pqGroupID, pqScheme)
		return newHybridKeyShare(groupID, classical, pq), true
	}

	return nil, false
}

// classicalCurve reports whether name is a classical DH group, and if
// so which crypto/ecdh curve backs it. A nil curve with ok==true means
// X25519, which is served by x25519KeyShare rather than ecKeyShare.
func classicalCurve(name string) (ecdh.Curve, bool) {
	switch name {
	case "P-224":
		return ecdh.P224(), true
	case "P-256":
		return ecdh.P256(), true
	case "P-384":
		return ecdh.P384(), true
	case "P-521":
		return ecdh.P521(), true
	case "X25519":
		return nil, true
	default:
		return nil, false
	}
}

// CreateFromSerialized parses a group-tagged, ASN.1-framed serialized
// KeyShare -- u64_asn1(group_id) || octet_string(private_material) --
// constructs the matching fresh instance, and arms it from the encoded
// private material. Serialization is built on cryptobyte, the Go
// analogue of BoringSSL's own CBB/CBS, both designed by the same team
// for exactly this kind of ASN.1-flavored wire framing.
func CreateFromSerialized(in *cryptobyte.String) (KeyShare, bool) {
	var groupID int64
	if !in.ReadASN1Int64WithTag(&groupID, cbasn1.INTEGER) {
		return nil, false
	}
	if groupID < 0 || groupID > 0xffff {
		return nil, false
	}
	share, ok := Create(uint16(groupID))
	if !ok {
		return nil, false
	}
	if err := share.Deserialize(in); err != nil {
		return nil, false
	}
	return share, true
}
