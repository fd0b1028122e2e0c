package sigalg

import "encoding/asn1"

// KeyType identifies the public-key algorithm a signature context is
// bound to, the way pkg/kem names identify KEM algorithms. Signature
// schemes additionally need a notion of "which digest(s) pair with
// this key type", so KeyType carries no digest information itself.
type KeyType int

const (
	KeyTypeUnknown KeyType = iota
	KeyTypeRSA
	KeyTypeECDSAP256
	KeyTypeECDSAP384
	KeyTypeECDSAP521
	KeyTypeEd25519
	KeyTypeMLDSA44
	KeyTypeMLDSA65
	KeyTypeMLDSA87
	KeyTypeSLHDSA128s
	KeyTypeSLHDSA128f
	KeyTypeSLHDSA192s
	KeyTypeSLHDSA192f
	KeyTypeSLHDSA256s
	KeyTypeSLHDSA256f
)

func (k KeyType) String() string {
	switch k {
	case KeyTypeRSA:
		return "RSA"
	case KeyTypeECDSAP256:
		return "ECDSA-P256"
	case KeyTypeECDSAP384:
		return "ECDSA-P384"
	case KeyTypeECDSAP521:
		return "ECDSA-P521"
	case KeyTypeEd25519:
		return "Ed25519"
	case KeyTypeMLDSA44:
		return "ML-DSA-44"
	case KeyTypeMLDSA65:
		return "ML-DSA-65"
	case KeyTypeMLDSA87:
		return "ML-DSA-87"
	case KeyTypeSLHDSA128s:
		return "SLH-DSA-128s"
	case KeyTypeSLHDSA128f:
		return "SLH-DSA-128f"
	case KeyTypeSLHDSA192s:
		return "SLH-DSA-192s"
	case KeyTypeSLHDSA192f:
		return "SLH-DSA-192f"
	case KeyTypeSLHDSA256s:
		return "SLH-DSA-256s"
	case KeyTypeSLHDSA256f:
		return "SLH-DSA-256f"
	default:
		return "unknown"
	}
}

// circlSchemeName is the name circl's sign/schemes registry expects for
// the post-quantum key types. Classical key types have no entry here;
// they are backed by crypto/ecdsa, crypto/ed25519 and crypto/rsa.
func (k KeyType) circlSchemeName() string {
	switch k {
	case KeyTypeMLDSA44:
		return "ML-DSA-44"
	case KeyTypeMLDSA65:
		return "ML-DSA-65"
	case KeyTypeMLDSA87:
		return "ML-DSA-87"
	case KeyTypeSLHDSA128s:
		return "SLH-DSA-SHA2-128s"
	case KeyTypeSLHDSA128f:
		return "SLH-DSA-SHA2-128f"
	case KeyTypeSLHDSA192s:
		return "SLH-DSA-SHA2-192s"
	case KeyTypeSLHDSA192f:
		return "SLH-DSA-SHA2-192f"
	case KeyTypeSLHDSA256s:
		return "SLH-DSA-SHA2-256s"
	case KeyTypeSLHDSA256f:
		return "SLH-DSA-SHA2-256f"
	default:
		return ""
	}
}

// DigestType identifies a hash algorithm by its AlgorithmIdentifier
// table entry. DigestUndefined marks the two special cases the decision
// trees route around the ordinary hash-and-sign table: RSA-PSS (whose
// parameters here carry only the salt length, so no digest is recovered
// from the AlgorithmIdentifier) and
// the digestless set (Ed25519 and every PQ signature scheme, where the
// OID alone determines the scheme).
type DigestType int

const (
	DigestUndefined DigestType = iota
	DigestSHA256
	DigestSHA384
	DigestSHA512
)

func (d DigestType) String() string {
	switch d {
	case DigestSHA256:
		return "SHA-256"
	case DigestSHA384:
		return "SHA-384"
	case DigestSHA512:
		return "SHA-512"
	default:
		return "undefined"
	}
}

// PaddingMode distinguishes RSA's two signature paddings. It is
// meaningless for every other key type.
type PaddingMode int

const (
	PaddingPKCS1v15 PaddingMode = iota
	PaddingPSS
)

// sigidEntry is one row of the find_sigid_by_algs / find_sigid_algs
// table: a fixed (digest, key type) pair mapped to the OID that names
// their combination on the wire.
type sigidEntry struct {
	oid     asn1.ObjectIdentifier
	keyType KeyType
	digest  DigestType
}

// oidRSASSAPSS is handled outside the table: RSA-PSS reuses the bare RSA
// key type for every digest, so it cannot be looked up by (digest,
// keyType) the way the other entries are. sign_algorithm_of and
// verify_init both special-case it before consulting the table.
var oidRSASSAPSS = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 10}

// oidEd25519 identifies the only classical member of the digestless set.
var oidEd25519 = asn1.ObjectIdentifier{1, 3, 101, 112}

// sigidTable ports remiblancher-qpki__oid.go's ECDSA/Ed25519/RSA/ML-DSA
// *and* SLH-DSA OID constants directly into row form; that file already
// defines all six SLH-DSA placeholder OIDs, so nothing here extends its
// numbering, it is carried over unchanged. Every digestless scheme's
// row sets digest to DigestUndefined ("no separate digest"), so that
// both sign and verify paths treat Ed25519 and the PQ schemes
// identically.
var sigidTable = []sigidEntry{
	{oid: asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}, keyType: KeyTypeECDSAP256, digest: DigestSHA256},
	{oid: asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}, keyType: KeyTypeECDSAP384, digest: DigestSHA384},
	{oid: asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}, keyType: KeyTypeECDSAP521, digest: DigestSHA512},

	{oid: asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}, keyType: KeyTypeRSA, digest: DigestSHA256},
	{oid: asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}, keyType: KeyTypeRSA, digest: DigestSHA384},
	{oid: asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}, keyType: KeyTypeRSA, digest: DigestSHA512},

	{oid: oidEd25519, keyType: KeyTypeEd25519, digest: DigestUndefined},

	{oid: asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 17}, keyType: KeyTypeMLDSA44, digest: DigestUndefined},
	{oid: asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 18}, keyType: KeyTypeMLDSA65, digest: DigestUndefined},
	{oid: asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 19}, keyType: KeyTypeMLDSA87, digest: DigestUndefined},

	{oid: asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 20}, keyType: KeyTypeSLHDSA128s, digest: DigestUndefined},
	{oid: asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 21}, keyType: KeyTypeSLHDSA128f, digest: DigestUndefined},
	{oid: asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 22}, keyType: KeyTypeSLHDSA192s, digest: DigestUndefined},
	{oid: asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 23}, keyType: KeyTypeSLHDSA192f, digest: DigestUndefined},
	{oid: asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 24}, keyType: KeyTypeSLHDSA256s, digest: DigestUndefined},
	{oid: asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 25}, keyType: KeyTypeSLHDSA256f, digest: DigestUndefined},
}

// isDigestless reports whether kt's OID alone determines the scheme,
// with no separate digest choice: true for Ed25519 and every PQ
// signature scheme. Both SignAlgorithmOf and VerifyInit consult this
// one predicate instead of keeping separate lists.
func isDigestless(kt KeyType) bool {
	switch kt {
	case KeyTypeEd25519, KeyTypeMLDSA44, KeyTypeMLDSA65, KeyTypeMLDSA87,
		KeyTypeSLHDSA128s, KeyTypeSLHDSA128f, KeyTypeSLHDSA192s, KeyTypeSLHDSA192f,
		KeyTypeSLHDSA256s, KeyTypeSLHDSA256f:
		return true
	default:
		return false
	}
}

// oidForKeyType returns the OID that alone identifies a digestless
// scheme. Only valid for key types where isDigestless reports true.
func oidForKeyType(kt KeyType) (asn1.ObjectIdentifier, bool) {
	for _, e := range sigidTable {
		if e.keyType == kt && e.digest == DigestUndefined {
			return e.oid, true
		}
	}
	return nil, false
}

// lookupSigIDByAlgs implements find_sigid_by_algs: the sign path's table
// lookup by (digest, key type).
func lookupSigIDByAlgs(digest DigestType, kt KeyType) (sigidEntry, bool) {
	for _, e := range sigidTable {
		if e.digest == digest && e.keyType == kt {
			return e, true
		}
	}
	return sigidEntry{}, false
}

// lookupSigIDByOID implements find_sigid_algs (by OID): the verify
// path's reverse lookup.
func lookupSigIDByOID(oid asn1.ObjectIdentifier) (sigidEntry, bool) {
	for _, e := range sigidTable {
		if e.oid.Equal(oid) {
			return e, true
		}
	}
	return sigidEntry{}, false
}
