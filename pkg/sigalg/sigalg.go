// Package sigalg implements the (digest, key type) to signature-OID
// coding layer: given a signing context, produce the X.509
// AlgorithmIdentifier that names it, and given an AlgorithmIdentifier,
// recover enough state to verify against it. It handles three regimes
// uniformly: standard hash-and-sign (explicit digest), RSA-PSS
// (parameters carried alongside, not encoded in the OID), and
// "digestless" schemes (Ed25519 and every PQ signature scheme) whose
// OID alone determines the algorithm.
package sigalg

import (
	"encoding/asn1"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/schemes"
)

var (
	ErrUnknownSignatureAlgorithm     = errors.New("sigalg: unknown signature algorithm")
	ErrWrongPublicKeyType            = errors.New("sigalg: wrong public key type for algorithm")
	ErrUnknownDigest                 = errors.New("sigalg: unknown digest")
	ErrDigestAndKeyTypeNotSupported  = errors.New("sigalg: digest and key type combination not supported")
	ErrContextNotInitialised         = errors.New("sigalg: context not initialised")
	ErrPSSParametersRequired         = errors.New("sigalg: RSA-PSS algorithm identifier requires parameters")
	ErrUnexpectedParameters          = errors.New("sigalg: algorithm identifier parameters must be absent")
)

// ParameterKind distinguishes the three shapes AlgorithmIdentifier's
// parameters field can take.
type ParameterKind int

const (
	ParametersAbsent ParameterKind = iota
	ParametersNull
	ParametersExplicit
)

func (p ParameterKind) String() string {
	switch p {
	case ParametersAbsent:
		return "absent"
	case ParametersNull:
		return "NULL"
	case ParametersExplicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// AlgorithmIdentifier is the X.509
// `SEQUENCE { algorithm OBJECT IDENTIFIER, parameters ANY OPTIONAL }`.
type AlgorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters ParameterKind
	// RawParameters holds the DER-encoded parameters when Parameters ==
	// ParametersExplicit (RSA-PSS only in this package).
	RawParameters []byte
}

// pssParameters is a minimal RSASSA-PSS-params encoding carrying only
// the salt length, not the full MGF/trailer-field structure -- RSA-PSS
// parameter encoding itself is out of scope for this package, which
// only needs enough of the shape to round-trip through sign/verify.
type pssParameters struct {
	SaltLength int `asn1:"optional,explicit,tag:2,default:20"`
}

// SignContext carries a signing context's (pkey, optional digest,
// optional RSA padding mode) as described by sign_algorithm_of's inputs.
type SignContext struct {
	KeyType       KeyType
	Digest        DigestType
	Padding       PaddingMode
	PSSSaltLength int
}

// VerificationContext is the state verify_init produces: the resolved
// digest (DigestUndefined for PSS and digestless schemes) and a flag
// recording whether the context has actually been initialised, so
// operations on a zero-value context fail closed instead of silently
// verifying with the wrong digest.
type VerificationContext struct {
	KeyType    KeyType
	Digest     DigestType
	initialised bool
}

// SignAlgorithmOf implements sign_algorithm_of: decide which
// AlgorithmIdentifier names ctx's (key type, digest, padding).
func SignAlgorithmOf(ctx SignContext) (AlgorithmIdentifier, error) {
	if ctx.KeyType == KeyTypeRSA && ctx.Padding == PaddingPSS {
		return rsaPSSAlgorithmIdentifier(ctx)
	}

	if isDigestless(ctx.KeyType) {
		oid, ok := oidForKeyType(ctx.KeyType)
		if !ok {
			return AlgorithmIdentifier{}, fmt.Errorf("%w: %s", ErrUnknownSignatureAlgorithm, ctx.KeyType)
		}
		return AlgorithmIdentifier{Algorithm: oid, Parameters: ParametersAbsent}, nil
	}

	entry, ok := lookupSigIDByAlgs(ctx.Digest, ctx.KeyType)
	if !ok {
		return AlgorithmIdentifier{}, fmt.Errorf("%w: digest=%v key=%s", ErrDigestAndKeyTypeNotSupported, ctx.Digest, ctx.KeyType)
	}

	params := ParametersAbsent
	if ctx.KeyType == KeyTypeRSA {
		// RSA PKCS#1 v1.5 carries an explicit NULL parameter; every
		// other hash-and-sign scheme omits it.
		params = ParametersNull
	}
	return AlgorithmIdentifier{Algorithm: entry.oid, Parameters: params}, nil
}

func rsaPSSAlgorithmIdentifier(ctx SignContext) (AlgorithmIdentifier, error) {
	raw, err := asn1.Marshal(pssParameters{SaltLength: ctx.PSSSaltLength})
	if err != nil {
		return AlgorithmIdentifier{}, fmt.Errorf("sigalg: encode PSS parameters: %w", err)
	}
	return AlgorithmIdentifier{
		Algorithm:     oidRSASSAPSS,
		Parameters:    ParametersExplicit,
		RawParameters: raw,
	}, nil
}

// VerifyInit implements verify_init: given an AlgorithmIdentifier taken
// off the wire and the verifier's known key type, resolve (or reject)
// the digest to verify with.
func VerifyInit(algo AlgorithmIdentifier, keyType KeyType) (VerificationContext, error) {
	if algo.Algorithm.Equal(oidRSASSAPSS) {
		if keyType != KeyTypeRSA {
			return VerificationContext{}, ErrWrongPublicKeyType
		}
		if algo.Parameters != ParametersExplicit {
			return VerificationContext{}, ErrPSSParametersRequired
		}
		return VerificationContext{KeyType: keyType, Digest: DigestUndefined, initialised: true}, nil
	}

	entry, ok := lookupSigIDByOID(algo.Algorithm)
	if !ok {
		return VerificationContext{}, ErrUnknownSignatureAlgorithm
	}
	if entry.keyType != keyType {
		return VerificationContext{}, ErrWrongPublicKeyType
	}

	if entry.digest == DigestUndefined {
		if !isDigestless(entry.keyType) {
			return VerificationContext{}, ErrUnknownSignatureAlgorithm
		}
		if algo.Parameters != ParametersAbsent {
			return VerificationContext{}, ErrUnexpectedParameters
		}
		return VerificationContext{KeyType: keyType, Digest: DigestUndefined, initialised: true}, nil
	}

	return VerificationContext{KeyType: keyType, Digest: entry.digest, initialised: true}, nil
}

// Initialised reports whether ctx was produced by VerifyInit, guarding
// against use of a zero-value VerificationContext.
func (ctx VerificationContext) Initialised() error {
	if !ctx.initialised {
		return ErrContextNotInitialised
	}
	return nil
}

// Available reports whether kt's post-quantum scheme is actually backed
// by a compiled-in circl implementation, mirroring pkg/kem.Get's
// registry-by-name pattern. Classical key types (RSA, ECDSA, Ed25519)
// are always available since they are backed by the standard library.
func Available(kt KeyType) bool {
	name := kt.circlSchemeName()
	if name == "" {
		return !isUnknownKeyType(kt)
	}
	return schemeByName(name) != nil
}

func isUnknownKeyType(kt KeyType) bool {
	return kt == KeyTypeUnknown
}

func schemeByName(name string) sign.Scheme {
	return schemes.ByName(name)
}
