package algorithm

import (
	"crypto"

	"github.com/silvergate-labs/cose/internal/primitives"
)

// idRS1 is RSASSA-PKCS1-v1_5 with SHA-1, registered at -65535 (IANA COSE
// Algorithms registry verbatim).
const idRS1 = -65535

var byID map[int64]*Algorithm
var byName map[string]*Algorithm

func register(a *Algorithm) *Algorithm {
	byID[a.ID] = a
	byName[a.Name] = a
	return a
}

func init() {
	byID = make(map[int64]*Algorithm)
	byName = make(map[string]*Algorithm)

	// Signature algorithms.
	register(&Algorithm{ID: -7, Name: "ES256", Kind: KindSignature, Hash: crypto.SHA256, Curve: CurveP256, KeyType: KeyTypeEC2,
		signer: primitives.NewECDSASigner(crypto.SHA256, CurveP256.CoordLen())})
	register(&Algorithm{ID: -35, Name: "ES384", Kind: KindSignature, Hash: crypto.SHA384, Curve: CurveP384, KeyType: KeyTypeEC2,
		signer: primitives.NewECDSASigner(crypto.SHA384, CurveP384.CoordLen())})
	register(&Algorithm{ID: -36, Name: "ES512", Kind: KindSignature, Hash: crypto.SHA512, Curve: CurveP521, KeyType: KeyTypeEC2,
		signer: primitives.NewECDSASigner(crypto.SHA512, CurveP521.CoordLen())})
	register(&Algorithm{ID: -47, Name: "ES256K", Kind: KindSignature, Hash: crypto.SHA256, Curve: CurveSecp256k1, KeyType: KeyTypeEC2,
		signer: primitives.NewECDSASigner(crypto.SHA256, CurveP256.CoordLen())})
	register(&Algorithm{ID: -8, Name: "EdDSA", Kind: KindSignature, Curve: CurveEd25519, KeyType: KeyTypeOKP,
		signer: primitives.NewEd25519Signer()})

	register(&Algorithm{ID: -37, Name: "PS256", Kind: KindSignature, Hash: crypto.SHA256, Salt: 32, KeyType: KeyTypeRSA,
		signer: primitives.NewRSAPSSSigner(crypto.SHA256, 32)})
	register(&Algorithm{ID: -38, Name: "PS384", Kind: KindSignature, Hash: crypto.SHA384, Salt: 48, KeyType: KeyTypeRSA,
		signer: primitives.NewRSAPSSSigner(crypto.SHA384, 48)})
	register(&Algorithm{ID: -39, Name: "PS512", Kind: KindSignature, Hash: crypto.SHA512, Salt: 64, KeyType: KeyTypeRSA,
		signer: primitives.NewRSAPSSSigner(crypto.SHA512, 64)})

	register(&Algorithm{ID: idRS1, Name: "RS1", Kind: KindSignature, Hash: crypto.SHA1, KeyType: KeyTypeRSA,
		signer: primitives.NewRSAPKCS1Signer(crypto.SHA1)})
	register(&Algorithm{ID: -257, Name: "RS256", Kind: KindSignature, Hash: crypto.SHA256, KeyType: KeyTypeRSA,
		signer: primitives.NewRSAPKCS1Signer(crypto.SHA256)})
	register(&Algorithm{ID: -258, Name: "RS384", Kind: KindSignature, Hash: crypto.SHA384, KeyType: KeyTypeRSA,
		signer: primitives.NewRSAPKCS1Signer(crypto.SHA384)})
	register(&Algorithm{ID: -259, Name: "RS512", Kind: KindSignature, Hash: crypto.SHA512, KeyType: KeyTypeRSA,
		signer: primitives.NewRSAPKCS1Signer(crypto.SHA512)})

	// MAC algorithms.
	register(&Algorithm{ID: 4, Name: "HMAC 256/64", Kind: KindMAC, Hash: crypto.SHA256, HashID: primitives.HashSHA256, TagLen: 8, KeyType: KeyTypeSymmetric,
		mac: must(primitives.NewHMAC(primitives.HashSHA256, 8))})
	register(&Algorithm{ID: 5, Name: "HMAC 256/256", Kind: KindMAC, Hash: crypto.SHA256, HashID: primitives.HashSHA256, TagLen: 32, KeyType: KeyTypeSymmetric,
		mac: must(primitives.NewHMAC(primitives.HashSHA256, 32))})
	register(&Algorithm{ID: 6, Name: "HMAC 384/384", Kind: KindMAC, Hash: crypto.SHA384, HashID: primitives.HashSHA384, TagLen: 48, KeyType: KeyTypeSymmetric,
		mac: must(primitives.NewHMAC(primitives.HashSHA384, 48))})
	register(&Algorithm{ID: 7, Name: "HMAC 512/512", Kind: KindMAC, Hash: crypto.SHA512, HashID: primitives.HashSHA512, TagLen: 64, KeyType: KeyTypeSymmetric,
		mac: must(primitives.NewHMAC(primitives.HashSHA512, 64))})

	register(&Algorithm{ID: 14, Name: "AES-MAC-128/64", Kind: KindMAC, KeyLen: 16, TagLen: 8, KeyType: KeyTypeSymmetric,
		mac: primitives.NewAESCBCMAC(16, 8)})
	register(&Algorithm{ID: 15, Name: "AES-MAC-256/64", Kind: KindMAC, KeyLen: 32, TagLen: 8, KeyType: KeyTypeSymmetric,
		mac: primitives.NewAESCBCMAC(32, 8)})
	register(&Algorithm{ID: 25, Name: "AES-MAC-128/128", Kind: KindMAC, KeyLen: 16, TagLen: 16, KeyType: KeyTypeSymmetric,
		mac: primitives.NewAESCBCMAC(16, 16)})
	register(&Algorithm{ID: 26, Name: "AES-MAC-256/128", Kind: KindMAC, KeyLen: 32, TagLen: 16, KeyType: KeyTypeSymmetric,
		mac: primitives.NewAESCBCMAC(32, 16)})

	// AEAD algorithms.
	register(&Algorithm{ID: 1, Name: "A128GCM", Kind: KindAEAD, KeyLen: 16, NonceLen: 12, TagLen: 16, KeyType: KeyTypeSymmetric,
		aead: primitives.NewAESGCM(16)})
	register(&Algorithm{ID: 2, Name: "A192GCM", Kind: KindAEAD, KeyLen: 24, NonceLen: 12, TagLen: 16, KeyType: KeyTypeSymmetric,
		aead: primitives.NewAESGCM(24)})
	register(&Algorithm{ID: 3, Name: "A256GCM", Kind: KindAEAD, KeyLen: 32, NonceLen: 12, TagLen: 16, KeyType: KeyTypeSymmetric,
		aead: primitives.NewAESGCM(32)})

	register(&Algorithm{ID: 10, Name: "AES-CCM-16-64-128", Kind: KindAEAD, KeyLen: 16, NonceLen: 13, TagLen: 8, KeyType: KeyTypeSymmetric,
		aead: primitives.NewAESCCM(16, 13, 8)})
	register(&Algorithm{ID: 11, Name: "AES-CCM-16-64-256", Kind: KindAEAD, KeyLen: 32, NonceLen: 13, TagLen: 8, KeyType: KeyTypeSymmetric,
		aead: primitives.NewAESCCM(32, 13, 8)})
	register(&Algorithm{ID: 12, Name: "AES-CCM-64-64-128", Kind: KindAEAD, KeyLen: 16, NonceLen: 7, TagLen: 8, KeyType: KeyTypeSymmetric,
		aead: primitives.NewAESCCM(16, 7, 8)})
	register(&Algorithm{ID: 13, Name: "AES-CCM-64-64-256", Kind: KindAEAD, KeyLen: 32, NonceLen: 7, TagLen: 8, KeyType: KeyTypeSymmetric,
		aead: primitives.NewAESCCM(32, 7, 8)})
	register(&Algorithm{ID: 30, Name: "AES-CCM-16-128-128", Kind: KindAEAD, KeyLen: 16, NonceLen: 13, TagLen: 16, KeyType: KeyTypeSymmetric,
		aead: primitives.NewAESCCM(16, 13, 16)})
	register(&Algorithm{ID: 31, Name: "AES-CCM-16-128-256", Kind: KindAEAD, KeyLen: 32, NonceLen: 13, TagLen: 16, KeyType: KeyTypeSymmetric,
		aead: primitives.NewAESCCM(32, 13, 16)})
	register(&Algorithm{ID: 32, Name: "AES-CCM-64-128-128", Kind: KindAEAD, KeyLen: 16, NonceLen: 7, TagLen: 16, KeyType: KeyTypeSymmetric,
		aead: primitives.NewAESCCM(16, 7, 16)})
	register(&Algorithm{ID: 33, Name: "AES-CCM-64-128-256", Kind: KindAEAD, KeyLen: 32, NonceLen: 7, TagLen: 16, KeyType: KeyTypeSymmetric,
		aead: primitives.NewAESCCM(32, 7, 16)})

	register(&Algorithm{ID: 24, Name: "ChaCha20/Poly1305", Kind: KindAEAD, KeyLen: 32, NonceLen: 12, TagLen: 16, KeyType: KeyTypeSymmetric,
		aead: primitives.NewChaCha20Poly1305()})

	// Key-wrap algorithms (also used as the KW stage of KeyAgreementWithKeyWrap).
	register(&Algorithm{ID: -3, Name: "A128KW", Kind: KindKeyWrap, KeyLen: 16, KeyType: KeyTypeSymmetric,
		keywrap: primitives.NewAESKW(16)})
	register(&Algorithm{ID: -4, Name: "A192KW", Kind: KindKeyWrap, KeyLen: 24, KeyType: KeyTypeSymmetric,
		keywrap: primitives.NewAESKW(24)})
	register(&Algorithm{ID: -5, Name: "A256KW", Kind: KindKeyWrap, KeyLen: 32, KeyType: KeyTypeSymmetric,
		keywrap: primitives.NewAESKW(32)})

	// Direct.
	register(&Algorithm{ID: -6, Name: "direct", Kind: KindDirect, KeyType: KeyTypeSymmetric})
	register(&Algorithm{ID: -10, Name: "direct+HKDF-SHA-256", Kind: KindDirect, Hash: crypto.SHA256, HashID: primitives.HashSHA256, KeyType: KeyTypeSymmetric,
		kdf: primitives.NewHKDF()})
	register(&Algorithm{ID: -11, Name: "direct+HKDF-SHA-512", Kind: KindDirect, Hash: crypto.SHA512, HashID: primitives.HashSHA512, KeyType: KeyTypeSymmetric,
		kdf: primitives.NewHKDF()})
	register(&Algorithm{ID: -12, Name: "direct+HKDF-AES-128", Kind: KindDirect, KeyType: KeyTypeSymmetric,
		kdf: primitives.NewHKDF()})
	register(&Algorithm{ID: -13, Name: "direct+HKDF-AES-256", Kind: KindDirect, KeyType: KeyTypeSymmetric,
		kdf: primitives.NewHKDF()})

	// ECDH-ES/SS direct key agreement (no key wrap).
	register(&Algorithm{ID: -25, Name: "ECDH-ES + HKDF-256", Kind: KindDirectKeyAgreement, Hash: crypto.SHA256, HashID: primitives.HashSHA256, KeyType: KeyTypeEC2,
		kdf: primitives.NewHKDF()})
	register(&Algorithm{ID: -26, Name: "ECDH-ES + HKDF-512", Kind: KindDirectKeyAgreement, Hash: crypto.SHA512, HashID: primitives.HashSHA512, KeyType: KeyTypeEC2,
		kdf: primitives.NewHKDF()})
	register(&Algorithm{ID: -27, Name: "ECDH-SS + HKDF-256", Kind: KindDirectKeyAgreement, Hash: crypto.SHA256, HashID: primitives.HashSHA256, KeyType: KeyTypeEC2,
		kdf: primitives.NewHKDF()})
	register(&Algorithm{ID: -28, Name: "ECDH-SS + HKDF-512", Kind: KindDirectKeyAgreement, Hash: crypto.SHA512, HashID: primitives.HashSHA512, KeyType: KeyTypeEC2,
		kdf: primitives.NewHKDF()})

	// ECDH-ES/SS + AES key wrap.
	register(&Algorithm{ID: -29, Name: "ECDH-ES+A128KW", Kind: KindKeyAgreementWithKeyWrap, KeyLen: 16, HashID: primitives.HashSHA256, KeyType: KeyTypeEC2,
		kdf: primitives.NewHKDF(), keywrap: primitives.NewAESKW(16)})
	register(&Algorithm{ID: -30, Name: "ECDH-ES+A192KW", Kind: KindKeyAgreementWithKeyWrap, KeyLen: 24, HashID: primitives.HashSHA256, KeyType: KeyTypeEC2,
		kdf: primitives.NewHKDF(), keywrap: primitives.NewAESKW(24)})
	register(&Algorithm{ID: -31, Name: "ECDH-ES+A256KW", Kind: KindKeyAgreementWithKeyWrap, KeyLen: 32, HashID: primitives.HashSHA256, KeyType: KeyTypeEC2,
		kdf: primitives.NewHKDF(), keywrap: primitives.NewAESKW(32)})
	register(&Algorithm{ID: -32, Name: "ECDH-SS+A128KW", Kind: KindKeyAgreementWithKeyWrap, KeyLen: 16, HashID: primitives.HashSHA256, KeyType: KeyTypeEC2,
		kdf: primitives.NewHKDF(), keywrap: primitives.NewAESKW(16)})
	register(&Algorithm{ID: -33, Name: "ECDH-SS+A192KW", Kind: KindKeyAgreementWithKeyWrap, KeyLen: 24, HashID: primitives.HashSHA256, KeyType: KeyTypeEC2,
		kdf: primitives.NewHKDF(), keywrap: primitives.NewAESKW(24)})
	register(&Algorithm{ID: -34, Name: "ECDH-SS+A256KW", Kind: KindKeyAgreementWithKeyWrap, KeyLen: 32, HashID: primitives.HashSHA256, KeyType: KeyTypeEC2,
		kdf: primitives.NewHKDF(), keywrap: primitives.NewAESKW(32)})
}

func must(m *primitives.HMACPrimitive, err error) *primitives.HMACPrimitive {
	if err != nil {
		panic(err)
	}
	return m
}
