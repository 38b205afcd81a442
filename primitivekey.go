package cose

import "github.com/silvergate-labs/cose/keys"

// signingKey extracts the crypto key material a Signer primitive expects
// for generating a signature: the key variant's private component.
func signingKey(key keys.Key) (interface{}, error) {
	switch k := key.(type) {
	case *keys.EC2Key:
		return k.PrivateKey()
	case *keys.OKPKey:
		return k.PrivateKey()
	case *keys.RSAKey:
		return k.PrivateKey()
	default:
		return nil, newErr(KindInvalidKey, "key type has no signing key material", nil)
	}
}

// verifyingKey extracts the crypto key material a Signer primitive expects
// for checking a signature: the key variant's public component.
func verifyingKey(key keys.Key) (interface{}, error) {
	switch k := key.(type) {
	case *keys.EC2Key:
		return k.PublicKey()
	case *keys.OKPKey:
		return k.PublicKey()
	case *keys.RSAKey:
		return k.PublicKey(), nil
	default:
		return nil, newErr(KindInvalidKey, "key type has no verifying key material", nil)
	}
}

// symmetricKeyBytes extracts the raw secret bytes a MAC or AEAD primitive
// operates on.
func symmetricKeyBytes(key keys.Key) ([]byte, error) {
	sym, ok := key.(*keys.SymmetricKey)
	if !ok {
		return nil, newErr(KindInvalidKey, "operation requires a symmetric key", nil)
	}
	return sym.K, nil
}
