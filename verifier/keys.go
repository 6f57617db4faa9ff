package verifier

import (
	gocrypto "crypto"

	"github.com/pilacorp/go-did-sdk/crypto"
	"github.com/pilacorp/go-did-sdk/did"
)

// PublicKey decodes the key held by a verification method, choosing the
// decoder from the method type.
func PublicKey(p crypto.Provider, vm *did.VerificationMethod) (gocrypto.PublicKey, error) {
	var (
		pub gocrypto.PublicKey
		err error
	)

	switch {
	case vm.Type == did.TypeJSONWebKey2020:
		if vm.PublicKeyJwk == nil {
			return nil, did.Errorf(did.KindMalformedKey, "%s has no publicKeyJwk", vm.ID)
		}
		pub, err = p.ImportJWK(vm.PublicKeyJwk)
	case vm.Type == did.TypeEd25519VerificationKey2020:
		pub, err = p.DecodeMultibase(vm.PublicKeyMultibase, crypto.CodecEd25519Pub)
	case vm.Type == did.TypeX25519KeyAgreementKey2020:
		pub, err = p.DecodeMultibase(vm.PublicKeyMultibase, crypto.CodecX25519Pub)
	case vm.PublicKeyJwk != nil:
		pub, err = p.ImportJWK(vm.PublicKeyJwk)
	case vm.PublicKeyMultibase != "":
		_, pub, err = p.DecodeMultikey(vm.PublicKeyMultibase)
	default:
		return nil, did.Errorf(did.KindMalformedKey, "%s carries no supported key", vm.ID)
	}
	if err != nil {
		return nil, did.Wrap(did.KindMalformedKey, err, "failed to decode "+vm.ID)
	}

	return pub, nil
}
