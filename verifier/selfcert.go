package verifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/pilacorp/go-did-sdk/crypto"
	"github.com/pilacorp/go-did-sdk/did"
	"github.com/pilacorp/go-did-sdk/keymaterial"
)

// CanaryMessage is signed during self-certification.
const CanaryMessage = "It’s a dangerous business, Frodo, going out your door."

// SelfCertify proves that a freshly minted identity round-trips: the canary
// is signed with km, id is resolved from scratch, and the signature must
// verify under a key taken from the resolved document that equals km's
// public key.
func (v *Verifier) SelfCertify(ctx context.Context, id string, km *keymaterial.KeyMaterial) error {
	err := v.selfCertify(ctx, id, km)
	if err != nil {
		v.logger.ErrorContext(ctx, "self-certification failed", "did", id, "algorithm", km.Algorithm, "error", err)
		return did.Errorf(did.KindSelfCertificationFailed, "%s: %w", id, err)
	}
	return nil
}

func (v *Verifier) selfCertify(ctx context.Context, id string, km *keymaterial.KeyMaterial) error {
	if !km.HasPrivate() {
		return did.Errorf(did.KindMalformedKey, "key material has no private key")
	}

	message := []byte(CanaryMessage)

	env, err := crypto.Sign(v.provider, km.Algorithm, km.PrivateKey, message, "")
	if err != nil {
		return did.FromProvider(err)
	}

	doc, err := v.resolver.ResolveDocument(ctx, id)
	if err != nil {
		return err
	}

	vm, resolved, err := v.trial(doc, message, env)
	if err != nil {
		return err
	}
	if vm == nil {
		return errors.New("canary signature does not verify against the resolved document")
	}
	if !crypto.EqualPublicKeys(resolved, km.PublicKey) {
		return fmt.Errorf("resolved key %s differs from the generated key", vm.ID)
	}

	return nil
}
