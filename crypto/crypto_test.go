package crypto

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var signingAlgorithms = []Algorithm{EdDSA, ES256, ES256K}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Algorithm
		wantErr  bool
	}{
		{name: "default", input: "", expected: EdDSA},
		{name: "EdDSA", input: "EdDSA", expected: EdDSA},
		{name: "ES256K", input: "ES256K", expected: ES256K},
		{name: "PS256", input: "PS256", expected: PS256},
		{name: "unknown", input: "HS256", wantErr: true},
		{name: "lowercase", input: "eddsa", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alg, err := ParseAlgorithm(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, alg)
		})
	}
}

func TestGenerateKeyPair(t *testing.T) {
	p := NewDefaultProvider()

	for _, alg := range signingAlgorithms {
		t.Run(string(alg), func(t *testing.T) {
			kp, err := p.GenerateKeyPair(alg)
			require.NoError(t, err)

			want, err := alg.KeyType()
			require.NoError(t, err)
			assert.Equal(t, want, kp.Type)

			got, err := KeyTypeOf(kp.Public)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, err := p.GenerateKeyPair(PS256)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestSignVerify(t *testing.T) {
	p := NewDefaultProvider()
	message := []byte("It’s a dangerous business, Frodo, going out your door.")

	for _, alg := range signingAlgorithms {
		t.Run(string(alg), func(t *testing.T) {
			kp, err := p.GenerateKeyPair(alg)
			require.NoError(t, err)

			sig, err := p.Sign(alg, kp.Private, message)
			require.NoError(t, err)

			ok, err := p.Verify(alg, kp.Public, message, sig)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = p.Verify(alg, kp.Public, []byte("tampered"), sig)
			require.NoError(t, err)
			assert.False(t, ok)

			other, err := p.GenerateKeyPair(alg)
			require.NoError(t, err)
			ok, err = p.Verify(alg, other.Public, message, sig)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSignRejectsMismatchedKey(t *testing.T) {
	p := NewDefaultProvider()

	kp, err := p.GenerateKeyPair(EdDSA)
	require.NoError(t, err)

	_, err = p.Sign(ES256, kp.Private, []byte("msg"))
	assert.ErrorIs(t, err, ErrMalformedKey)

	_, err = p.Verify(ES256K, kp.Public, []byte("msg"), []byte("sig"))
	assert.ErrorIs(t, err, ErrMalformedKey)
}

func TestJWKRoundTrip(t *testing.T) {
	p := NewDefaultProvider()

	for _, alg := range signingAlgorithms {
		t.Run(string(alg), func(t *testing.T) {
			kp, err := p.GenerateKeyPair(alg)
			require.NoError(t, err)

			jwk, err := p.ExportJWK(kp.Public)
			require.NoError(t, err)
			assert.NotEmpty(t, jwk.Kty)
			assert.NotEmpty(t, jwk.X)

			pub, err := p.ImportJWK(jwk)
			require.NoError(t, err)
			assert.True(t, EqualPublicKeys(kp.Public, pub))
		})
	}
}

func TestExportJWKShapes(t *testing.T) {
	p := NewDefaultProvider()

	ed, err := p.GenerateKeyPair(EdDSA)
	require.NoError(t, err)
	jwk, err := p.ExportJWK(ed.Public)
	require.NoError(t, err)
	assert.Equal(t, "OKP", jwk.Kty)
	assert.Equal(t, "Ed25519", jwk.Crv)

	k1, err := p.GenerateKeyPair(ES256K)
	require.NoError(t, err)
	jwk, err = p.ExportJWK(k1.Public)
	require.NoError(t, err)
	assert.Equal(t, "EC", jwk.Kty)
	assert.Equal(t, "secp256k1", jwk.Crv)

	_, err = p.ExportJWK(ed.Private)
	assert.ErrorIs(t, err, ErrMalformedKey)
}

func TestImportJWKRejectsGarbage(t *testing.T) {
	p := NewDefaultProvider()

	tests := []struct {
		name string
		jwk  *JWK
	}{
		{name: "nil", jwk: nil},
		{name: "unknown kty", jwk: &JWK{Kty: "oct", X: "AAAA"}},
		{name: "bad ed25519", jwk: &JWK{Kty: "OKP", Crv: "Ed25519", X: "not base64!"}},
		{name: "secp256k1 off curve", jwk: &JWK{Kty: "EC", Crv: "secp256k1",
			X: strings.Repeat("A", 43), Y: strings.Repeat("A", 43)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ImportJWK(tt.jwk)
			assert.ErrorIs(t, err, ErrMalformedKey)
		})
	}
}

func TestPEMRoundTrip(t *testing.T) {
	p := NewDefaultProvider()

	for _, alg := range signingAlgorithms {
		t.Run(string(alg), func(t *testing.T) {
			kp, err := p.GenerateKeyPair(alg)
			require.NoError(t, err)

			privPEM, err := p.ExportPKCS8PEM(kp.Private)
			require.NoError(t, err)
			pubPEM, err := p.ExportSPKIPEM(kp.Public)
			require.NoError(t, err)

			priv, err := p.ImportPKCS8PEM(privPEM)
			require.NoError(t, err)
			pub, err := p.ImportSPKIPEM(pubPEM)
			require.NoError(t, err)
			assert.True(t, EqualPublicKeys(kp.Public, pub))

			derived, err := PublicKeyOf(priv)
			require.NoError(t, err)
			assert.True(t, EqualPublicKeys(kp.Public, derived))
		})
	}
}

func TestImportPEMEscapedNewlines(t *testing.T) {
	p := NewDefaultProvider()

	kp, err := p.GenerateKeyPair(EdDSA)
	require.NoError(t, err)
	pubPEM, err := p.ExportSPKIPEM(kp.Public)
	require.NoError(t, err)

	pub, err := p.ImportSPKIPEM(strings.ReplaceAll(pubPEM, "\n", `\n`))
	require.NoError(t, err)
	assert.True(t, EqualPublicKeys(kp.Public, pub))

	_, err = p.ImportSPKIPEM("not a pem")
	assert.ErrorIs(t, err, ErrMalformedKey)
}

func TestMultibaseHeaders(t *testing.T) {
	p := NewDefaultProvider()

	ed, err := p.GenerateKeyPair(EdDSA)
	require.NoError(t, err)
	edMB, err := p.EncodeMultibase(ed.Public, CodecEd25519Pub)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(edMB, "z6Mk"), edMB)

	x, err := p.GenerateAgreementKeyPair()
	require.NoError(t, err)
	xMB, err := p.EncodeMultibase(x.Public, CodecX25519Pub)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(xMB, "z6LS"), xMB)

	pub, err := p.DecodeMultibase(edMB, CodecEd25519Pub)
	require.NoError(t, err)
	assert.Equal(t, ed.Public, pub)

	_, err = p.DecodeMultibase(xMB, CodecEd25519Pub)
	assert.ErrorIs(t, err, ErrMalformedKey)
}

func TestMultikeyRoundTrip(t *testing.T) {
	p := NewDefaultProvider()

	for _, alg := range signingAlgorithms {
		kp, err := p.GenerateKeyPair(alg)
		require.NoError(t, err)

		codec, err := CodecFor(kp.Type)
		require.NoError(t, err)

		for _, c := range []Multicodec{codec, CodecJWKJCSPub} {
			encoded, err := p.EncodeMultibase(kp.Public, c)
			require.NoError(t, err)

			got, pub, err := p.DecodeMultikey(encoded)
			require.NoError(t, err)
			assert.Equal(t, c, got)
			assert.True(t, EqualPublicKeys(kp.Public, pub), "%s/0x%x", alg, uint64(c))
		}
	}
}

func TestJWKJCSEncodingIsDeterministic(t *testing.T) {
	p := NewDefaultProvider()

	kp, err := p.GenerateKeyPair(EdDSA)
	require.NoError(t, err)

	a, err := p.EncodeMultibase(kp.Public, CodecJWKJCSPub)
	require.NoError(t, err)
	b, err := p.EncodeMultibase(ed25519.PublicKey(append([]byte(nil), kp.Public.(ed25519.PublicKey)...)), CodecJWKJCSPub)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	codec, pub, err := p.DecodeMultikey(a)
	require.NoError(t, err)
	assert.Equal(t, CodecJWKJCSPub, codec)
	assert.True(t, EqualPublicKeys(kp.Public, pub))
}

func TestPrivateMultibase(t *testing.T) {
	p := NewDefaultProvider()

	ed, err := p.GenerateKeyPair(EdDSA)
	require.NoError(t, err)
	privMB, err := p.EncodeMultibase(ed.Private, CodecEd25519Priv)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(privMB, "z"))

	_, err = p.EncodeMultibase(ed.Public, CodecEd25519Priv)
	assert.ErrorIs(t, err, ErrMalformedKey)
}

func TestDecodeMultikeyRejectsGarbage(t *testing.T) {
	p := NewDefaultProvider()

	for _, value := range []string{"", "z", "mAAAA", "z1111111", "zQ3s"} {
		_, _, err := p.DecodeMultikey(value)
		assert.Error(t, err, value)
	}
}

func TestEnvelope(t *testing.T) {
	p := NewDefaultProvider()
	message := []byte("hello")

	for _, alg := range signingAlgorithms {
		t.Run(string(alg), func(t *testing.T) {
			kp, err := p.GenerateKeyPair(alg)
			require.NoError(t, err)

			env, err := Sign(p, alg, kp.Private, message, "did:example:123#key-1")
			require.NoError(t, err)

			parsed, err := ParseCompact(env.Compact())
			require.NoError(t, err)
			assert.Equal(t, alg, parsed.Header.Alg)
			assert.Equal(t, "did:example:123#key-1", parsed.Header.Kid)
			assert.Equal(t, message, parsed.Payload)

			ok, err := parsed.VerifyWith(p, kp.Public)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestEnvelopeDetached(t *testing.T) {
	p := NewDefaultProvider()

	kp, err := p.GenerateKeyPair(EdDSA)
	require.NoError(t, err)
	env, err := Sign(p, EdDSA, kp.Private, []byte("payload"), "")
	require.NoError(t, err)

	parts := strings.Split(env.Compact(), ".")
	detached := parts[0] + ".." + parts[2]

	parsed, err := ParseCompact(detached)
	require.NoError(t, err)
	assert.True(t, parsed.IsDetached())

	parsed.Detached([]byte("payload"))
	ok, err := parsed.VerifyWith(p, kp.Public)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParseCompactErrors(t *testing.T) {
	for _, input := range []string{"", "a.b", "a.b.c.d", "!!.e30.AA", "e30.e30.AA"} {
		_, err := ParseCompact(input)
		assert.ErrorIs(t, err, ErrMalformedSignature, input)
	}
}
