package crypto

import (
	gocrypto "crypto"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// PEM block types. x509 does not know secp256k1, so those keys travel in
// dedicated blocks holding the raw scalar and the compressed point.
const (
	pemTypePrivateKey          = "PRIVATE KEY"
	pemTypePublicKey           = "PUBLIC KEY"
	pemTypeCertificate         = "CERTIFICATE"
	pemTypeSecp256k1PrivateKey = "SECP256K1 PRIVATE KEY"
	pemTypeSecp256k1PublicKey  = "SECP256K1 PUBLIC KEY"
)

// ImportPKCS8PEM decodes a PKCS#8 private key (or a secp256k1 private key block).
func (p *DefaultProvider) ImportPKCS8PEM(data string) (gocrypto.PrivateKey, error) {
	block, err := decodePEM(data)
	if err != nil {
		return nil, err
	}

	switch block.Type {
	case pemTypePrivateKey:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		if _, err := KeyTypeOf(key); err != nil {
			return nil, err
		}
		return key, nil
	case pemTypeSecp256k1PrivateKey:
		key, err := ethcrypto.ToECDSA(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrMalformedKey, block.Type)
	}
}

// ExportPKCS8PEM encodes a private key as PKCS#8 PEM.
func (p *DefaultProvider) ExportPKCS8PEM(priv gocrypto.PrivateKey) (string, error) {
	kt, err := KeyTypeOf(priv)
	if err != nil {
		return "", err
	}

	if kt == KeyTypeSecp256k1 {
		ecPriv, ok := priv.(*ecdsa.PrivateKey)
		if !ok {
			return "", fmt.Errorf("%w: expected private key, got %T", ErrMalformedKey, priv)
		}
		return encodePEM(pemTypeSecp256k1PrivateKey, ethcrypto.FromECDSA(ecPriv)), nil
	}

	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	return encodePEM(pemTypePrivateKey, der), nil
}

// ImportSPKIPEM decodes an SPKI public key. A certificate block is accepted
// too, yielding the certificate's subject public key.
func (p *DefaultProvider) ImportSPKIPEM(data string) (gocrypto.PublicKey, error) {
	block, err := decodePEM(data)
	if err != nil {
		return nil, err
	}

	var key any
	switch block.Type {
	case pemTypePublicKey:
		key, err = x509.ParsePKIXPublicKey(block.Bytes)
	case pemTypeCertificate:
		var cert *x509.Certificate
		cert, err = x509.ParseCertificate(block.Bytes)
		if err == nil {
			key = cert.PublicKey
		}
	case pemTypeSecp256k1PublicKey:
		var parsed *btcec.PublicKey
		parsed, err = btcec.ParsePubKey(block.Bytes)
		if err == nil {
			key, err = ethcrypto.UnmarshalPubkey(parsed.SerializeUncompressed())
		}
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrMalformedKey, block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	if _, err := KeyTypeOf(key); err != nil {
		return nil, err
	}

	return key, nil
}

// ExportSPKIPEM encodes a public key as SPKI PEM.
func (p *DefaultProvider) ExportSPKIPEM(pub gocrypto.PublicKey) (string, error) {
	kt, err := KeyTypeOf(pub)
	if err != nil {
		return "", err
	}

	if kt == KeyTypeSecp256k1 {
		ecPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return "", fmt.Errorf("%w: expected public key, got %T", ErrMalformedKey, pub)
		}
		return encodePEM(pemTypeSecp256k1PublicKey, ethcrypto.CompressPubkey(ecPub)), nil
	}

	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	return encodePEM(pemTypePublicKey, der), nil
}

func decodePEM(data string) (*pem.Block, error) {
	// Keys supplied through environment variables often carry literal "\n".
	data = strings.ReplaceAll(strings.TrimSpace(data), `\n`, "\n")

	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrMalformedKey)
	}

	return block, nil
}

func encodePEM(blockType string, der []byte) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}))
}
