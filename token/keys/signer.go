package keys

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer abstracts signing and verification so the token issuer does not
// care where the key material lives.
type Signer interface {
	// Sign creates a signed JWT with the given claims.
	Sign(claims jwt.MapClaims) (string, error)

	// GetVerificationKey returns the key used to verify a token signature.
	GetVerificationKey(token *jwt.Token) (any, error)

	// GetSigningMethod returns the signing method in use.
	GetSigningMethod() jwt.SigningMethod
}

var _ Signer = (*KeyPairSigner)(nil)

// KeyPairSigner signs tokens with a local RSA key pair.
type KeyPairSigner struct {
	keyPair *KeyPair
}

func NewKeyPairSigner(keyPair *KeyPair) *KeyPairSigner {
	return &KeyPairSigner{keyPair: keyPair}
}

func (s *KeyPairSigner) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(s.keyPair.GetSigningMethod(), claims)
	token.Header["kid"] = s.keyPair.KeyID

	signed, err := token.SignedString(s.keyPair.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *KeyPairSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.keyPair.PublicKey, nil
}

func (s *KeyPairSigner) GetSigningMethod() jwt.SigningMethod {
	return s.keyPair.GetSigningMethod()
}
