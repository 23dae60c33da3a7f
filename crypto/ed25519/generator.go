package ed25519

import (
	"golang.org/x/xerrors"
)

// Generator generates new private keys.
//
// - implements loader.Generator
type Generator struct{}

// NewGenerator returns a new generator of private keys.
func NewGenerator() Generator {
	return Generator{}
}

// Generate implements loader.Generator. It returns the marshaled data of a new
// private key.
func (g Generator) Generate() ([]byte, error) {
	data, err := NewSigner().MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal signer: %v", err)
	}

	return data, nil
}
