// Package access defines the abstraction of the signer of a transaction.
package access

import "encoding"

// Identity is an abstraction to uniquely identify a signer.
type Identity interface {
	encoding.BinaryMarshaler
	encoding.TextMarshaler

	// Equal returns true when both identities are the same.
	Equal(other interface{}) bool
}
