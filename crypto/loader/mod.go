// Package loader defines how the node reads its private key, and creates it
// on the first start.
package loader

// Generator creates the marshaled form of a new key.
type Generator interface {
	Generate() ([]byte, error)
}

// Loader reads a key from a persistent storage.
type Loader interface {
	// LoadOrCreate returns the stored key, or stores and returns a new one
	// from the generator when none exists.
	LoadOrCreate(Generator) ([]byte, error)

	// Load returns the stored key, or an error if none exists.
	Load() ([]byte, error)
}
