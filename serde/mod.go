// Package serde defines the primitives to serialize and deserialize (serde)
// the messages of the ledger and its contracts.
//
// A message does not know how it is encoded. It looks up the engine of the
// format requested by the context in a registry, which allows new formats to
// be added by a simple import of their package.
package serde

import "io"

// Format is the identifier of a serialization format.
type Format string

const (
	// FormatJSON is the identifier of the JSON format.
	FormatJSON Format = "JSON"
)

// Message is the interface a data model should implement to be serialized.
type Message interface {
	// Serialize returns the data of the message in the format of the context.
	Serialize(ctx Context) ([]byte, error)
}

// Fingerprinter is the interface of a message that can produce a
// deterministic binary representation of itself.
type Fingerprinter interface {
	Fingerprint(writer io.Writer) error
}

// Factory is the interface to implement to instantiate a message from its
// serialized form.
type Factory interface {
	// Deserialize returns the message of the data, or an error if it cannot be
	// decoded.
	Deserialize(ctx Context, data []byte) (Message, error)
}

// FormatEngine is the interface an implementation of a format must implement
// for a given family of messages.
type FormatEngine interface {
	// Encode returns the data of the message in the format of the engine.
	Encode(ctx Context, message Message) ([]byte, error)

	// Decode returns the message of the data.
	Decode(ctx Context, data []byte) (Message, error)
}

// ContextEngine is the interface to implement to create a context.
type ContextEngine interface {
	// GetFormat returns the name of the format for this context.
	GetFormat() Format

	// Marshal returns the bytes of the message according to the format of the
	// context.
	Marshal(message interface{}) ([]byte, error)

	// Unmarshal populates the message with the data according to the format of
	// the context.
	Unmarshal(data []byte, message interface{}) error
}

// Context is the context passed to the serialization/deserialization requests.
type Context struct {
	ContextEngine

	factories map[interface{}]Factory
}

// NewContext returns a new empty context.
func NewContext(engine ContextEngine) Context {
	return Context{
		ContextEngine: engine,
		factories:     make(map[interface{}]Factory),
	}
}

// GetFactory returns the factory associated to the key or nil.
func (ctx Context) GetFactory(key interface{}) Factory {
	return ctx.factories[key]
}

// WithFactory adds a factory to the context. The factory will then be
// available with the key when deserializing.
func WithFactory(ctx Context, key interface{}, f Factory) Context {
	factories := map[interface{}]Factory{}

	for key, value := range ctx.factories {
		factories[key] = value
	}

	factories[key] = f

	// Prevent parent context from being contaminated with the new factory.
	ctx.factories = factories

	return ctx
}
