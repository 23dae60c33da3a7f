package fake

import "go.dedis.ch/ballot/serde"

var fakeFormatValue = []byte("fake format")

// GetFakeFormatValue returns the data returned by the fake format encoder.
func GetFakeFormatValue() []byte {
	return fakeFormatValue
}

// Format is a fake format engine implementation.
//
// - implements serde.FormatEngine
type Format struct {
	err  error
	Msg  serde.Message
	Call *Call
	Data []byte
}

// NewBadFormat returns a format that always returns an error.
func NewBadFormat() Format {
	return Format{err: fakeErr}
}

// Encode implements serde.FormatEngine.
func (f Format) Encode(ctx serde.Context, m serde.Message) ([]byte, error) {
	if f.Call != nil {
		f.Call.Add(ctx, m)
	}

	if f.err != nil {
		return nil, f.err
	}

	if f.Data != nil {
		return f.Data, nil
	}

	return fakeFormatValue, nil
}

// Decode implements serde.FormatEngine.
func (f Format) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	if f.Call != nil {
		f.Call.Add(ctx, data)
	}

	return f.Msg, f.err
}
