package types

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/core/txn/signed"
	"go.dedis.ch/ballot/core/validation"
	"go.dedis.ch/ballot/core/validation/simple"
	"go.dedis.ch/ballot/internal/testing/fake"
	"go.dedis.ch/ballot/serde"
)

func init() {
	RegisterBlockFormat(fake.GoodFormat, fake.Format{Msg: Block{}})
	RegisterBlockFormat(fake.BadFormat, fake.NewBadFormat())
	RegisterBlockFormat(serde.Format("BAD_TYPE"), fake.Format{Msg: fake.Message{}})
}

func TestBlock_New(t *testing.T) {
	block, err := NewBlock(makeResults(t), WithIndex(2), WithTime(42), WithPrevious([]byte{1}))
	require.NoError(t, err)
	require.Equal(t, uint64(2), block.GetIndex())
	require.Equal(t, int64(42), block.GetTime())
	require.Equal(t, []byte{1}, block.GetPrevious())
	require.Len(t, block.GetHash(), 32)
	require.Len(t, block.GetResults(), 2)

	other, err := NewBlock(makeResults(t), WithIndex(3), WithTime(42), WithPrevious([]byte{1}))
	require.NoError(t, err)
	require.NotEqual(t, block.GetHash(), other.GetHash())

	_, err = NewBlock(nil, WithHashFactory(fake.NewHashFactory(fake.NewBadHash())))
	require.EqualError(t, err, fake.Err("fingerprint failed: couldn't write header"))
}

func TestBlock_Fingerprint(t *testing.T) {
	block, err := NewBlock(makeResults(t), WithIndex(1), WithTime(2))
	require.NoError(t, err)

	buffer := new(bytes.Buffer)
	require.NoError(t, block.Fingerprint(buffer))
	require.Equal(t, "\x01\x00\x00\x00\x00\x00\x00\x00\x02\x00\x00\x00\x00\x00\x00\x00", buffer.String()[:16])
	require.Equal(t, byte(1), buffer.Bytes()[16+12])

	err = block.Fingerprint(fake.NewBadHashWithDelay(1))
	require.EqualError(t, err, fake.Err("couldn't write previous"))

	err = block.Fingerprint(fake.NewBadHashWithDelay(2))
	require.EqualError(t, err, fake.Err("couldn't fingerprint tx: couldn't write nonce"))

	err = block.Fingerprint(fake.NewBadHashWithDelay(5))
	require.EqualError(t, err, fake.Err("couldn't write status"))
}

func TestBlock_Serialize(t *testing.T) {
	block, err := NewBlock(nil)
	require.NoError(t, err)

	data, err := block.Serialize(fake.NewContext())
	require.NoError(t, err)
	require.Equal(t, fake.GetFakeFormatValue(), data)

	_, err = block.Serialize(fake.NewBadContext())
	require.EqualError(t, err, fake.Err("encoding failed"))
}

func TestBlockFactory_Deserialize(t *testing.T) {
	factory := NewBlockFactory(signed.NewTransactionFactory())

	msg, err := factory.Deserialize(fake.NewContext(), nil)
	require.NoError(t, err)
	require.IsType(t, Block{}, msg)

	_, err = factory.Deserialize(fake.NewBadContext(), nil)
	require.EqualError(t, err, fake.Err("decoding failed"))

	_, err = factory.Deserialize(fake.NewContextWithFormat(serde.Format("BAD_TYPE")), nil)
	require.EqualError(t, err, "invalid block of type 'fake.Message'")
}

// -----------------------------------------------------------------------------
// Utility functions

func makeResults(t *testing.T) []validation.TransactionResult {
	first, err := signed.NewTransaction(0, fake.PublicKey{}, signed.WithArg("A", []byte{1}))
	require.NoError(t, err)

	second, err := signed.NewTransaction(1, fake.PublicKey{})
	require.NoError(t, err)

	return []validation.TransactionResult{
		simple.NewTransactionResult(first, true, ""),
		simple.NewTransactionResult(second, false, "oops"),
	}
}
