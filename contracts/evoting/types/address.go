package types

import (
	"encoding/binary"

	"go.dedis.ch/ballot/crypto"
)

var (
	electionSeed = []byte("election")
	voterSeed    = []byte("voter")
)

// ElectionAddress returns the address of the election record of the given
// election identifier.
func ElectionAddress(electionID []byte) []byte {
	return deriveAddress(electionSeed, electionID)
}

// VoterAddress returns the address of the voter record of the voter in the
// election. The address only depends on the pair so that a voter owns at most
// one record per election.
func VoterAddress(voter []byte, electionID []byte) []byte {
	return deriveAddress(voterSeed, voter, electionID)
}

// deriveAddress hashes the length-prefixed seeds. Two different lists of seeds
// never produce the same input to the hash.
func deriveAddress(seeds ...[]byte) []byte {
	h := crypto.NewHashFactory(crypto.Sha256).New()

	length := make([]byte, 4)

	for _, seed := range seeds {
		binary.LittleEndian.PutUint32(length, uint32(len(seed)))

		h.Write(length)
		h.Write(seed)
	}

	return h.Sum(nil)
}
