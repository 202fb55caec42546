// Package checksum fingerprints migration scripts so drift between the ledger
// and the files on disk can be detected.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/cbergoon/merkletree"

	"github.com/hlop3z/pgledger/internal/alerr"
)

// Sum returns the hex SHA-256 of the raw script bytes. No normalisation is
// applied: a whitespace edit is drift.
func Sum(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// Matches reports whether content still hashes to the stored checksum.
func Matches(content []byte, stored string) bool {
	return Sum(content) == stored
}

// Pair is one ledger row as seen by the digest: a version and its stored checksum.
type Pair struct {
	Version  string
	Checksum string
}

// pairContent implements merkletree.Content for ledger rows.
type pairContent struct {
	version  string
	checksum string
}

func (p pairContent) CalculateHash() ([]byte, error) {
	h := sha256.Sum256([]byte(p.version + ":" + p.checksum))
	return h[:], nil
}

func (p pairContent) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(pairContent)
	if !ok {
		return false, nil
	}
	return p.version == o.version && p.checksum == o.checksum, nil
}

// Digest computes a merkle root over the given pairs, sorted by version.
// Two databases with identical ledgers produce the same digest, which makes
// it a cheap value to compare across environments.
func Digest(pairs []Pair) (string, error) {
	if len(pairs) == 0 {
		return emptyDigest(), nil
	}

	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	contents := make([]merkletree.Content, len(sorted))
	for i, p := range sorted {
		contents[i] = pairContent{version: p.Version, checksum: p.Checksum}
	}

	tree, err := merkletree.NewTree(contents)
	if err != nil {
		return "", alerr.Wrap(alerr.EInternalError, err, "failed to build ledger digest")
	}
	return hex.EncodeToString(tree.MerkleRoot()), nil
}

func emptyDigest() string {
	return Sum([]byte("empty_ledger"))
}
