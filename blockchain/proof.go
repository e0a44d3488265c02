package blockchain

import (
	"math"
	"strconv"
	"strings"

	"github.com/pdkilimba/ledgerd/primitives"
)

// Target is the fixed 64-hex-character proof-of-work target every mined
// block's hash must come in under, compared as equal-length hex strings.
// 16^61 == 2^244 == 1<<(256-12), so this is the same difficulty as a
// 256-bit target built from a 12-bit shift, just expressed as the literal
// hex string a miner compares against instead of a big.Int.
var Target = "001" + strings.Repeat("0", 61)

type ProofOfWork struct {
	Block  *Block
	target string
}

// NewProof builds the miner/verifier for b against the fixed Target.
func NewProof(b *Block) *ProofOfWork {
	return &ProofOfWork{Block: b, target: Target}
}

// preimage is prev_hash || merkle_root || ascii(timestamp) || target || ascii(nonce).
func (pow *ProofOfWork) preimage(nonce int) []byte {
	data := make([]byte, 0, len(pow.Block.PrevHash)+32+32+len(pow.target)+20)
	data = append(data, pow.Block.PrevHash...)
	data = append(data, pow.Block.MerkleRoot...)
	data = append(data, []byte(strconv.FormatInt(pow.Block.Timestamp, 10))...)
	data = append(data, []byte(pow.target)...)
	data = append(data, []byte(strconv.Itoa(nonce))...)
	return data
}

// Run searches for a nonce whose preimage hashes below target, returning the
// nonce and the winning hash (as the 64-hex-character string compared
// against target, per the block's hash invariant).
func (pow *ProofOfWork) Run() (int, string) {
	var hashHex string

	for nonce := 0; nonce < math.MaxInt32; nonce++ {
		hash := primitives.Sha256(pow.preimage(nonce))
		hashHex = hexString(hash)
		if hashHex < pow.target {
			return nonce, hashHex
		}
	}
	return 0, hashHex
}

// Validate recomputes the hash for the block's stored nonce and checks it
// against the target; this is the cheap side of proof-of-work.
func (pow *ProofOfWork) Validate() bool {
	hash := primitives.Sha256(pow.preimage(pow.Block.Nonce))
	return hexString(hash) < pow.target
}

const hexDigits = "0123456789abcdef"

func hexString(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}
