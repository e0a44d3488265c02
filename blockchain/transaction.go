package blockchain

import (
	"bytes"
	"crypto/ed25519"
	cryptorand "crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/pdkilimba/ledgerd/primitives"
	"github.com/pdkilimba/ledgerd/wallet"
)

// SUBSIDY is the coinbase reward paid for mining a block. There is no
// halving schedule; this is a flat, permanent reward.
const SUBSIDY = 10

// TxOutput locks a value to the holder of a public key. The lock is a
// public-key hash, never a raw public key, so outputs can be created for an
// address without ever seeing its public key.
type TxOutput struct {
	Value      int32
	PubKeyHash []byte
}

// NewTXOutput builds an output paying value to address.
func NewTXOutput(value int, address string) (*TxOutput, error) {
	out := &TxOutput{Value: int32(value)}
	if err := out.Lock(address); err != nil {
		return nil, err
	}
	return out, nil
}

// Lock sets the output's public-key hash from a base-58 address.
func (out *TxOutput) Lock(address string) error {
	pubKeyHash, err := wallet.PubKeyHashFromAddress(address)
	if err != nil {
		return fmt.Errorf("locking output: %w", err)
	}
	out.PubKeyHash = pubKeyHash
	return nil
}

// IsLockedWithKey reports whether pubKeyHash can spend this output.
func (out *TxOutput) IsLockedWithKey(pubKeyHash []byte) bool {
	return bytes.Equal(out.PubKeyHash, pubKeyHash)
}

// TxOutputs is the unit the UTXO set indexes by transaction id: every
// still-unspent output a transaction produced.
type TxOutputs struct {
	Outputs []TxOutput
}

// Serialize encodes a TxOutputs set for storage in the UTXO index.
func (outs TxOutputs) Serialize() ([]byte, error) {
	data, err := cbor.Marshal(outs)
	if err != nil {
		return nil, fmt.Errorf("serializing outputs: %w", err)
	}
	return data, nil
}

// DeserializeOutputs decodes a TxOutputs set produced by Serialize.
func DeserializeOutputs(data []byte) (TxOutputs, error) {
	var outs TxOutputs
	if err := cbor.Unmarshal(data, &outs); err != nil {
		return TxOutputs{}, fmt.Errorf("deserializing outputs: %w", err)
	}
	return outs, nil
}

// TxInput references an output of a previous transaction it spends.
// TxID is "" and Out is -1 only for a coinbase input, which spends nothing.
type TxInput struct {
	TxID      string
	Out       int
	Signature []byte
	PublicKey []byte
}

// UsesKey reports whether pubKeyHash is the hash of this input's public key,
// i.e. whether the holder of pubKeyHash's private key could have signed it.
func (in *TxInput) UsesKey(pubKeyHash []byte) bool {
	return bytes.Equal(primitives.PublicKeyHash(in.PublicKey), pubKeyHash)
}

// Transaction moves value from referenced previous outputs (Inputs) to new
// outputs (Outputs). ID is the hex SHA-256 digest of the transaction with ID
// cleared, computed once after Inputs/Outputs are final and before signing.
type Transaction struct {
	ID      string
	Inputs  []TxInput
	Outputs []TxOutput
}

// IsCoinbase reports whether tx is a block-reward transaction: exactly one
// input, referencing no previous output.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].TxID == "" && tx.Inputs[0].Out == -1
}

// digest is the raw SHA-256 hash of tx's CBOR encoding with ID cleared. It
// is both the value hex-encoded into tx.ID and the message signed/verified
// per input (with that input's PublicKey slot temporarily substituted by
// the spent output's lock — see Sign/Verify).
func (tx *Transaction) digest() ([]byte, error) {
	txCopy := *tx
	txCopy.ID = ""
	data, err := cbor.Marshal(txCopy)
	if err != nil {
		return nil, fmt.Errorf("encoding transaction for hashing: %w", err)
	}
	return primitives.Sha256(data), nil
}

// SetID computes and assigns tx.ID from the transaction's current
// Inputs/Outputs. Call once, after they're final, before signing.
func (tx *Transaction) SetID() error {
	digest, err := tx.digest()
	if err != nil {
		return err
	}
	tx.ID = hex.EncodeToString(digest)
	return nil
}

// TrimmedCopy returns a copy of tx with every input's Signature and
// PublicKey cleared; signing and verification both build the per-input
// signing payload on top of this copy, never the original.
func (tx *Transaction) TrimmedCopy() Transaction {
	inputs := make([]TxInput, len(tx.Inputs))
	for i, in := range tx.Inputs {
		inputs[i] = TxInput{TxID: in.TxID, Out: in.Out}
	}

	outputs := make([]TxOutput, len(tx.Outputs))
	copy(outputs, tx.Outputs)

	return Transaction{ID: tx.ID, Inputs: inputs, Outputs: outputs}
}

// Sign signs every input of tx with priv. prevTXs must map the hex id of
// every transaction an input spends from to that transaction. Coinbase
// transactions are never signed: they don't spend anything.
func (tx *Transaction) Sign(priv ed25519.PrivateKey, prevTXs map[string]Transaction) error {
	if tx.IsCoinbase() {
		return nil
	}

	for _, in := range tx.Inputs {
		if _, ok := prevTXs[in.TxID]; !ok {
			return fmt.Errorf("%w: previous transaction %s not found", ErrInvalidTransaction, in.TxID)
		}
	}

	txCopy := tx.TrimmedCopy()
	for i, in := range txCopy.Inputs {
		prevTx := prevTXs[in.TxID]
		txCopy.Inputs[i].PublicKey = prevTx.Outputs[in.Out].PubKeyHash

		digest, err := txCopy.digest()
		if err != nil {
			return err
		}
		txCopy.Inputs[i].PublicKey = nil

		tx.Inputs[i].Signature = primitives.Sign(priv, digest)
	}
	return nil
}

// Verify reports whether every input of tx carries a valid signature over
// the output it claims to spend. prevTXs must map the hex id of every
// transaction an input spends from to that transaction.
func (tx *Transaction) Verify(prevTXs map[string]Transaction) (bool, error) {
	if tx.IsCoinbase() {
		return true, nil
	}

	for _, in := range tx.Inputs {
		if _, ok := prevTXs[in.TxID]; !ok {
			return false, fmt.Errorf("%w: previous transaction %s not found", ErrInvalidTransaction, in.TxID)
		}
	}

	txCopy := tx.TrimmedCopy()
	for i, in := range tx.Inputs {
		prevTx := prevTXs[in.TxID]
		txCopy.Inputs[i].PublicKey = prevTx.Outputs[in.Out].PubKeyHash

		digest, err := txCopy.digest()
		if err != nil {
			return false, err
		}
		txCopy.Inputs[i].PublicKey = nil

		if !primitives.Verify(in.PublicKey, digest, in.Signature) {
			return false, nil
		}
	}
	return true, nil
}

// NewCoinbaseTX builds the reward transaction for a freshly mined block,
// paying SUBSIDY to to. When data is empty a random 30-character payload
// fills it instead, so two coinbase transactions paying the same address
// never collide on id.
func NewCoinbaseTX(to, data string) (*Transaction, error) {
	if data == "" {
		random, err := randomASCII(30)
		if err != nil {
			return nil, err
		}
		data = random
	}

	txIn := TxInput{TxID: "", Out: -1, PublicKey: []byte(data)}
	txOut, err := NewTXOutput(SUBSIDY, to)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{Inputs: []TxInput{txIn}, Outputs: []TxOutput{*txOut}}
	if err := tx.SetID(); err != nil {
		return nil, err
	}
	return tx, nil
}

// NewUTXOTransaction builds and signs a transaction paying amount from
// from's wallet to address to, drawing on utxoSet for spendable inputs and
// returning any change to from.
func NewUTXOTransaction(from *wallet.Wallet, to string, amount int, utxoSet *UTXOSet) (*Transaction, error) {
	pubKeyHash := from.PublicKeyHash()

	acc, validOutputs, err := utxoSet.FindSpendableOutputs(pubKeyHash, amount)
	if err != nil {
		return nil, err
	}
	if acc < amount {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, acc, amount)
	}

	var inputs []TxInput
	for txID, outs := range validOutputs {
		for _, outIdx := range outs {
			inputs = append(inputs, TxInput{TxID: txID, Out: outIdx, PublicKey: from.PublicKey})
		}
	}

	payTo, err := NewTXOutput(amount, to)
	if err != nil {
		return nil, err
	}
	outputs := []TxOutput{*payTo}

	if acc > amount {
		change, err := NewTXOutput(acc-amount, from.Address())
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, *change)
	}

	tx := &Transaction{Inputs: inputs, Outputs: outputs}
	if err := tx.SetID(); err != nil {
		return nil, err
	}

	if err := utxoSet.Blockchain.SignTransaction(tx, from.PrivateKey); err != nil {
		return nil, err
	}

	return tx, nil
}

// String renders a human-readable summary of tx, used by printchain and by
// log lines that need to show a transaction without dumping raw bytes.
func (tx Transaction) String() string {
	var lines []string
	lines = append(lines, fmt.Sprintf("--- Transaction %s:", tx.ID))
	for i, in := range tx.Inputs {
		lines = append(lines, fmt.Sprintf("     Input %d:", i))
		lines = append(lines, fmt.Sprintf("       TxID:      %s", in.TxID))
		lines = append(lines, fmt.Sprintf("       Out:       %d", in.Out))
		lines = append(lines, fmt.Sprintf("       Signature: %x", in.Signature))
		lines = append(lines, fmt.Sprintf("       PublicKey: %x", in.PublicKey))
	}
	for i, out := range tx.Outputs {
		lines = append(lines, fmt.Sprintf("     Output %d:", i))
		lines = append(lines, fmt.Sprintf("       Value:      %d", out.Value))
		lines = append(lines, fmt.Sprintf("       PubKeyHash: %x", out.PubKeyHash))
	}
	return strings.Join(lines, "\n")
}

// Serialize encodes tx for the wire or for mempool storage.
func (tx *Transaction) Serialize() ([]byte, error) {
	data, err := cbor.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("serializing transaction: %w", err)
	}
	return data, nil
}

// DeserializeTransaction decodes a transaction produced by Serialize.
func DeserializeTransaction(data []byte) (Transaction, error) {
	var tx Transaction
	if err := cbor.Unmarshal(data, &tx); err != nil {
		return Transaction{}, fmt.Errorf("deserializing transaction: %w", err)
	}
	return tx, nil
}

const asciiPayloadCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func randomASCII(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := cryptorand.Read(raw); err != nil {
		return "", fmt.Errorf("generating random payload: %w", err)
	}
	out := make([]byte, n)
	for i, b := range raw {
		out[i] = asciiPayloadCharset[int(b)%len(asciiPayloadCharset)]
	}
	return string(out), nil
}
