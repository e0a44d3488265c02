package wallet

import "github.com/mr-tron/base58"

// base58Encode and base58Decode are the only place this package touches the
// base-58 rendering library: address arithmetic everywhere else works on raw
// bytes.
func base58Encode(input []byte) string {
	return base58.Encode(input)
}

func base58Decode(input string) ([]byte, error) {
	return base58.Decode(input)
}
