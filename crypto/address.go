package crypto

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the human-readable part used when rendering addresses.
type AddressPrefix string

// MartPrefix is the canonical prefix for marketplace participant addresses.
const MartPrefix AddressPrefix = "mart"

// Address represents a 20-byte account address with a bech32 prefix.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != 20 {
		return Address{}, fmt.Errorf("address must be 20 bytes long")
	}
	return Address{prefix: prefix, bytes: append([]byte(nil), b...)}, nil
}

// MustNewAddress builds an address and panics on malformed input. Intended for
// fixtures and compile-time constants.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte { return append([]byte(nil), a.bytes...) }

// Array returns the fixed-size form used by the engine.
func (a Address) Array() [20]byte {
	var out [20]byte
	copy(out[:], a.bytes)
	return out
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix { return a.prefix }

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}

// EncodeAddress renders a raw 20-byte address with the canonical prefix.
func EncodeAddress(raw [20]byte) string {
	addr := MustNewAddress(MartPrefix, raw[:])
	return addr.String()
}

// DeriveModuleAddress deterministically derives an address owned by nobody,
// used as the marketplace escrow vault. The derivation hashes a domain tag so
// distinct modules can never collide with each other or with key-derived
// accounts.
func DeriveModuleAddress(module string) [20]byte {
	hash := ethcrypto.Keccak256([]byte("tokenmart/module/" + module))
	var out [20]byte
	copy(out[:], hash[12:])
	return out
}
