package wallet

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"

	"github.com/bitfsorg/rentshare/pool"
)

// ParseAddress accepts a base58check P2PKH address or a 40-char hex pubkey hash.
func ParseAddress(s string) (pool.Address, error) {
	if len(s) == 2*pool.AddressSize {
		if a, err := pool.ParseAddress(s); err == nil {
			return a, nil
		}
	}
	addr, err := script.NewAddressFromString(s)
	if err != nil {
		return pool.Address{}, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, s, err)
	}
	pkh := []byte(addr.PublicKeyHash)
	if len(pkh) != pool.AddressSize {
		return pool.Address{}, fmt.Errorf("%w: %q: pubkey hash is %d bytes", ErrInvalidAddress, s, len(pkh))
	}
	var a pool.Address
	copy(a[:], pkh)
	return a, nil
}

// FormatAddress renders a pubkey hash as a base58check address on net.
func FormatAddress(a pool.Address, net *NetworkConfig) (string, error) {
	if net == nil {
		net = &MainNet
	}
	addr, err := script.NewAddressFromPublicKeyHash(a[:], net.IsMainnet())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return addr.AddressString, nil
}
