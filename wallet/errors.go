package wallet

import "errors"

var (
	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("wallet: invalid BIP39 mnemonic")

	// ErrDecryptionFailed indicates wrong password or corrupted wallet data.
	ErrDecryptionFailed = errors.New("wallet: seed decryption failed (wrong password or corrupted data)")

	// ErrInvalidNetwork indicates unknown network name.
	ErrInvalidNetwork = errors.New("wallet: invalid network name")

	// ErrInvalidSeed indicates the seed is empty or invalid.
	ErrInvalidSeed = errors.New("wallet: invalid seed")

	// ErrDerivationFailed indicates BIP32 key derivation failed.
	ErrDerivationFailed = errors.New("wallet: key derivation failed")

	// ErrInvalidAddress indicates an address string cannot be decoded.
	ErrInvalidAddress = errors.New("wallet: invalid address")

	// ErrWalletExists indicates a seed file is already present.
	ErrWalletExists = errors.New("wallet: wallet file already exists")

	// ErrWalletNotFound indicates no seed file is present.
	ErrWalletNotFound = errors.New("wallet: wallet file not found")
)
