package wallet

import (
	"fmt"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"

	"github.com/bitfsorg/rentshare/pool"
)

const (
	// BIP44 path constants.
	PurposeBIP44      = 44
	CoinTypeRentshare = 236
	PoolAccount       = 0
	FeeAccount        = 1

	// Chain indices.
	ExternalChain = 0 // Receive addresses
	InternalChain = 1 // Change addresses

	// BIP32 hardened offset.
	Hardened = 0x80000000
)

// Wallet represents an HD wallet instance holding the pool custody keys.
type Wallet struct {
	masterKey *bip32.ExtendedKey
	network   *NetworkConfig
}

// KeyPair holds a derived public/private key pair.
type KeyPair struct {
	PrivateKey *ec.PrivateKey `json:"-"`
	PublicKey  *ec.PublicKey  `json:"public_key"`
	Path       string         `json:"path"` // Human-readable derivation path
}

// Address returns the pubkey hash of the compressed public key.
func (kp *KeyPair) Address() pool.Address {
	var a pool.Address
	copy(a[:], bsvhash.Hash160(kp.PublicKey.Compressed()))
	return a
}

// NewWallet creates a new Wallet from a BIP39 seed.
func NewWallet(seed []byte, network *NetworkConfig) (*Wallet, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	if network == nil {
		network = &MainNet
	}

	var net *chaincfg.Params
	switch network.Name {
	case "mainnet":
		net = &chaincfg.MainNet
	default:
		net = &chaincfg.TestNet
	}

	masterKey, err := bip32.NewMaster(seed, net)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}

	return &Wallet{
		masterKey: masterKey,
		network:   network,
	}, nil
}

// Network returns the wallet's network configuration.
func (w *Wallet) Network() *NetworkConfig {
	return w.network
}

// PoolKey derives the custody key holding deposited funds.
//
//	Path: m/44'/236'/0'/0/0
func (w *Wallet) PoolKey() (*KeyPair, error) {
	return w.DeriveKey(PoolAccount, ExternalChain, 0)
}

// FeeKey derives the key funding network fees for payouts.
//
//	Path: m/44'/236'/1'/0/0
func (w *Wallet) FeeKey() (*KeyPair, error) {
	return w.DeriveKey(FeeAccount, ExternalChain, 0)
}

// DeriveKey derives m/44'/236'/account'/chain/index.
func (w *Wallet) DeriveKey(account, chain, index uint32) (*KeyPair, error) {
	if account >= Hardened {
		return nil, fmt.Errorf("%w: account %d exceeds BIP32 hardened boundary", ErrDerivationFailed, account)
	}
	accountKey, err := w.deriveAccount(account)
	if err != nil {
		return nil, err
	}

	chainKey, err := accountKey.Child(chain)
	if err != nil {
		return nil, fmt.Errorf("%w: chain derivation: %w", ErrDerivationFailed, err)
	}

	childKey, err := chainKey.Child(index)
	if err != nil {
		return nil, fmt.Errorf("%w: index derivation: %w", ErrDerivationFailed, err)
	}

	return extKeyToKeyPair(childKey, fmt.Sprintf("m/44'/236'/%d'/%d/%d", account, chain, index))
}

// deriveAccount derives the account-level key: m/44'/236'/account'
func (w *Wallet) deriveAccount(account uint32) (*bip32.ExtendedKey, error) {
	purpose, err := w.masterKey.Child(PurposeBIP44 + Hardened)
	if err != nil {
		return nil, fmt.Errorf("%w: purpose derivation: %w", ErrDerivationFailed, err)
	}

	coinType, err := purpose.Child(CoinTypeRentshare + Hardened)
	if err != nil {
		return nil, fmt.Errorf("%w: coin type derivation: %w", ErrDerivationFailed, err)
	}

	accountKey, err := coinType.Child(account + Hardened)
	if err != nil {
		return nil, fmt.Errorf("%w: account derivation: %w", ErrDerivationFailed, err)
	}

	return accountKey, nil
}

// extKeyToKeyPair converts a BIP32 extended key to a KeyPair.
func extKeyToKeyPair(extKey *bip32.ExtendedKey, path string) (*KeyPair, error) {
	privKey, err := extKey.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to extract EC private key: %w", ErrDerivationFailed, err)
	}

	pubKey := privKey.PubKey()
	if pubKey == nil {
		return nil, fmt.Errorf("%w: failed to derive public key", ErrDerivationFailed)
	}

	return &KeyPair{
		PrivateKey: privKey,
		PublicKey:  pubKey,
		Path:       path,
	}, nil
}
