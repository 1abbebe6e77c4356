// Package wallet holds the pool's custody keys using BIP32/BIP39.
//
// Key hierarchy: m/44'/236'/{account}'/{chain}/{index}
// where account 0 holds pool funds and account 1 pays network fees.
package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bsv-blockchain/go-sdk/compat/bip39"
	"golang.org/x/crypto/argon2"
)

// SeedFileName is the encrypted seed file inside the data directory.
const SeedFileName = "wallet.enc"

// mnemonicEntropy gives 24-word mnemonics.
const mnemonicEntropy = 256

// NewMnemonic creates a fresh 24-word BIP39 mnemonic for a new custody wallet.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropy)
	if err != nil {
		return "", fmt.Errorf("wallet: generate entropy: %w", err)
	}
	m, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("wallet: generate mnemonic: %w", err)
	}
	return m, nil
}

// MnemonicSeed validates a mnemonic typed by an operator and returns its
// BIP39 seed. Runs of whitespace between words are accepted. Custody
// wallets never use a BIP39 passphrase.
func MnemonicSeed(mnemonic string) ([]byte, error) {
	m := strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(m) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(m, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMnemonic, err)
	}
	return seed, nil
}

// kdfParams are the Argon2id cost parameters recorded in a seed file.
type kdfParams struct {
	Time      uint8
	MemoryKiB uint32
	Threads   uint8
}

// sealKDF is used for every new seed file. Tests lower it.
var sealKDF = kdfParams{Time: 3, MemoryKiB: 64 * 1024, Threads: 4}

// Seed file layout:
//
//	magic(4) | time(1) | memory_kib(4) | threads(1) | salt(16) | nonce(12) | AES-256-GCM(seed)
//
// The header up to and including the salt is authenticated as GCM
// additional data, so the cost parameters cannot be tampered with.
const (
	saltLen    = 16
	headerLen  = 4 + 1 + 4 + 1 + saltLen
	keyLen     = 32
	maxKDFTime = 16
	maxKDFMem  = 4 * 1024 * 1024
)

var seedMagic = [4]byte{'R', 'S', 'W', '1'}

func (k kdfParams) key(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, uint32(k.Time), k.MemoryKiB, k.Threads, keyLen)
}

// sealSeed encrypts seed under password.
func sealSeed(seed []byte, password string, kdf kdfParams) ([]byte, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	header := make([]byte, headerLen)
	copy(header, seedMagic[:])
	header[4] = kdf.Time
	binary.BigEndian.PutUint32(header[5:9], kdf.MemoryKiB)
	header[9] = kdf.Threads
	if _, err := rand.Read(header[10:]); err != nil {
		return nil, fmt.Errorf("wallet: generate salt: %w", err)
	}

	gcm, err := newGCM(kdf.key(password, header[10:]))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("wallet: generate nonce: %w", err)
	}

	out := make([]byte, 0, headerLen+len(nonce)+len(seed)+gcm.Overhead())
	out = append(out, header...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, seed, header), nil
}

// openSeed decrypts a seed file produced by sealSeed.
func openSeed(data []byte, password string) ([]byte, error) {
	if len(data) < headerLen || [4]byte(data[:4]) != seedMagic {
		return nil, fmt.Errorf("%w: not a seed file", ErrDecryptionFailed)
	}
	header := data[:headerLen]
	kdf := kdfParams{
		Time:      header[4],
		MemoryKiB: binary.BigEndian.Uint32(header[5:9]),
		Threads:   header[9],
	}
	if kdf.Time == 0 || kdf.Time > maxKDFTime || kdf.MemoryKiB == 0 || kdf.MemoryKiB > maxKDFMem || kdf.Threads == 0 {
		return nil, fmt.Errorf("%w: bad key derivation parameters", ErrDecryptionFailed)
	}

	gcm, err := newGCM(kdf.key(password, header[10:]))
	if err != nil {
		return nil, err
	}
	rest := data[headerLen:]
	if len(rest) < gcm.NonceSize()+gcm.Overhead() {
		return nil, fmt.Errorf("%w: truncated", ErrDecryptionFailed)
	}
	nonce, ct := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]
	seed, err := gcm.Open(nil, nonce, ct, header)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	return seed, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("wallet: aes: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("wallet: gcm: %w", err)
	}
	return gcm, nil
}

// SeedPath returns the encrypted seed file location inside dataDir.
func SeedPath(dataDir string) string {
	return filepath.Join(dataDir, SeedFileName)
}

// SaveSeed encrypts seed with password and writes it to dataDir.
// An existing seed file is never overwritten.
func SaveSeed(dataDir string, seed []byte, password string) error {
	enc, err := sealSeed(seed, password, sealKDF)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("wallet: create data dir: %w", err)
	}
	f, err := os.OpenFile(SeedPath(dataDir), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrWalletExists
		}
		return fmt.Errorf("wallet: create seed file: %w", err)
	}
	if _, err := f.Write(enc); err != nil {
		_ = f.Close()
		return fmt.Errorf("wallet: write seed file: %w", err)
	}
	return f.Close()
}

// LoadSeed reads and decrypts the seed file in dataDir.
func LoadSeed(dataDir, password string) ([]byte, error) {
	enc, err := os.ReadFile(SeedPath(dataDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("wallet: read seed file: %w", err)
	}
	return openSeed(enc, password)
}
