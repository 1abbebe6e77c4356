package pool

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/holiman/uint256"
)

const (
	snapshotHeaderSize = 57 // magic(4) + flags(1) + deposited(8) + withdrawn(8) + acc(32) + num_holders(4)
	snapshotEntrySize  = 68 // address(20) + shares(8) + settled_acc(32) + carried(8)

	flagIssued = 0x01
)

var snapshotMagic = [4]byte{'R', 'S', 'P', '2'}

// HolderState is the persisted form of one holder.
type HolderState struct {
	Address    Address
	Shares     uint64
	SettledAcc uint256.Int
	Carried    uint64
}

// Snapshot is the complete persisted state of a Pool.
type Snapshot struct {
	Issued         bool
	TotalDeposited uint64
	TotalWithdrawn uint64
	AccPerShare    uint256.Int
	Holders        []HolderState // ordered by address
}

// Snapshot captures the current state of the pool.
func (p *Pool) Snapshot() *Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &Snapshot{
		Issued:         p.issued,
		TotalDeposited: p.totalDeposited,
		TotalWithdrawn: p.totalWithdrawn,
		Holders:        make([]HolderState, 0, len(p.holders)),
	}
	s.AccPerShare.Set(&p.accPerShare)
	for addr, h := range p.holders {
		hs := HolderState{Address: addr, Shares: h.shares, Carried: h.carried}
		hs.SettledAcc.Set(&h.settledAcc)
		s.Holders = append(s.Holders, hs)
	}
	sort.Slice(s.Holders, func(i, j int) bool {
		return lessAddress(s.Holders[i].Address, s.Holders[j].Address)
	})
	return s
}

// Restore builds a pool from a snapshot and validates its invariants.
func Restore(s *Snapshot, payer Payer, opts ...Option) (*Pool, error) {
	p := New(payer, opts...)
	if err := p.load(s); err != nil {
		return nil, err
	}
	return p, nil
}

// Revert replaces the pool state with s, typically a snapshot taken before
// a change that could not be persisted. The pool is left untouched when s
// is invalid.
func (p *Pool) Revert(s *Snapshot) error {
	tmp := New(nil)
	if err := tmp.load(s); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued = tmp.issued
	p.totalDeposited = tmp.totalDeposited
	p.totalWithdrawn = tmp.totalWithdrawn
	p.accPerShare.Set(&tmp.accPerShare)
	p.holders = tmp.holders
	p.logger.Debug("state reverted", "deposited", p.totalDeposited, "withdrawn", p.totalWithdrawn)
	return nil
}

// load fills an empty pool from s and validates the result.
func (p *Pool) load(s *Snapshot) error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}
	p.issued = s.Issued
	p.totalDeposited = s.TotalDeposited
	p.totalWithdrawn = s.TotalWithdrawn
	p.accPerShare.Set(&s.AccPerShare)
	for _, hs := range s.Holders {
		if _, dup := p.holders[hs.Address]; dup {
			return fmt.Errorf("%w: duplicate holder %s", ErrInvalidSnapshot, hs.Address)
		}
		h := &holder{shares: hs.Shares, carried: hs.Carried}
		h.settledAcc.Set(&hs.SettledAcc)
		p.holders[hs.Address] = h
	}
	return p.validate()
}

// SerializeSnapshot encodes a Snapshot to its binary form.
func SerializeSnapshot(s *Snapshot) ([]byte, error) {
	if len(s.Holders) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d holders", ErrInvalidSnapshot, len(s.Holders))
	}
	buf := make([]byte, snapshotHeaderSize+snapshotEntrySize*len(s.Holders))
	offset := 0

	copy(buf[offset:offset+4], snapshotMagic[:])
	offset += 4

	if s.Issued {
		buf[offset] = flagIssued
	}
	offset++

	binary.BigEndian.PutUint64(buf[offset:offset+8], s.TotalDeposited)
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:offset+8], s.TotalWithdrawn)
	offset += 8

	acc := s.AccPerShare.Bytes32()
	copy(buf[offset:offset+32], acc[:])
	offset += 32

	binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(len(s.Holders)))
	offset += 4

	for _, h := range s.Holders {
		copy(buf[offset:offset+20], h.Address[:])
		offset += 20
		binary.BigEndian.PutUint64(buf[offset:offset+8], h.Shares)
		offset += 8
		settled := h.SettledAcc.Bytes32()
		copy(buf[offset:offset+32], settled[:])
		offset += 32
		binary.BigEndian.PutUint64(buf[offset:offset+8], h.Carried)
		offset += 8
	}
	return buf, nil
}

// DeserializeSnapshot decodes binary data produced by SerializeSnapshot.
func DeserializeSnapshot(data []byte) (*Snapshot, error) {
	if len(data) < snapshotHeaderSize {
		return nil, fmt.Errorf("%w: too short (%d bytes)", ErrInvalidSnapshot, len(data))
	}
	if [4]byte(data[0:4]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic %x", ErrInvalidSnapshot, data[0:4])
	}
	offset := 4

	s := &Snapshot{}
	flags := data[offset]
	if flags&^flagIssued != 0 {
		return nil, fmt.Errorf("%w: unknown flags %#x", ErrInvalidSnapshot, flags)
	}
	s.Issued = flags&flagIssued != 0
	offset++

	s.TotalDeposited = binary.BigEndian.Uint64(data[offset : offset+8])
	offset += 8
	s.TotalWithdrawn = binary.BigEndian.Uint64(data[offset : offset+8])
	offset += 8

	s.AccPerShare.SetBytes32(data[offset : offset+32])
	offset += 32

	numHolders := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4

	expectedSize := snapshotHeaderSize + snapshotEntrySize*numHolders
	if len(data) != expectedSize {
		return nil, fmt.Errorf("%w: expected %d bytes for %d holders, got %d",
			ErrInvalidSnapshot, expectedSize, numHolders, len(data))
	}

	s.Holders = make([]HolderState, numHolders)
	for i := 0; i < numHolders; i++ {
		copy(s.Holders[i].Address[:], data[offset:offset+20])
		offset += 20
		s.Holders[i].Shares = binary.BigEndian.Uint64(data[offset : offset+8])
		offset += 8
		s.Holders[i].SettledAcc.SetBytes32(data[offset : offset+32])
		offset += 32
		s.Holders[i].Carried = binary.BigEndian.Uint64(data[offset : offset+8])
		offset += 8
	}
	return s, nil
}
