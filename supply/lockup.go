// Package supply implements the daily circulating-supply engine: it
// locates the last block of each UTC day, decodes the state of every
// live lockup contract at that block, applies the release and vesting
// math, and persists one aggregated row per day.
package supply

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// TransfersInformation is the contract's record of whether transfers
// were voted on. Exactly one branch is meaningful: when Enabled is
// false, PollAccountID names the voting contract.
type TransfersInformation struct {
	Enabled            bool
	TransfersTimestamp uint64
	PollAccountID      string
}

// VestingKind tags the four vesting variants of the contract state.
type VestingKind uint8

const (
	VestingNone VestingKind = iota
	VestingHash
	VestingSchedule
	VestingTerminating
)

// Schedule is a public vesting schedule in nanosecond timestamps.
type Schedule struct {
	Start uint64
	Cliff uint64
	End   uint64
}

// Termination holds the state of a foundation-terminated vesting.
type Termination struct {
	UnvestedAmount *uint256.Int
	Status         uint8
}

// VestingInformation is the decoded vesting variant.
type VestingInformation struct {
	Kind        VestingKind
	Hash        []byte
	Schedule    Schedule
	Termination Termination
}

// StakingInformation describes the staking pool the lockup delegates to.
type StakingInformation struct {
	PoolAccountID string
	Status        uint8
	DepositAmount *uint256.Int
}

// LockupInformation is the release-related half of the contract state.
type LockupInformation struct {
	LockupAmount               *uint256.Int
	TerminationWithdrawnTokens *uint256.Int
	LockupDuration             uint64
	ReleaseDuration            *uint64
	LockupTimestamp            *uint64
	Transfers                  TransfersInformation
}

// LockupContract is the full persisted state of a lockup contract.
type LockupContract struct {
	OwnerAccountID                string
	Lockup                        LockupInformation
	Vesting                       VestingInformation
	StakingPoolWhitelistAccountID string
	Staking                       *StakingInformation
	FoundationAccountID           *string
}

// stateReader walks the contract's serialized layout: length-prefixed
// strings, little-endian integers, one-byte option and enum tags. Errors
// stick; callers check Err once at the end.
type stateReader struct {
	buf []byte
	off int
	err error
}

func (r *stateReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = errors.Errorf(format, args...)
	}
}

func (r *stateReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.fail("lockup state truncated at offset %d (want %d bytes)", r.off, n)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *stateReader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *stateReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *stateReader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *stateReader) u128() *uint256.Int {
	b := r.take(16)
	if b == nil {
		return uint256.NewInt(0)
	}
	be := make([]byte, 16)
	for i, v := range b {
		be[15-i] = v
	}
	return new(uint256.Int).SetBytes(be)
}

func (r *stateReader) str() string {
	n := r.u32()
	b := r.take(int(n))
	return string(b)
}

func (r *stateReader) bytes() []byte {
	n := r.u32()
	b := r.take(int(n))
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// option reads a one-byte presence tag.
func (r *stateReader) option() bool {
	return r.u8() == 1
}

// DecodeLockupContract deserializes the contract state blob fetched from
// the chain.
func DecodeLockupContract(data []byte) (*LockupContract, error) {
	r := &stateReader{buf: data}
	c := &LockupContract{}

	c.OwnerAccountID = r.str()

	c.Lockup.LockupAmount = r.u128()
	c.Lockup.TerminationWithdrawnTokens = r.u128()
	c.Lockup.LockupDuration = r.u64()
	if r.option() {
		d := r.u64()
		c.Lockup.ReleaseDuration = &d
	}
	if r.option() {
		ts := r.u64()
		c.Lockup.LockupTimestamp = &ts
	}
	switch tag := r.u8(); tag {
	case 0:
		c.Lockup.Transfers = TransfersInformation{Enabled: true, TransfersTimestamp: r.u64()}
	case 1:
		c.Lockup.Transfers = TransfersInformation{PollAccountID: r.str()}
	default:
		r.fail("unknown transfers information tag %d", tag)
	}

	switch tag := r.u8(); tag {
	case 0:
		c.Vesting.Kind = VestingNone
	case 1:
		c.Vesting.Kind = VestingHash
		c.Vesting.Hash = r.bytes()
	case 2:
		c.Vesting.Kind = VestingSchedule
		c.Vesting.Schedule = Schedule{Start: r.u64(), Cliff: r.u64(), End: r.u64()}
	case 3:
		c.Vesting.Kind = VestingTerminating
		c.Vesting.Termination = Termination{UnvestedAmount: r.u128(), Status: r.u8()}
	default:
		r.fail("unknown vesting information tag %d", tag)
	}

	c.StakingPoolWhitelistAccountID = r.str()
	if r.option() {
		c.Staking = &StakingInformation{
			PoolAccountID: r.str(),
			Status:        r.u8(),
			DepositAmount: r.u128(),
		}
	}
	if r.option() {
		a := r.str()
		c.FoundationAccountID = &a
	}

	if r.err != nil {
		return nil, r.err
	}
	return c, nil
}

// LockedAmount computes the tokens still locked at blockTimestamp.
// Intermediate products exceed 128 bits, so the math runs in 256 bits
// and the result is truncated back to the u128 domain at the end.
func (c *LockupContract) LockedAmount(blockTimestamp uint64, hasBug bool) *uint256.Int {
	lockup := c.Lockup
	amount := lockup.LockupAmount
	withdrawn := lockup.TerminationWithdrawnTokens

	if !lockup.Transfers.Enabled {
		return new(uint256.Int).Sub(amount, withdrawn)
	}
	t0 := lockup.Transfers.TransfersTimestamp

	var lockupTimestamp uint64
	if lockup.LockupTimestamp != nil {
		lockupTimestamp = *lockup.LockupTimestamp
	}
	lockedUntil := t0 + lockup.LockupDuration
	if lockupTimestamp > lockedUntil {
		lockedUntil = lockupTimestamp
	}
	if blockTimestamp < lockedUntil {
		return new(uint256.Int).Sub(amount, withdrawn)
	}

	unreleased := uint256.NewInt(0)
	if lockup.ReleaseDuration != nil {
		release := *lockup.ReleaseDuration
		start := lockedUntil
		if hasBug {
			// Early contract versions measured the release window from the
			// transfers-enabled moment instead of the lockup end.
			start = t0
		}
		end := start + release
		if blockTimestamp < end {
			// amount * (end - t) / release
			unreleased = new(uint256.Int).Mul(amount, uint256.NewInt(end-blockTimestamp))
			unreleased.Div(unreleased, uint256.NewInt(release))
		}
	}

	unvested := uint256.NewInt(0)
	switch c.Vesting.Kind {
	case VestingTerminating:
		unvested = c.Vesting.Termination.UnvestedAmount
	case VestingSchedule:
		s := c.Vesting.Schedule
		switch {
		case blockTimestamp < s.Cliff:
			unvested = amount
		case blockTimestamp >= s.End:
			// fully vested
		default:
			unvested = new(uint256.Int).Mul(amount, uint256.NewInt(s.End-blockTimestamp))
			unvested.Div(unvested, uint256.NewInt(s.End-s.Start))
		}
	}

	locked := uint256.NewInt(0)
	if unreleased.Gt(withdrawn) {
		locked = new(uint256.Int).Sub(unreleased, withdrawn)
	}
	if unvested.Gt(locked) {
		locked = unvested.Clone()
	}
	return locked
}
