package supply

import (
	"context"
	"time"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/nearscan/nearscan/log"
	"github.com/nearscan/nearscan/storage"
)

// TransfersEnabledTimestamp is the nanosecond moment main-net transfers
// were activated. Lockup math uses it as the zero point when a contract
// never recorded its own transfer vote.
const TransfersEnabledTimestamp uint64 = 1602614338293769340

const (
	dayNs = uint64(24 * time.Hour / time.Nanosecond)
	// computeOffset delays the daily run past midnight so the chain can
	// finalize the day's last block.
	computeOffset = 10 * time.Minute
	// retryDelay is the pause after a failed or premature day.
	retryDelay = 2 * time.Hour
)

// foundationAccounts hold tokens that are locked but not behind lockup
// contracts; their balances are subtracted from circulating supply.
var foundationAccounts = []string{"lockup.near", "contributors.near"}

// lockupCodeHasBug maps known lockup contract code hashes to whether that
// version carries the release-start bug. An unknown hash aborts the day:
// operators must classify new versions before the number is trusted.
var lockupCodeHasBug = map[string]bool{
	"3kVY9qcVRoW3B5498SMX6R3rtSLiCdmBzKs7zcnzDJ7Q": true,
	"DiC9bKCqUHqoYqUXovAnqugiuntHWnM3cAc7KrgaHTu":  true,
	"Cw7bnyp4B6ypwvgZuMmJtY6rHsxP2D4PC8deqeJ3HP7D": false,
}

// AccountView is the subset of a view-account response the engine uses.
type AccountView struct {
	Amount   *uint256.Int
	CodeHash string
}

// StateItem is one key/value pair of a view-state response.
type StateItem struct {
	Key   []byte
	Value []byte
}

// Viewer is the read-only chain oracle.
type Viewer interface {
	ViewAccount(ctx context.Context, accountID string, blockHeight uint64) (AccountView, error)
	ViewState(ctx context.Context, accountID string, blockHeight uint64, prefix []byte) ([]StateItem, error)
	FinalTimestamp(ctx context.Context) (uint64, error)
}

// BlockFinder locates the last block at or before a timestamp.
type BlockFinder interface {
	LatestBefore(ctx context.Context, timestampNs uint64) (storage.BlockRow, error)
}

// SupplyStore persists daily rows and enumerates live lockups.
type SupplyStore interface {
	Insert(ctx context.Context, row storage.CirculatingSupplyRow) error
	Exists(ctx context.Context, blockTimestamp uint64) (bool, error)
	LiveLockups(ctx context.Context, blockHeight uint64) ([]string, error)
}

// Engine runs the daily circulating-supply loop.
type Engine struct {
	blocks BlockFinder
	supply SupplyStore
	rpc    Viewer
	log    *log.Logger

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine creates an Engine.
func NewEngine(blocks BlockFinder, supply SupplyStore, rpc Viewer, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		blocks: blocks,
		supply: supply,
		rpc:    rpc,
		log:    logger.Module("supply"),
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// dayStart truncates a nanosecond timestamp to its UTC day boundary.
func dayStart(tsNs uint64) uint64 {
	return tsNs - tsNs%dayNs
}

// Run loops forever: sleep until ten minutes past the next uncomputed
// day's boundary, wait for the chain to finalize past it, compute the
// day, advance. Errors and a lagging chain both back off two hours and
// retry the same day.
func (e *Engine) Run(ctx context.Context) error {
	target := dayStart(TransfersEnabledTimestamp) + dayNs
	for {
		wake := time.Unix(0, int64(target)).Add(computeOffset)
		if d := wake.Sub(e.now()); d > 0 {
			e.log.Info("sleeping until next supply day", "wake", wake.UTC())
			if err := e.sleep(ctx, d); err != nil {
				return err
			}
		}

		finalTs, err := e.rpc.FinalTimestamp(ctx)
		if err != nil {
			e.log.Warn("final block poll failed", "error", err.Error())
			if err := e.sleep(ctx, retryDelay); err != nil {
				return err
			}
			continue
		}
		if finalTs < target {
			e.log.Info("chain not yet past day boundary", "final", finalTs, "target", target)
			if err := e.sleep(ctx, retryDelay); err != nil {
				return err
			}
			continue
		}

		if err := e.ComputeDay(ctx, target); err != nil {
			e.log.Error("supply day failed", "target", target, "error", err.Error())
			if err := e.sleep(ctx, retryDelay); err != nil {
				return err
			}
			continue
		}
		target += dayNs
	}
}

// ComputeDay computes and persists the circulating supply at the last
// block at or before dayBoundaryNs. Returns nil without writing when the
// row already exists.
func (e *Engine) ComputeDay(ctx context.Context, dayBoundaryNs uint64) error {
	block, err := e.blocks.LatestBefore(ctx, dayBoundaryNs)
	if err != nil {
		return errors.Wrap(err, "locate day block")
	}
	done, err := e.supply.Exists(ctx, block.Timestamp)
	if err != nil {
		return err
	}
	if done {
		e.log.Debug("supply already computed", "block_timestamp", block.Timestamp)
		return nil
	}

	lockups, err := e.supply.LiveLockups(ctx, block.Height)
	if err != nil {
		return errors.Wrap(err, "enumerate lockups")
	}

	lockupsLocked := uint256.NewInt(0)
	var unfinished int32
	for _, account := range lockups {
		locked, err := e.lockupLocked(ctx, account, block.Height, block.Timestamp)
		if err != nil {
			return errors.Wrapf(err, "lockup %s", account)
		}
		lockupsLocked.Add(lockupsLocked, locked)
		if !locked.IsZero() {
			unfinished++
		}
	}

	foundationLocked := uint256.NewInt(0)
	for _, account := range foundationAccounts {
		view, err := e.rpc.ViewAccount(ctx, account, block.Height)
		if err != nil {
			return errors.Wrapf(err, "foundation account %s", account)
		}
		foundationLocked.Add(foundationLocked, view.Amount)
	}

	total, err := uint256.FromDecimal(block.TotalSupply)
	if err != nil {
		return errors.Wrapf(err, "total supply %q", block.TotalSupply)
	}
	circulating := new(uint256.Int).Sub(total, lockupsLocked)
	circulating.Sub(circulating, foundationLocked)

	row := storage.CirculatingSupplyRow{
		ComputedAtBlockTimestamp:       block.Timestamp,
		ComputedAtBlockHash:            block.Hash,
		CirculatingTokensSupply:        circulating.Dec(),
		TotalTokensSupply:              block.TotalSupply,
		TotalLockupContractsCount:      int32(len(lockups)),
		UnfinishedLockupContractsCount: unfinished,
		FoundationLockedTokens:         foundationLocked.Dec(),
		LockupsLockedTokens:            lockupsLocked.Dec(),
	}
	if err := e.supply.Insert(ctx, row); err != nil {
		return err
	}
	e.log.Info("supply day computed",
		"block_height", block.Height,
		"circulating", row.CirculatingTokensSupply,
		"lockups", len(lockups),
		"unfinished", unfinished)
	return nil
}

// lockupLocked fetches and decodes one lockup contract's state and
// evaluates the locked amount at blockTimestamp.
func (e *Engine) lockupLocked(ctx context.Context, account string, blockHeight, blockTimestamp uint64) (*uint256.Int, error) {
	items, err := e.rpc.ViewState(ctx, account, blockHeight, nil)
	if err != nil {
		return nil, errors.Wrap(err, "view state")
	}
	if len(items) == 0 {
		return nil, errors.New("empty contract state")
	}
	contract, err := DecodeLockupContract(items[0].Value)
	if err != nil {
		return nil, err
	}
	// Contracts whose owners never voted still unlock at the network-wide
	// moment; override whatever the state says.
	contract.Lockup.Transfers = TransfersInformation{
		Enabled:            true,
		TransfersTimestamp: TransfersEnabledTimestamp,
	}

	view, err := e.rpc.ViewAccount(ctx, account, blockHeight)
	if err != nil {
		return nil, errors.Wrap(err, "view account")
	}
	hasBug, known := lockupCodeHasBug[view.CodeHash]
	if !known {
		return nil, errors.Errorf("unknown lockup code hash %s", view.CodeHash)
	}
	return contract.LockedAmount(blockTimestamp, hasBug), nil
}
