package indexer

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/nearscan/nearscan/types"
)

// BlockSource yields ordered block messages. Recv returns io.EOF when the
// stream is exhausted.
type BlockSource interface {
	Recv(ctx context.Context) (*types.StreamerMessage, error)
}

// Run consumes the source until it ends or a block fails, keeping at most
// cfg.Concurrency blocks in flight. With concurrency 1 the pipeline is
// strictly sequential, which is the only mode where every receipt's
// parent transaction is guaranteed persisted before the next block's
// resolver needs it; higher values rely on the resolver's backoff loop.
func (ix *Indexer) Run(ctx context.Context, src BlockSource) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Concurrency)

	for {
		msg, err := src.Recv(gctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			ix.log.Error("block stream failed", "error", err.Error())
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			return ix.StoreBlock(gctx, msg)
		})
		if gctx.Err() != nil {
			break
		}
	}
	return g.Wait()
}
