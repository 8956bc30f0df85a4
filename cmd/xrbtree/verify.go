package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	randv2 "math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xrbtree/lib/infra"
	"github.com/benz9527/xrbtree/lib/tree"
	"github.com/benz9527/xrbtree/lib/xlog"
)

type verifyOpts struct {
	app     appOpts
	trials  int
	keys    int
	workers int
	seed    uint64
}

func parseVerifyOpts(args []string, stderr io.Writer) (verifyOpts, error) {
	opts := verifyOpts{}
	f := flag.NewFlagSet("verify", flag.ContinueOnError)
	f.SetOutput(stderr)
	opts.app.register(f, "verify", stderr)
	f.IntVar(&opts.trials, "trials", 16,
		"number of independent trees to exercise")
	f.IntVar(&opts.keys, "keys", 1000,
		"size of the key space, each trial runs twice as many operations")
	f.IntVar(&opts.workers, "workers", 4,
		"number of trials running concurrently")
	f.Uint64Var(&opts.seed, "seed", uint64(time.Now().UnixNano()),
		"seed value for generating inputs")
	if err := f.Parse(args); err != nil {
		return opts, err
	}
	if opts.trials <= 0 || opts.keys <= 0 || opts.workers <= 0 {
		err := errors.New("trials, keys and workers must be positive")
		fmt.Fprintln(stderr, err)
		return opts, err
	}
	return opts, nil
}

// Larger key spaces grow the arena on demand.
const maxVerifyCapacityHint = 1 << 16

func verifyCapacityHint(keys int) uint32 {
	if keys <= 0 {
		return 0
	}
	return uint32(min(keys, maxVerifyCapacityHint))
}

// verifyTrial runs random inserts and deletes over a fresh tree. Every
// mutation is followed by a full validation and the tree content is
// checked against a multiset of the expected keys.
func verifyTrial(opts verifyOpts, trial int, logger xlog.XLogger) error {
	rng := randv2.New(randv2.NewPCG(opts.seed, uint64(trial)))
	rbtree := tree.NewRBTree[int, int](
		tree.WithRBTreeCapacity[int, int](verifyCapacityHint(opts.keys)),
		tree.WithRBTreeStats[int, int]("verify"),
		tree.WithRBTreeLogger[int, int](logger),
	)
	defer rbtree.Release()

	universe := lo.Range(opts.keys)
	counts := make(map[int]int, opts.keys)
	for op := 0; op < opts.keys*2; op++ {
		key := universe[rng.IntN(len(universe))]
		if rng.IntN(3) == 0 {
			x, err := rbtree.Delete(key)
			switch {
			case counts[key] == 0 && !errors.Is(err, tree.ErrRBTreeNotFound):
				return fmt.Errorf("trial %d op %d: delete absent key %d: %v", trial, op, key, err)
			case counts[key] > 0 && (err != nil || x.Key() != key):
				return fmt.Errorf("trial %d op %d: delete key %d: %v", trial, op, key, err)
			case counts[key] > 0:
				counts[key]--
			}
		} else {
			if err := rbtree.Insert(key, op); err != nil {
				return fmt.Errorf("trial %d op %d: insert key %d: %w", trial, op, key, err)
			}
			counts[key]++
		}
		if err := tree.Validate[int, int](rbtree); err != nil {
			return fmt.Errorf("trial %d op %d: %w", trial, op, err)
		}
	}

	expected := make([]int, 0, len(counts))
	for _, key := range lo.Keys(counts) {
		for i := 0; i < counts[key]; i++ {
			expected = append(expected, key)
		}
	}
	slices.Sort(expected)
	if keys := rbtree.Keys(); !slices.Equal(expected, keys) {
		return fmt.Errorf("trial %d: in-order keys mismatch, %d expected, %d found", trial, len(expected), len(keys))
	}
	for _, key := range universe {
		x, err := rbtree.Search(key)
		if present := counts[key] > 0; present && (err != nil || x.Key() != key) {
			return fmt.Errorf("trial %d: search present key %d: %v", trial, key, err)
		} else if !present && (!errors.Is(err, tree.ErrRBTreeNotFound) || !x.IsNil()) {
			return fmt.Errorf("trial %d: search absent key %d: %v", trial, key, err)
		}
	}
	return nil
}

func runVerify(ctx context.Context, opts verifyOpts, logger xlog.XLogger) error {
	pool, err := ants.NewPool(opts.workers,
		ants.WithLogger(xlog.NewAntsXLogger(logger)),
	)
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "verify pool")
	}
	defer pool.Release()

	var (
		lock   sync.Mutex
		errs   error
		wg     sync.WaitGroup
		failed int
	)
	start := time.Now()
	for trial := 0; trial < opts.trials; trial++ {
		if ctx.Err() != nil {
			lock.Lock()
			errs = multierr.Append(errs, ctx.Err())
			lock.Unlock()
			break
		}
		wg.Add(1)
		trial := trial
		err := pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					lock.Lock()
					defer lock.Unlock()
					failed++
					errs = multierr.Append(errs, fmt.Errorf("trial %d panic: %v", trial, r))
				}
			}()
			if err := verifyTrial(opts, trial, logger); err != nil {
				lock.Lock()
				defer lock.Unlock()
				failed++
				errs = multierr.Append(errs, err)
				return
			}
			logger.Debug("verify trial passed", zap.Int("trial", trial))
		})
		if err != nil {
			wg.Done()
			lock.Lock()
			errs = multierr.Append(errs, err)
			lock.Unlock()
			break
		}
	}
	wg.Wait()

	lock.Lock()
	defer lock.Unlock()
	logger.InfoContext(ctx, "verify finished",
		zap.Int("trials", opts.trials),
		zap.Int("failed", failed),
		zap.Int("keys", opts.keys),
		zap.Uint64("seed", opts.seed),
		zap.Duration("cost", time.Since(start)),
	)
	return errs
}
