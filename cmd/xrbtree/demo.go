package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/safeopen"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xrbtree/lib/infra"
	"github.com/benz9527/xrbtree/lib/tree"
	"github.com/benz9527/xrbtree/lib/xlog"
)

var (
	demoInsertKeys = []int{10, 20, 30, 40, 50}
	demoDeleteKeys = []int{20, 10}
)

type demoOpts struct {
	app  appOpts
	out  string
	file string
}

func parseDemoOpts(args []string, stderr io.Writer) (demoOpts, error) {
	opts := demoOpts{}
	f := flag.NewFlagSet("demo", flag.ContinueOnError)
	f.SetOutput(stderr)
	opts.app.register(f, "demo", stderr)
	f.StringVar(&opts.out, "out", "",
		"directory to write the printed tree into, stdout if empty")
	f.StringVar(&opts.file, "file", "rbtree.txt",
		"file name beneath -out")
	if err := f.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func runDemo(opts demoOpts, logger xlog.XLogger, stdout io.Writer) (err error) {
	rbtree := tree.NewRBTree[int, int](
		tree.WithRBTreeLogger[int, int](logger),
		tree.WithRBTreeStats[int, int]("demo"),
	)
	defer rbtree.Release()

	for _, key := range demoInsertKeys {
		if err = rbtree.Insert(key, key); err != nil {
			return infra.WrapErrorStackWithMessage(err, fmt.Sprintf("insert %d", key))
		}
	}
	for _, key := range demoDeleteKeys {
		if _, err = rbtree.Delete(key); err != nil {
			return infra.WrapErrorStackWithMessage(err, fmt.Sprintf("delete %d", key))
		}
	}
	if err = tree.Validate[int, int](rbtree); err != nil {
		return err
	}

	w := stdout
	if opts.out != "" {
		var file *os.File
		if file, err = safeopen.CreateBeneath(opts.out, opts.file); err != nil {
			return infra.WrapErrorStackWithMessage(err, "create demo output")
		}
		defer func() {
			err = multierr.Append(err, file.Close())
		}()
		w = file
	}

	if _, err = fmt.Fprintf(w, "in-order: %v\n", rbtree.Keys()); err != nil {
		return err
	}
	if err = rbtree.Print(w); err != nil {
		return err
	}
	logger.Info("demo tree printed",
		zap.Ints("keys", rbtree.Keys()),
		zap.Int64("len", rbtree.Len()),
		zap.String("out", opts.out),
	)
	return nil
}
