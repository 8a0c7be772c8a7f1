// Command argtree is an informal inspection tool for the btree core: add
// values from argv, dump the resulting sequence, force a root snapshot, or
// list garbage-collectible storage keys. It is not part of the core (the
// core has no CLI surface); it only exercises the core as a library.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jvillste/argumentica/btree"
	"github.com/jvillste/argumentica/compare"
	"github.com/jvillste/argumentica/storage"
)

func main() {
	app := &cli.App{
		Name:  "argtree",
		Usage: "informal debugging CLI for the argumentica btree core",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "directory to persist node/metadata storage in; defaults to in-memory"},
			&cli.IntFlag{Name: "full", Usage: "fullness threshold (must be odd)", Value: 1001},
		},
		Commands: []*cli.Command{
			{
				Name:   "add",
				Usage:  "add each argument (parsed as a number if possible, else a string) and print the resulting sequence",
				Action: runAdd,
			},
			{
				Name:   "store-root",
				Usage:  "add each argument, unload the tree, and record a root snapshot",
				Action: runStoreRoot,
			},
			{
				Name:   "roots",
				Usage:  "list recorded root snapshots",
				Action: runRoots,
			},
			{
				Name:   "gc",
				Usage:  "list storage keys unreachable from any recorded root",
				Action: runGC,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Default().With("system", "argtree").Error("command failed", "error", err)
		os.Exit(1)
	}
}

// nodeCacheSize bounds the in-process read cache placed in front of
// filesystem node storage. The cache lasts only for one invocation; it is
// not shared between separate runs against the same directory.
const nodeCacheSize = 4096

func openTree(cctx *cli.Context) (*btree.Tree, error) {
	opts := []btree.Option{btree.WithFull(cctx.Int("full"))}

	if dir := cctx.String("dir"); dir != "" {
		rawNodes, err := storage.NewFilesystem(dir + "/nodes")
		if err != nil {
			return nil, fmt.Errorf("open node storage: %w", err)
		}
		nodes, err := storage.NewCached(rawNodes, nodeCacheSize)
		if err != nil {
			return nil, fmt.Errorf("wrap node storage in cache: %w", err)
		}
		meta, err := storage.NewFilesystem(dir + "/metadata")
		if err != nil {
			return nil, fmt.Errorf("open metadata storage: %w", err)
		}
		opts = append(opts, btree.WithNodeStorage(nodes), btree.WithMetadataStorage(meta))
	}

	return btree.New(compare.CrossType, opts...)
}

func parseValue(s string) any {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}

func runAdd(cctx *cli.Context) error {
	ctx := context.Background()
	tr, err := openTree(cctx)
	if err != nil {
		return err
	}

	for _, arg := range cctx.Args().Slice() {
		if err := tr.Add(ctx, parseValue(arg)); err != nil {
			return fmt.Errorf("add %q: %w", arg, err)
		}
	}

	return printSequence(ctx, tr)
}

func runStoreRoot(cctx *cli.Context) error {
	ctx := context.Background()
	tr, err := openTree(cctx)
	if err != nil {
		return err
	}

	for _, arg := range cctx.Args().Slice() {
		if err := tr.Add(ctx, parseValue(arg)); err != nil {
			return fmt.Errorf("add %q: %w", arg, err)
		}
	}

	snap, err := tr.StoreRoot(ctx, time.Now().UnixNano(), nil)
	if err != nil {
		return fmt.Errorf("store root: %w", err)
	}
	fmt.Println(snap.StorageKey)
	return nil
}

func runRoots(cctx *cli.Context) error {
	ctx := context.Background()
	tr, err := openTree(cctx)
	if err != nil {
		return err
	}

	roots, err := tr.Roots(ctx)
	if err != nil {
		return fmt.Errorf("list roots: %w", err)
	}
	for _, r := range roots {
		fmt.Printf("%s\t%d\n", r.StorageKey, r.StoredTimeNanos)
	}
	return nil
}

func runGC(cctx *cli.Context) error {
	ctx := context.Background()
	tr, err := openTree(cctx)
	if err != nil {
		return err
	}

	unused, err := tr.UnusedStorageKeys(ctx)
	if err != nil {
		return fmt.Errorf("compute unused storage keys: %w", err)
	}
	for _, k := range unused {
		fmt.Println(k)
	}
	return nil
}

func printSequence(ctx context.Context, tr *btree.Tree) error {
	it := tr.InclusiveSubsequence(ctx, false)
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			return fmt.Errorf("iterate: %w", err)
		}
		if !ok {
			return nil
		}
		fmt.Println(v)
	}
}
