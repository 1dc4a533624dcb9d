package backup

import (
	"errors"
	"fmt"

	"github.com/joe/fileknight/internal/config"
	"github.com/joe/fileknight/pkg/fileops"
	"github.com/joe/fileknight/pkg/filesystem"
)

// Strategy writes a directory source into its destination.
type Strategy interface {
	Name() string
	Apply(ops *fileops.FileOps, src, dst string, opts fileops.TreeOptions) (*fileops.TreeStats, error)
}

// Exported variables.
var (
	ErrVerifyFailed = errors.New("mirror verification failed")

	// Mirror deletes the previous copy and copies the source tree fresh
	Mirror Strategy = mirrorStrategy{}
	// Merge copies the tree when absent and overlays it otherwise,
	// leaving destination-only files in place
	Merge Strategy = mergeStrategy{}
)

// StrategyFor returns the strategy for mode. Unknown modes mirror.
func StrategyFor(mode config.Mode) Strategy {
	if mode == config.ModeCopy {
		return Merge
	}

	return Mirror
}

type mirrorStrategy struct{}

func (mirrorStrategy) Name() string { return string(config.ModeMirror) }

func (mirrorStrategy) Apply(ops *fileops.FileOps, src, dst string, opts fileops.TreeOptions) (*fileops.TreeStats, error) {
	exists, err := filesystem.Exists(ops.DestFS, dst)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", dst, err)
	}

	if exists {
		err = ops.DestFS.RemoveAll(dst)
		if err != nil {
			return nil, fmt.Errorf("failed to remove previous copy %s: %w", dst, err)
		}
	}

	stats, err := ops.CopyTree(src, dst, opts)
	if err != nil {
		return stats, err
	}

	return stats, verifyMirror(ops.DestFS, dst, stats)
}

// verifyMirror rescans a fresh mirror on the destination and checks that it
// holds exactly the files the copy reported.
func verifyMirror(destFS filesystem.FileSystem, dst string, stats *fileops.TreeStats) error {
	scanner := destFS.Scan(dst)
	files := 0

	for {
		entry, ok := scanner.Next()
		if !ok {
			break
		}

		if !entry.IsDir {
			files++
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to verify %s: %w", dst, err)
	}

	if files != stats.Files {
		return fmt.Errorf("%w: %s holds %d files, copied %d", ErrVerifyFailed, dst, files, stats.Files)
	}

	return nil
}

type mergeStrategy struct{}

func (mergeStrategy) Name() string { return string(config.ModeCopy) }

func (mergeStrategy) Apply(ops *fileops.FileOps, src, dst string, opts fileops.TreeOptions) (*fileops.TreeStats, error) {
	exists, err := filesystem.Exists(ops.DestFS, dst)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", dst, err)
	}

	if !exists {
		return ops.CopyTree(src, dst, opts)
	}

	return ops.MergeTree(src, dst, opts)
}
