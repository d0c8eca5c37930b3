// Copyright 2026 The Patchforge Authors
// SPDX-License-Identifier: Apache-2.0

package patchfile

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Open opens the patch file at path for reading, decompressing
// according to the file name.
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(path, ".gz"):
		inner, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("opening gzip stream in %s: %w", path, err)
		}
		return &readCloser{Reader: inner, closers: []io.Closer{inner, file}}, nil
	case strings.HasSuffix(path, ".zst"):
		inner, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("opening zstd stream in %s: %w", path, err)
		}
		return &readCloser{Reader: inner, closers: []io.Closer{closerFunc(func() error {
			inner.Close()
			return nil
		}), file}}, nil
	case strings.HasSuffix(path, ".lz4"):
		return &readCloser{Reader: lz4.NewReader(file), closers: []io.Closer{file}}, nil
	default:
		return file, nil
	}
}

// Create creates the patch file at path for writing, compressing
// according to the file name. The caller must Close the result to
// flush compressed trailers.
func Create(path string) (io.WriteCloser, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(path, ".gz"):
		inner := gzip.NewWriter(file)
		return &writeCloser{Writer: inner, closers: []io.Closer{inner, file}}, nil
	case strings.HasSuffix(path, ".zst"):
		inner, err := zstd.NewWriter(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("opening zstd stream in %s: %w", path, err)
		}
		return &writeCloser{Writer: inner, closers: []io.Closer{inner, file}}, nil
	case strings.HasSuffix(path, ".lz4"):
		inner := lz4.NewWriter(file)
		return &writeCloser{Writer: inner, closers: []io.Closer{inner, file}}, nil
	default:
		return file, nil
	}
}

// readCloser closes a decompressor and its underlying file in order.
type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// writeCloser closes a compressor and its underlying file in order.
// Closing the compressor first flushes its trailer.
type writeCloser struct {
	io.Writer
	closers []io.Closer
}

func (wc *writeCloser) Close() error {
	var first error
	for _, c := range wc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// closerFunc adapts a function to io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }
