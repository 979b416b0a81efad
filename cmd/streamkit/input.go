package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
)

// maxLineBytes bounds a single input line. Lines beyond this fail the scan
// rather than silently truncating.
const maxLineBytes = 1 << 20

func openInput(path string) (io.Reader, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}
	return f, f.Close, nil
}

// lineIterator adapts a reader to the pipeline iterator protocol, one line
// per item. It is single-pass, like the reader underneath it.
type lineIterator struct {
	scanner *bufio.Scanner
	err     error
	done    bool
}

func newLineIterator(r io.Reader) *lineIterator {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &lineIterator{scanner: sc}
}

func (it *lineIterator) Next(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if it.err != nil {
		return "", false, it.err
	}
	if it.done {
		return "", false, nil
	}
	if !it.scanner.Scan() {
		it.done = true
		if err := it.scanner.Err(); err != nil {
			it.err = err
			return "", false, err
		}
		return "", false, nil
	}
	return it.scanner.Text(), true, nil
}

func (it *lineIterator) Close() error { return nil }
