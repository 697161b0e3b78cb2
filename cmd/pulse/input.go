package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// openInput opens path for reading, or returns stdin when path is empty or
// "-". The returned close func is always safe to call.
func openInput(path string, stdin io.Reader) (io.Reader, func() error, error) {
	if path == "" || path == "-" {
		return stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, f.Close, nil
}

// scanLines calls fn with each non-blank line that is not a '#' comment,
// trimmed, along with its 1-based line number.
func scanLines(r io.Reader, fn func(line string, n int) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(line, n); err != nil {
			return err
		}
	}
	return sc.Err()
}

// readFloats parses one number per line.
func readFloats(r io.Reader) ([]float64, error) {
	out := []float64{}
	err := scanLines(r, func(line string, n int) error {
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid number %q", n, line)
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

// readIndices parses one non-negative sample index per line, as written by
// annotation tools.
func readIndices(r io.Reader) ([]int, error) {
	out := []int{}
	err := scanLines(r, func(line string, n int) error {
		v, err := strconv.Atoi(line)
		if err != nil || v < 0 {
			return fmt.Errorf("line %d: invalid sample index %q", n, line)
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func readFloatsFrom(path string, stdin io.Reader) ([]float64, error) {
	r, closeFn, err := openInput(path, stdin)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return readFloats(r)
}

func readIndicesFrom(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open annotations: %w", err)
	}
	defer f.Close()
	return readIndices(f)
}
