// Command allowlist builds the merkle root and per account proofs for a
// sale allowlist. Addresses are read one per line; blank lines and lines
// starting with # are skipped.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"launchpad/core/types"
	"launchpad/crypto/merkle"
)

type report struct {
	Root     string              `json:"root"`
	Accounts int                 `json:"accounts"`
	Proofs   map[string][]string `json:"proofs"`
}

func main() {
	input := flag.String("in", "", "Path to the address list (defaults to stdin)")
	flag.Parse()

	var src io.Reader = os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open %s: %v\n", *input, err)
			os.Exit(1)
		}
		defer f.Close()
		src = f
	}

	addrs, err := readAddresses(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read addresses: %v\n", err)
		os.Exit(1)
	}
	out, err := build(addrs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build allowlist: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode report: %v\n", err)
		os.Exit(1)
	}
}

func readAddresses(r io.Reader) ([][20]byte, error) {
	var addrs [][20]byte
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		addr, err := types.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		addrs = append(addrs, addr)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return addrs, nil
}

func build(addrs [][20]byte) (*report, error) {
	tree, err := merkle.NewTree(addrs)
	if err != nil {
		return nil, err
	}
	root := tree.Root()
	out := &report{Root: hexutil.Encode(root[:]), Proofs: make(map[string][]string, len(addrs))}
	for _, addr := range addrs {
		key := types.HexAddress(addr)
		if _, done := out.Proofs[key]; done {
			continue
		}
		proof, _ := tree.Proof(addr)
		hashes := make([]string, len(proof))
		for i, node := range proof {
			hashes[i] = hexutil.Encode(node[:])
		}
		out.Proofs[key] = hashes
	}
	out.Accounts = len(out.Proofs)
	return out, nil
}
