// Command reftreedemo builds a reference-counted profile tree out of
// newline-delimited frame-path input and reports how reclamation plays
// out. It is a demonstration harness, not part of the reftree protocol
// itself.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/rogpeppe/reftree"
	"github.com/rogpeppe/reftree/rzlog"
)

func main() {
	var (
		threshold = pflag.IntP("threshold", "t", 300, "free-list length above which a GC pass is forced after every line")
		sep       = pflag.StringP("separator", "s", ";", "separator between frames on each input line")
		quiet     = pflag.BoolP("quiet", "q", false, "suppress per-event logging; print only the final summary")
	)
	pflag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if *quiet {
		log = log.Level(zerolog.Disabled)
	}

	tr := reftree.New("", identity,
		reftree.WithGCThreshold[string, string](*threshold),
		reftree.WithLogger[string, string](rzlog.New(log, zerolog.DebugLevel)),
	)
	defer tr.Close()

	scanner := bufio.NewScanner(os.Stdin)
	var lines int
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		closeLeaf := walk(tr, strings.Split(line, *sep))
		if err := closeLeaf.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close: %v\n", err)
		}
		tr.MaybeGC()
		lines++
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("lines processed: %d\n", lines)
	fmt.Printf("free list length before final GC: %d\n", tr.FreeListLen())
	tr.GC()
	fmt.Printf("free list length after final GC: %d\n", tr.FreeListLen())
}

func identity(v string) string { return v }

// walk ensures every frame in frames exists as a chain of children below
// the tree's root, returning a handle to the leaf. Every intermediate
// handle along the way is closed immediately: only the chain's ownership
// stake (via each node's ancestors link) keeps it alive, exactly as a
// real profiler would retain a call stack only while it remains live.
func walk(tr *reftree.Tree[string, string], frames []string) *reftree.Handle[string, string] {
	cur := tr.Root()
	var prev *reftree.Handle[string, string]
	for _, frame := range frames {
		h := cur.EnsureChild(frame)
		if prev != nil {
			prev.Close()
		}
		prev = h
		cur = h.Node()
	}
	return prev
}
