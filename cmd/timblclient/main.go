// Command timblclient is a thin CLI wrapper around package client:
// connect to a running timblserver, optionally select a base, then
// either run an interactive script from stdin or batch-classify a file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/LanguageMachines/timblserver/client"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("timblclient", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	node := fs.String("n", "localhost", "server node/host to connect to")
	port := fs.String("p", "", "server port to connect to")
	inPath := fs.String("i", "", "input file (default stdin)")
	outPath := fs.String("o", "", "output file (default stdout)")
	batch := fs.Bool("batch", false, "batch-classify -i line by line instead of running an interactive script")
	baseName := fs.String("b", "", "base to select after connecting")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}

	if *port == "" {
		fmt.Fprintln(os.Stderr, "-p <port> is required")
		return 1
	}

	in := os.Stdin
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		defer f.Close()
		in = f
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		defer f.Close()
		out = f
	}

	c := client.New()
	ok, err := c.Connect(*node, *port)
	if err != nil || !ok {
		fmt.Fprintf(os.Stderr, "unable to connect to %s:%s: %v\n", *node, *port, err)
		return 2
	}
	defer c.Close()

	if *baseName != "" {
		if !c.SetBase(*baseName) {
			fmt.Fprintf(os.Stderr, "unable to select base %q\n", *baseName)
			return 2
		}
	}

	var ran bool
	if *batch {
		ran = c.ClassifyFile(in, out)
	} else {
		ran = c.RunScript(in, out)
	}
	if !ran {
		return 2
	}
	return 0
}
