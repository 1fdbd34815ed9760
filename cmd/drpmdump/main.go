package main

import (
	"flag"
	"os"

	"github.com/midbel/drpm"
)

func main() {
	flag.Parse()
	for _, p := range flag.Args() {
		if err := drpm.Dump(p, os.Stdout); err != nil {
			os.Exit(1)
		}
	}
}
