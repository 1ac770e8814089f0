// Package main is the push-up journey command line app. It drives the same progress service
// as the HTTP service, on a local store (sqlite by default).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(&options{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
