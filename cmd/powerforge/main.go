// Package main provides powerforge, a command-line tool for browsing the
// power and trait catalogs and building heroes from them.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "powerforge:", err)
		os.Exit(1)
	}
}
