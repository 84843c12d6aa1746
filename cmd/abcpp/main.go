package main

import (
	"errors"
	"os"

	"github.com/fwessels/abcpp/internal/diag"
)

func main() {
	if err := execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errReported) {
			diag.NewReporter(os.Stderr).Report(err)
		}
		os.Exit(1)
	}
}
