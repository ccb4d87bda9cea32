package main

import (
	"fmt"
	"os"
)

func main() {
	cmd := newRootCmd(os.LookupEnv)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[co2e] Error: %v\n", err)
		os.Exit(1)
	}
}
