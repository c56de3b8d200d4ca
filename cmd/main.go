// cmd/main.go is the application entry point.
// Every mode of the binary lives under internal/cli.
package main

import (
	"fmt"
	"os"

	"github.com/Shivanand-hulikatti/nsc-international/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
