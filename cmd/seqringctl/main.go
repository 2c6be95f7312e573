// Command seqringctl creates, produces into, consumes from and inspects
// shared-memory seqring rings backed by a named file on disk.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
