// Command bacpanel trains the inhibition panel model and serves
// predictions from the command line.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
