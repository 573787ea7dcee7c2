// Idiomatic entrypoint for the Cobra CLI; all flag wiring lives in
// cmd/anchorcluster/cmd/root.go and its sibling command files.
package main

import (
	"github.com/anchorcluster/anchorcluster/cmd/anchorcluster/cmd"
)

func main() {
	cmd.Execute()
}
