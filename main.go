// The main package for the botlog executable.
package main

import (
	"github.com/JakeFAU/botlog/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
