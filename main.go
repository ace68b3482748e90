package main

import (
	"epic-postinstall/cmd"
)

// main delegates to cmd.Execute, which parses flags, runs the selected
// command and sets the exit status.
func main() {
	cmd.Execute()
}
