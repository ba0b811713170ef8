// The main package for the pitboard executable.
package main

import (
	"github.com/pitboard-bot/pitboard/cmd"
)

func main() {
	cmd.Execute()
}
