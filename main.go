package main

import (
	"github.com/sidkik/mirrorball/cmd"
	"github.com/sidkik/mirrorball/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
