package main

import (
	"github.com/robotalks/halflink/pkg/cli/sh"
	"github.com/robotalks/halflink/pkg/env"
)

func main() {
	env.SetupFlags()
	sh.Main()
}
