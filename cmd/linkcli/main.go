package main

import (
	"github.com/robotalks/multilink/pkg/cli/sh"
	"github.com/robotalks/multilink/pkg/config"

	_ "github.com/robotalks/multilink/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
}

func main() {
	sh.Main()
}
