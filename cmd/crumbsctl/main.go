package main

import (
	"github.com/CameronBrooks11/CRUMBS/pkg/cli/sh"
	"github.com/CameronBrooks11/CRUMBS/pkg/env"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
