package main

import (
	"github.com/samber/lo"
	"github.com/sampletvinput/tvplay/cmd"
	"github.com/sampletvinput/tvplay/config"
	"github.com/sampletvinput/tvplay/log"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())
	cmd.Execute()
}
