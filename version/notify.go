package version

import (
	"context"
	"fmt"

	"github.com/sampletvinput/tvplay/color"
	"github.com/sampletvinput/tvplay/constant"
	"github.com/sampletvinput/tvplay/icon"
	"github.com/sampletvinput/tvplay/key"
	"github.com/sampletvinput/tvplay/log"
	"github.com/sampletvinput/tvplay/style"
	"github.com/sampletvinput/tvplay/util"
	"github.com/spf13/viper"
)

// Notify prints a notice when a newer release exists. It is a no-op unless
// cli.version_check is enabled.
func Notify() {
	if !viper.GetBool(key.CliVersionCheck) {
		return
	}

	erase := util.PrintErasable(icon.Get(icon.Progress) + " Checking for a new version...")
	latest, err := Latest(context.Background())
	erase()
	if err != nil {
		log.Warnf("version check: %s", err)
		return
	}

	if newer, err := Compare(latest, constant.Version); err != nil || newer <= 0 {
		return
	}

	fmt.Printf("\n%s New version available %s %s\n%s\n\n",
		style.Fg(color.Green)("▇▇▇"),
		style.Bold(latest),
		style.Faint(fmt.Sprintf("(you have %s)", constant.Version)),
		style.Faint(releasesURL+latest),
	)
}
