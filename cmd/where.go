package cmd

import (
	"os"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sampletvinput/tvplay/color"
	"github.com/sampletvinput/tvplay/style"
	"github.com/sampletvinput/tvplay/where"
	"github.com/spf13/cobra"
)

type whereTarget struct {
	name  string
	path  func() string
	flag  string
	short mo.Option[string]
}

var whereTargets = []whereTarget{
	{"Config", where.Config, "config", mo.Some("c")},
	{"Logs", where.Logs, "logs", mo.Some("l")},
	{"Cache", where.Cache, "cache", mo.None[string]()},
	{"Sockets", where.Sockets, "sockets", mo.Some("s")},
}

func init() {
	rootCmd.AddCommand(whereCmd)

	for _, t := range whereTargets {
		if short, ok := t.short.Get(); ok {
			whereCmd.Flags().BoolP(t.flag, short, false, t.name+" path")
		} else {
			whereCmd.Flags().Bool(t.flag, false, t.name+" path")
		}
	}

	whereCmd.MarkFlagsMutuallyExclusive(lo.Map(whereTargets, func(t whereTarget, _ int) string {
		return t.flag
	})...)

	whereCmd.SetOut(os.Stdout)
}

var whereCmd = &cobra.Command{
	Use:   "where",
	Short: "Print the paths tvplay reads and writes",
	Run: func(cmd *cobra.Command, args []string) {
		if t, ok := lo.Find(whereTargets, func(t whereTarget) bool {
			return lo.Must(cmd.Flags().GetBool(t.flag))
		}); ok {
			cmd.Println(t.path())
			return
		}

		header := style.New().Bold(true).Foreground(color.Purple).Render
		for i, t := range whereTargets {
			cmd.Printf("%s %s\n", header(t.name+"?"), style.Fg(color.Yellow)("--"+t.flag))
			cmd.Println(t.path())

			if i < len(whereTargets)-1 {
				cmd.Println()
			}
		}
	},
}
