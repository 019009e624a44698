package main

import (
	"runtime/debug"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
)

func main() {
	boa.CmdT[TUIParams]{
		Use:         "streamer",
		Short:       "Search artists and stream their top tracks",
		Long:        "streamer searches a music catalog for artists, lists their most popular tracks and plays them.\nWithout a subcommand it starts the terminal UI.",
		Version:     appVersion(),
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *TUIParams, cmd *cobra.Command, args []string) {
			exit(runTUI(cmd.Context(), params))
		},
		SubCmds: []*cobra.Command{
			tuiCmd(),
			searchCmd(),
			topCmd(),
			playCmd(),
			resumeCmd(),
			scanCmd(),
		},
	}.Run()
}

func defaultParamEnricher() boa.ParamEnricher {
	return boa.ParamEnricherCombine(
		boa.ParamEnricherBool,
		boa.ParamEnricherName,
		boa.ParamEnricherShort,
	)
}

func appVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown-(no build info)"
	}
	if bi.Main.Version == "" {
		return "unknown-(no version)"
	}
	return bi.Main.Version
}
