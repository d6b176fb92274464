package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/soyeahso/marketmind/internal/plugin"
	"github.com/spf13/cobra"
)

func newPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List data plugins and whether they are enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cfg, nil, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			printPlugins(os.Stdout, rt.catalog.Info())
			return nil
		},
	}
}

func printPlugins(w io.Writer, infos []plugin.PluginInfo) {
	for _, p := range infos {
		state := "enabled"
		if !p.Enabled {
			state = "disabled"
		}
		if !p.Bound {
			state += ", no source"
		}
		fmt.Fprintf(w, "  %-16s %-16s %s\n", p.ID, p.Name, state)
	}
}
