package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/soyeahso/marketmind/internal/config"
	"github.com/soyeahso/marketmind/internal/llm"
	"github.com/soyeahso/marketmind/internal/logging"
	"github.com/soyeahso/marketmind/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show marketmind status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("marketmind %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Printf("Config:  error loading: %v\n", err)
				return nil
			}
			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Println("Config:  not found (using defaults)")
			}

			printStatus(os.Stdout, cfg, paths, log)
			return nil
		},
	}

	return cmd
}

func printStatus(w io.Writer, cfg config.Config, p config.Paths, log *logging.Logger) {
	fmt.Fprintf(w, "Gateway: port=%d bind=%s metrics=%v\n", cfg.Gateway.Port, cfg.Gateway.Bind, cfg.Gateway.Metrics)

	// LLM providers
	if reg, err := llm.NewRegistryFromConfig(cfg.LLM, log); err == nil {
		fmt.Fprintf(w, "LLM:     provider=%s available=%s\n", cfg.LLM.Provider, strings.Join(reg.List(), ", "))
	} else {
		fmt.Fprintf(w, "LLM:     error: %v\n", err)
	}

	model := cfg.Agent.Model
	if model == "" {
		model = "(provider default)"
	}
	plugins := cfg.Agent.ResolvePlugins()
	fmt.Fprintf(w, "Agent:   name=%q model=%s plugins=%s\n", cfg.Agent.Name, model, strings.Join(enabledIDs(plugins), ","))
	fmt.Fprintf(w, "Dispatch: timeout=%s concurrency=%d rate=%d/min\n",
		cfg.Dispatch.PluginTimeout(), cfg.Dispatch.MaxConcurrency, cfg.Dispatch.RateLimitPerMinute)
	fmt.Fprintf(w, "Cache:   backend=%s ttl=%s\n", cfg.Cache.Backend, cfg.Cache.TTL())

	store := fmt.Sprintf("Store:   backend=%s", cfg.Store.Backend)
	if cfg.Store.Backend != "memory" {
		path := p.DatabasePath(cfg.Store)
		store += " path=" + path
		if fi, err := os.Stat(path); err == nil {
			store += fmt.Sprintf(" size=%s modified=%s", humanize.Bytes(uint64(fi.Size())), humanize.Time(fi.ModTime()))
		}
	}
	fmt.Fprintln(w, store)

	// Validation
	issues := config.Validate(&cfg)
	if len(issues) > 0 {
		fmt.Fprintf(w, "\nValidation issues (%d):\n", len(issues))
		for _, issue := range issues {
			fmt.Fprintf(w, "  - %s: %s\n", issue.Path, issue.Message)
		}
	}
}
