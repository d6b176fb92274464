package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var (
		model   string
		asJSON  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Ask the configured agent a question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			rt, err := buildRuntime(cfg, nil, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			a, err := rt.configuredAgent(model, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			resp, err := a.ProcessQuery(ctx, query)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			fmt.Println(resp.Text)
			if resp.MCPDataUsed {
				fmt.Fprintf(os.Stderr, "\n(%d live source(s), %s)\n",
					len(resp.UsedSources), time.Since(start).Round(time.Millisecond))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "override the agent's model")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full response as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "maximum time to wait for an answer")

	return cmd
}
