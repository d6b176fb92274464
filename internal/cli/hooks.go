package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/soyeahso/marketmind/internal/hooks"
	"github.com/soyeahso/marketmind/internal/logging"
)

// watchPartialData warns when a query is answered from fewer sources than
// it targeted.
func watchPartialData(hm *hooks.Manager, log *logging.Logger) {
	hm.On(hooks.EventDispatchComplete, "partial-data", func(_ context.Context, p hooks.Payload) error {
		attempted, _ := p.Data["attempted"].(int)
		succeeded, _ := p.Data["succeeded"].(int)
		if attempted == 0 || succeeded == attempted {
			return nil
		}
		targets, _ := p.Data["targets"].([]string)
		log.Warn().
			Strs("targets", targets).
			Int("attempted", attempted).
			Int("succeeded", succeeded).
			Msg("answering with partial live data")
		return nil
	})
}

// announceGateway prints the serve banner when the gateway starts and stops.
func announceGateway(hm *hooks.Manager, w io.Writer) {
	hm.On(hooks.EventGatewayStart, "banner", func(_ context.Context, p hooks.Payload) error {
		_, err := fmt.Fprintf(w, "marketmind listening on http://%v\n", p.Data["addr"])
		return err
	})
	hm.On(hooks.EventGatewayStop, "banner", func(context.Context, hooks.Payload) error {
		_, err := fmt.Fprintln(w, "marketmind stopping")
		return err
	})
}
