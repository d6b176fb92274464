package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Grounding context entries are written as a header line followed by the
// entry body:
//
//	[Crypto Prices | 2026-03-10T12:00:00Z]
//	BTC price $68,223.45 (+2.70% 24h), ...
//
// Entries are separated by a blank line.
var contextHeader = regexp.MustCompile(`^\[(.+) \| (\S+)\]$`)

// FormatContextEntry renders one grounding entry in the form the offline
// provider understands. Hosted models read it as plain text.
func FormatContextEntry(source string, at time.Time, body string) string {
	return fmt.Sprintf("[%s | %s]\n%s", source, at.UTC().Format(time.RFC3339), strings.TrimSpace(body))
}

type contextEntry struct {
	source string
	at     string
	body   []string
}

func parseContext(text string) []contextEntry {
	var (
		out []contextEntry
		cur *contextEntry
	)
	for _, line := range strings.Split(text, "\n") {
		if m := contextHeader.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			out = append(out, contextEntry{source: m[1], at: m[2]})
			cur = &out[len(out)-1]
			continue
		}
		if cur == nil {
			continue
		}
		if strings.TrimSpace(line) == "" {
			cur = nil
			continue
		}
		cur.body = append(cur.body, line)
	}
	return out
}

// OfflineClient is a deterministic, network-free generator. It renders any
// grounding entries found in the last user message into prose that names
// each source and its timestamp, and answers anything else with a fixed
// capability notice.
type OfflineClient struct{}

// NewOfflineClient returns the offline provider.
func NewOfflineClient() *OfflineClient { return &OfflineClient{} }

func (c *OfflineClient) Name() string { return ProviderOffline }

const offlineNoData = "I don't have live market data for that question. " +
	"I can help with cryptocurrency prices and history, stock quotes, " +
	"the overall crypto market, and financial news."

// Complete renders the response. It honours context cancellation but never fails otherwise.
func (c *OfflineClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, providerError(ProviderOffline, 0, err)
	}
	start := time.Now()
	prompt := req.LastUserMessage()

	var b strings.Builder
	entries := parseContext(prompt)
	if len(entries) == 0 {
		b.WriteString(offlineNoData)
	} else {
		b.WriteString("Here is the latest data I have.")
		for _, e := range entries {
			fmt.Fprintf(&b, "\n\nFrom %s, as of %s:", e.source, e.at)
			for _, line := range e.body {
				b.WriteString("\n")
				b.WriteString(line)
			}
		}
	}

	content := b.String()
	return &CompletionResponse{
		Content:    content,
		StopReason: "end_turn",
		Model:      ProviderOffline,
		Usage: Usage{
			InputTokens:  len(strings.Fields(req.System)) + len(strings.Fields(prompt)),
			OutputTokens: len(strings.Fields(content)),
		},
		Duration: time.Since(start),
	}, nil
}
