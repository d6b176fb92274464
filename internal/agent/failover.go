package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/soyeahso/marketmind/internal/llm"
	"github.com/soyeahso/marketmind/internal/logging"
)

// modelChain is the generator an agent talks to. It resolves the agent's
// model first and moves down the fallback list while providers fail with
// errors another provider might not hit.
type modelChain struct {
	providers *llm.Registry
	models    []string
	log       *logging.Logger
}

func newModelChain(providers *llm.Registry, model string, fallbacks []string, log *logging.Logger) *modelChain {
	models := []string{model}
	for _, fb := range fallbacks {
		if fb != "" && !slices.Contains(models, fb) {
			models = append(models, fb)
		}
	}
	return &modelChain{providers: providers, models: models, log: log.Sub("failover")}
}

func (c *modelChain) Name() string {
	return "chain:" + strings.Join(c.models, ">")
}

func (c *modelChain) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if c.providers == nil {
		return nil, errors.New("no provider registry")
	}

	var errs []error
	for i, model := range c.models {
		client, err := c.providers.Resolve(model)
		if err != nil {
			c.log.Debug().Str("model", model).Err(err).Msg("no provider for model")
			errs = append(errs, err)
			continue
		}

		req.Model = model
		resp, err := client.Complete(ctx, req)
		if err == nil {
			if i > 0 {
				c.log.Info().Str("model", model).Str("provider", client.Name()).Msg("answered by fallback model")
			}
			return resp, nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return nil, err
		}
		c.log.Warn().Str("model", model).Str("provider", client.Name()).Err(err).Msg("provider failed, trying next model")
		errs = append(errs, fmt.Errorf("%s: %w", model, err))
	}
	return nil, errors.Join(errs...)
}

// retryable reports whether a different provider could plausibly succeed:
// auth, quota, overload and server-side failures, or an unreachable host.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	var pe *llm.ProviderError
	if errors.As(err, &pe) {
		switch pe.Code {
		case 401, 403, 408, 429, 500, 502, 503, 504, 529:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range []string{"overloaded", "rate limit", "capacity", "connection refused", "no such host"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
