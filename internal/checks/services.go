package checks

import (
	"context"
	"fmt"

	"github.com/routermedic/routermedic/internal/outcome"
	"github.com/routermedic/routermedic/internal/policy"
)

// ServiceLiveness verifies registered critical services are running and
// starts the ones that are not.
type ServiceLiveness struct {
	Services []string
}

// Name implements Check.
func (c *ServiceLiveness) Name() string { return "services" }

// Run implements Check.
func (c *ServiceLiveness) Run(ctx context.Context, env *Env) []outcome.Outcome {
	var out []outcome.Outcome

	for _, svc := range c.Services {
		running, err := env.Services.Running(ctx, svc)
		if err != nil {
			out = append(out, outcome.New(outcome.Failed, svc, fmt.Sprintf("liveness query failed: %v", err)))
			continue
		}
		if running {
			out = append(out, outcome.New(outcome.Observed, svc, "running"))
			continue
		}

		out = append(out, outcome.New(outcome.Found, svc, "not running"))

		if !env.Gate.MayFix(policy.CategoryService) {
			continue
		}
		startErr := env.Services.Start(ctx, svc)
		env.Gate.RecordFixAttempt()
		if startErr != nil {
			// A critical service that cannot be started needs external
			// attention.
			out = append(out, outcome.New(outcome.Critical, svc, fmt.Sprintf("start failed: %v", startErr)))
			continue
		}
		out = append(out, outcome.New(outcome.Fixed, svc, "started"))
	}
	return out
}
