package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/config"
	"github.com/dmitrijs2005/dbkeeper/internal/docker"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
	"github.com/dmitrijs2005/dbkeeper/internal/templates"
)

var errNotReady = errors.New("not ready")

func backoff(p config.HealthPolicy) retry.Backoff {
	var b retry.Backoff
	if p.Backoff == config.BackoffExponential {
		b = retry.NewExponential(p.Interval)
		b = retry.WithCappedDuration(8*p.Interval, b)
	} else {
		b = retry.NewConstant(p.Interval)
	}
	return retry.WithMaxRetries(uint64(p.Attempts-1), b)
}

// waitHealthy polls readiness until it succeeds, attempts run out or the
// policy timeout expires. Any of the latter is ErrHealthCheckTimeout.
func (o *Orchestrator) waitHealthy(ctx context.Context, rec models.DatabaseRecord, tmpl templates.Template, p models.Params, containerID string) error {
	policy := o.policies.HealthFor(rec.Kind)
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}

	strategy := policy.Strategy
	if strategy == "" {
		strategy = tmpl.Strategy
	}
	if strategy == templates.StrategyConnect && o.prober == nil {
		strategy = templates.StrategyExec
	}

	if policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, policy.Timeout)
		defer cancel()
	}

	exec := tmpl.HealthProbe(p)
	spec := docker.ProbeSpec{Cmd: exec.Cmd, Env: exec.Env}

	attempt := 0
	var last error
	err := retry.Do(ctx, backoff(policy), func(ctx context.Context) error {
		attempt++
		pctx, cancel := context.WithTimeout(ctx, o.probeTimeout)
		defer cancel()

		var err error
		if strategy == templates.StrategyConnect {
			err = o.prober.Check(pctx, rec)
		} else {
			var ok bool
			ok, err = o.daemon.Probe(pctx, containerID, spec)
			if err == nil && !ok {
				err = errNotReady
			}
		}
		if err == nil {
			return nil
		}

		last = err
		o.logger.Debug(ctx, "health probe", "record_id", rec.ID, "attempt", attempt, "strategy", string(strategy), "error", err)
		// A vanished container or an unreachable daemon will not heal.
		if errors.Is(err, docker.ErrNotFound) || errors.Is(err, common.ErrDaemonUnavailable) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, common.ErrDaemonUnavailable) {
		return fmt.Errorf("health check after %d attempt(s): %w", attempt, err)
	}
	if last == nil {
		last = err
	}
	return fmt.Errorf("%w: after %d attempt(s): %v", common.ErrHealthCheckTimeout, attempt, last)
}
