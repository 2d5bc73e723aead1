package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/dbkeeper/internal/config"
	"github.com/dmitrijs2005/dbkeeper/internal/docker"
	"github.com/dmitrijs2005/dbkeeper/internal/logging"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
	"github.com/dmitrijs2005/dbkeeper/internal/probe"
)

// Observer receives every lifecycle transition. Errors are logged and
// otherwise ignored.
type Observer interface {
	Observe(ctx context.Context, t models.Transition) error
}

// HealthPolicies resolves the readiness policy of a kind.
type HealthPolicies interface {
	HealthFor(kind models.Kind) config.HealthPolicy
}

const (
	defaultCleanupTimeout = 30 * time.Second
	defaultProbeTimeout   = 5 * time.Second
	// HostIP is the only interface database ports are published on.
	HostIP = "127.0.0.1"
)

type Orchestrator struct {
	daemon   docker.Daemon
	policies HealthPolicies
	logger   logging.Logger

	prober   probe.Checker
	observer Observer

	cleanupTimeout time.Duration
	probeTimeout   time.Duration
	now            func() time.Time
	newID          func() string
}

type Option func(*Orchestrator)

// WithProber enables host-side connect probes for kinds whose policy asks
// for them. Without a prober every kind uses its exec probe.
func WithProber(p probe.Checker) Option {
	return func(o *Orchestrator) { o.prober = p }
}

func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithCleanupTimeout bounds the rollback that follows a failed provision.
// Non-positive values keep the default.
func WithCleanupTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.cleanupTimeout = d
		}
	}
}

// WithProbeTimeout bounds a single readiness probe. Non-positive values keep
// the default.
func WithProbeTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.probeTimeout = d
		}
	}
}

func New(d docker.Daemon, policies HealthPolicies, logger logging.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		daemon:         d,
		policies:       policies,
		logger:         logger,
		cleanupTimeout: defaultCleanupTimeout,
		probeTimeout:   defaultProbeTimeout,
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ContainerName is the daemon-side name of a record's container.
func ContainerName(r models.DatabaseRecord) string {
	return "dbkeeper-" + r.Name
}

// VolumeName is the data volume of a record, keyed by its id so that a
// later record reusing the name never inherits old data.
func VolumeName(id string) string {
	return "dbkeeper-" + id + "-data"
}

func (o *Orchestrator) transition(ctx context.Context, r models.DatabaseRecord, from, to models.Stage, err error) {
	log := o.logger.With("record_id", r.ID, "kind", string(r.Kind), "state", string(to))
	if err != nil {
		log.Error(ctx, "record transition", "from", string(from), "error_class", ErrorClass(err))
	} else {
		log.Info(ctx, "record transition", "from", string(from))
	}

	if o.observer == nil {
		return
	}
	t := models.Transition{
		RecordID:   r.ID,
		Kind:       r.Kind,
		From:       from,
		To:         to,
		ErrorClass: ErrorClass(err),
		At:         o.now(),
	}
	if oerr := o.observer.Observe(ctx, t); oerr != nil {
		log.Warn(ctx, "observer failed", "error", oerr)
	}
}

// cleanupContext survives cancellation of the request that failed.
func (o *Orchestrator) cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), o.cleanupTimeout)
}
