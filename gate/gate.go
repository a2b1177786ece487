package gate

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"

	"trips/entity"
	"trips/metrics"
)

// Operation describes what a request is trying to do, as far as admission is concerned.
type Operation struct {
	Name string
	// Public operations need no credential.
	Public bool
	// ReadOnly operations skip the role check.
	ReadOnly bool
	// Roles allowed to perform the operation. Empty means any authenticated identity.
	Roles []entity.Role
}

type Request struct {
	Operation  Operation
	Credential string
	ClientKey  string

	// Identity is set by the authentication stage.
	Identity entity.Identity
}

// Stage is a single admission check. Returning an error stops the chain.
type Stage interface {
	Name() string
	Check(ctx context.Context, req *Request) error
}

// Gate runs its stages in order and stops at the first rejection.
type Gate struct {
	stages []Stage
}

func New(stages ...Stage) Gate {
	for _, s := range stages {
		if s == nil {
			panic("missing gate stage")
		}
	}

	return Gate{stages: stages}
}

// NewDefault builds the authentication, authorization and rate limiting chain.
// A nil limiter disables rate limiting.
func NewDefault(verifier IdentityVerifier, limiter Limiter) Gate {
	stages := []Stage{
		NewAuthentication(verifier),
		Authorization{},
	}
	if limiter != nil {
		stages = append(stages, NewRateLimiting(limiter))
	}

	return New(stages...)
}

func (g Gate) Admit(ctx context.Context, req Request) (entity.Identity, error) {
	for _, stage := range g.stages {
		if err := stage.Check(ctx, &req); err != nil {
			metrics.GateRejections.WithLabelValues(stage.Name(), req.Operation.Name).Inc()
			log.FromContext(ctx).WithFields(logrus.Fields{
				"stage":      stage.Name(),
				"operation":  req.Operation.Name,
				"client_key": req.ClientKey,
			}).WithError(err).Info("Request rejected")

			return entity.Identity{}, err
		}
	}

	return req.Identity, nil
}
