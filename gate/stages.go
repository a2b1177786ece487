package gate

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/samber/lo"

	"trips/entity"
	"trips/ratelimit"
)

type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (entity.Identity, error)
}

type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

type Authentication struct {
	verifier IdentityVerifier
}

func NewAuthentication(verifier IdentityVerifier) Authentication {
	if verifier == nil {
		panic("missing verifier")
	}

	return Authentication{verifier: verifier}
}

func (Authentication) Name() string { return "authentication" }

func (a Authentication) Check(ctx context.Context, req *Request) error {
	if req.Operation.Public {
		return nil
	}
	if req.Credential == "" {
		return entity.ErrUnauthorized
	}

	identity, err := a.verifier.Verify(ctx, req.Credential)
	if err != nil {
		log.FromContext(ctx).WithError(err).Debug("Credential verification failed")
		return entity.ErrUnauthorized
	}
	if identity.Anonymous() {
		return entity.ErrUnauthorized
	}

	req.Identity = identity
	return nil
}

type Authorization struct{}

func (Authorization) Name() string { return "authorization" }

func (Authorization) Check(ctx context.Context, req *Request) error {
	op := req.Operation
	if op.Public || op.ReadOnly || len(op.Roles) == 0 {
		return nil
	}

	if !lo.Contains(op.Roles, req.Identity.Role) {
		log.FromContext(ctx).
			WithField("role", req.Identity.Role).
			Debug("Role not allowed for operation")
		return entity.ErrUnauthorized
	}

	return nil
}

type RateLimiting struct {
	limiter Limiter
}

func NewRateLimiting(limiter Limiter) RateLimiting {
	if limiter == nil {
		panic("missing limiter")
	}

	return RateLimiting{limiter: limiter}
}

func (RateLimiting) Name() string { return "rate_limiting" }

func (r RateLimiting) Check(ctx context.Context, req *Request) error {
	decision, err := r.limiter.Allow(ctx, req.ClientKey)
	if err != nil {
		// limiting is best-effort: backend errors admit the request
		log.FromContext(ctx).WithError(err).Warn("Rate limiter unavailable, admitting request")
		return nil
	}
	if !decision.Allowed {
		return &entity.RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	return nil
}

// IsRejection reports whether err came from one of the gate stages.
func IsRejection(err error) bool {
	return errors.Is(err, entity.ErrUnauthorized) || errors.Is(err, entity.ErrRateLimited)
}
