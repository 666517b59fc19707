package shortlink

import (
	"context"
	"errors"
	"fmt"
)

// CodeGenerator generates a candidate short code.
type CodeGenerator func() string

// issueAttempts bounds the collision retry loop. With a nanoid-sized
// code space this bound is practically unreachable.
const issueAttempts = 10

// Issuer mints short codes that do not collide with any code in the
// registry at the moment of check. Reservation stays with the caller:
// the registry's unique constraint on the code is what prevents two
// racing issuers from both keeping the same candidate.
type Issuer struct {
	registry Registry
	generate CodeGenerator
}

// NewIssuer creates an issuer backed by the given registry and generator.
func NewIssuer(registry Registry, generator CodeGenerator) *Issuer {
	return &Issuer{
		registry: registry,
		generate: generator,
	}
}

// Issue returns a collision-free short code or ErrCodeSpaceExhausted
// after the retry bound.
func (i *Issuer) Issue(ctx context.Context) (string, error) {
	for attempt := 0; attempt < issueAttempts; attempt++ {
		code := i.generate()

		_, err := i.registry.GetByCode(ctx, code)
		if errors.Is(err, ErrNotFound) {
			return code, nil
		}

		if err != nil {
			return "", fmt.Errorf("probing code %q: %w", code, err)
		}
	}

	return "", ErrCodeSpaceExhausted
}
