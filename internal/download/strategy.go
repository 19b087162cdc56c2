package download

import "context"

// Strategy is one way of materializing a source into a local file.
type Strategy interface {
	Name() string
	// Prerequisite returns why the strategy cannot handle src, or "".
	Prerequisite(src Source) string
	// Fetch writes the media for src to dest. lease is the zero Lease for
	// strategies that do not rotate resources.
	Fetch(ctx context.Context, src Source, dest string, lease Lease) error
}

// Lease is a rotated resource (credential, proxy) used for one attempt.
type Lease struct {
	ID    string
	Value []byte
}

// Rotator is implemented by strategies that cycle through a set of
// resources, one attempt per resource.
type Rotator interface {
	// Next returns a resource not in tried.
	Next(tried []string) (Lease, bool)
	// Done reports the final error of an attempt with lease and whether
	// another resource should be tried.
	Done(ctx context.Context, lease Lease, err error) bool
}
