package tracking

import "context"

// PackageRepository is the durable holder of the full package record set.
// The backing representation is a single document: reads return the whole
// sequence and writes replace it wholesale.
type PackageRepository interface {
	// LoadAll returns every stored package in store order. An absent backing
	// document yields an empty slice and no error. A read or parse failure
	// yields an empty slice together with the error so callers can log the
	// degraded path and continue.
	LoadAll(ctx context.Context) ([]Package, error)

	// SaveAll replaces the entire record set.
	SaveAll(ctx context.Context, packages []Package) error
}
