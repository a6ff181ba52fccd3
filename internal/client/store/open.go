package store

import (
	"context"
	"fmt"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
	DriverMemory   = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Driver string
	DSN    string
	S3     S3Options
}

// Open builds the configured backend wrapped in Serialized.
func Open(ctx context.Context, o Options) (*Serialized, error) {
	var (
		s   Store
		err error
	)
	switch o.Driver {
	case DriverSQLite, "":
		s, err = OpenSQLite(ctx, o.DSN)
	case DriverPostgres:
		s, err = OpenPostgres(ctx, o.DSN)
	case DriverS3:
		s, err = OpenS3(ctx, o.S3)
	case DriverMemory:
		s = NewMemory()
	default:
		return nil, fmt.Errorf("unknown store driver %q", o.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", o.Driver, err)
	}
	return NewSerialized(s), nil
}
