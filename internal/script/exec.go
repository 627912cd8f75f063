package script

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carnegie-technologies/cqlmigrate/internal/store"
)

// DefaultClientTimeout is used when the caller does not override it via
// configuration.
const DefaultClientTimeout = 30 * time.Second

// Execute splits canonicalBody on ';' and runs every non-blank segment
// against db sequentially, at consistency ALL, using timeout per statement.
// Statements are executed in order; the first failure aborts the script
// and no further segments run.
func Execute(ctx context.Context, db store.Store, canonicalBody string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}

	for _, segment := range strings.Split(canonicalBody, ";") {
		stmt := strings.TrimSpace(segment)
		if stmt == "" {
			continue
		}

		opts := store.ExecOptions{
			Consistency: store.ConsistencyAll,
			Timeout:     timeout,
		}

		if err := db.Execute(ctx, stmt, nil, opts); err != nil {
			return fmt.Errorf("failed to execute statement %q: %w", stmt, err)
		}
	}

	return nil
}
