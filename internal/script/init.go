package script

import (
	"context"
	"fmt"
	"time"

	"github.com/carnegie-technologies/cqlmigrate/internal/store"
)

// Init is the depth-0 script that creates the tool's own metadata keyspace
// and tables. It must be idempotent (IF NOT EXISTS everywhere) because it
// runs on every invocation, strictly before lock acquisition - the lock
// itself lives in a table this script creates. Apply executes its
// statements; there is no Save - the init script is never recorded, since
// its own tables may not exist yet the first time it runs.
type Init struct {
	body    string
	db      store.Store
	timeout time.Duration
}

func NewInit(canonicalBody string, db store.Store, timeout time.Duration) *Init {
	return &Init{body: canonicalBody, db: db, timeout: timeout}
}

func (i *Init) Coordinates() Coordinates { return Coordinates{} }
func (i *Init) Body() string             { return i.body }

func (i *Init) Apply(ctx context.Context) error {
	if err := Execute(ctx, i.db, i.body, i.timeout); err != nil {
		return fmt.Errorf("failed to apply init script: %w", err)
	}
	return nil
}
