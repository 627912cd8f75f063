package gocql

import (
	"context"
	"fmt"
	"time"

	driver "github.com/apache/cassandra-gocql-driver/v2"
)

// CheckSchemaAgreement queries system.local and system.peers on the
// no-keyspace admin session and reports whether every node known to the
// driver currently reports the same schema version.
func (g *Gateway) CheckSchemaAgreement(ctx context.Context) (bool, error) {
	var localVersion driver.UUID

	localIter := g.adminSession.Query(`SELECT schema_version FROM system.local`).WithContext(ctx).Consistency(driver.One).Iter()
	found := localIter.Scan(&localVersion)
	if err := localIter.Close(); err != nil {
		return false, fmt.Errorf("failed to query local schema version: %w", err)
	}
	if !found {
		return false, nil
	}

	versions := map[string]struct{}{localVersion.String(): {}}

	var peer, dc, rack string
	var peerVersion driver.UUID

	peerIter := g.adminSession.Query(`SELECT peer, data_center, rack, schema_version FROM system.peers`).WithContext(ctx).Consistency(driver.One).Iter()
	for peerIter.Scan(&peer, &dc, &rack, &peerVersion) {
		versions[peerVersion.String()] = struct{}{}

		if g.liveness != nil && !g.liveness.IsUp(peer) {
			g.warnDownPeer(peer, dc, rack)
		}
	}
	if err := peerIter.Close(); err != nil {
		return false, fmt.Errorf("failed to query peer schema versions: %w", err)
	}

	return len(versions) <= 1, nil
}

func (g *Gateway) warnDownPeer(peer, dc, rack string) {
	if g.logger == nil {
		return
	}
	g.logger.Warn().
		Str("peer", peer).
		Str("dc", dc).
		Str("rack", rack).
		Msg("peer is known to the driver but not up; its schema version still counts against agreement")
}

// AwaitSchemaAgreement polls CheckSchemaAgreement every retryInterval until
// it returns true. There is no timeout: a hanging cluster is treated as
// safer than proceeding under disagreement.
func (g *Gateway) AwaitSchemaAgreement(ctx context.Context, retryInterval time.Duration) error {
	if retryInterval <= 0 {
		retryInterval = time.Second
	}

	for {
		agree, err := g.CheckSchemaAgreement(ctx)
		if err != nil && g.logger != nil {
			g.logger.Warn().Err(err).Msg("schema agreement probe failed, retrying")
		}

		if err == nil && agree {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}
