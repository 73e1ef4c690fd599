/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package browserrelay

import (
	"context"
	"time"

	"github.com/mattmezza/monlight/internal/chassis"
	"github.com/mattmezza/monlight/internal/logging"
)

// RunRetentionWorker prunes source maps older than retentionDays once a
// day, mirroring the Error Tracker's resolved-group sweep (spec.md §5's
// retention-worker shape, extended here to the Browser Relay's own
// RETENTION_DAYS setting).
func RunRetentionWorker(ctx context.Context, store *Store, retentionDays int, lg *logging.Logger) error {
	for {
		if chassis.SleepChunked(ctx, 24*time.Hour) {
			return ctx.Err()
		}
		cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
		n, err := store.PruneSourceMaps(cutoff)
		if err != nil {
			lg.Error("source map retention sweep failed", logging.SD("error", err.Error()))
			continue
		}
		if n > 0 {
			lg.Info("pruned source maps", logging.SD("count", itoaInt(n)))
		}
	}
}

func itoaInt(n int64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
