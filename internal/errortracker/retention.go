/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package errortracker

import (
	"context"
	"time"

	"github.com/mattmezza/monlight/internal/chassis"
	"github.com/mattmezza/monlight/internal/logging"
)

// RunRetentionWorker runs Service.RunRetention once per 24-hour interval
// until ctx is cancelled, sleeping in one-second chunks so shutdown is
// observed promptly (spec.md §5).
func RunRetentionWorker(ctx context.Context, svc *Service, retentionDays int, lg *logging.Logger) error {
	for {
		if chassis.SleepChunked(ctx, 24*time.Hour) {
			return ctx.Err()
		}
		n, err := svc.RunRetention(retentionDays)
		if err != nil {
			lg.Error("retention sweep failed", logging.SD("error", err.Error()))
			continue
		}
		if n > 0 {
			lg.Info("retention sweep pruned resolved groups", logging.SD("count", itoaInt(n)))
		}
	}
}

func itoaInt(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
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
