// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package metering

import (
	"math"
	"time"
)

// DateFormat is the layout used for every timestamp exposed over the API.
const DateFormat = "2006-01-02 15:04:05.000"

// FormatTime renders t in UTC as YYYY-MM-DD HH:MM:SS.mmm. The zero time renders as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateFormat)
}

// KiloUnits converts a raw sampler figure to whole kilo-units, rounding up.
// Negative inputs clamp to zero.
func KiloUnits(raw int64) int64 {
	if raw <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(raw) / 1000))
}

// IncrementalMean folds value into an average previously computed over n-1 samples.
func IncrementalMean(avg float64, value float64, n int) float64 {
	if n <= 0 {
		return avg
	}
	return (value + avg*float64(n-1)) / float64(n)
}
