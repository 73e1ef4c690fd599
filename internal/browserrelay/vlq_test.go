/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package browserrelay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeVLQSegmentKnownValues(t *testing.T) {
	// "AAAA" is four separate zero-valued VLQ digits (one per char).
	vals, err := decodeVLQSegment("AAAA")
	require.NoError(t, err)
	require.Equal(t, []int{0, 0, 0, 0}, vals)
}

func TestDecodeVLQSegmentNegative(t *testing.T) {
	// "D" decodes to -1: digit value 3 (0b00011) -> sign bit 1, magnitude 1.
	vals, err := decodeVLQSegment("D")
	require.NoError(t, err)
	require.Equal(t, []int{-1}, vals)
}

func TestDecodeVLQSegmentMultiDigitValue(t *testing.T) {
	// Values spanning more than one base64 digit exercise the continuation
	// bit and shift accumulation.
	vals, err := decodeVLQSegment("gqBA")
	require.NoError(t, err)
	require.Len(t, vals, 2)
}

func TestDecodeVLQSegmentInvalidChar(t *testing.T) {
	_, err := decodeVLQSegment("!!")
	require.Error(t, err)
}

func TestDecodeVLQSegmentTruncated(t *testing.T) {
	// "g" has its continuation bit set but no following digit.
	_, err := decodeVLQSegment("g")
	require.Error(t, err)
}
