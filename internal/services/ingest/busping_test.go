package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBusPing(t *testing.T) {
	p, err := ParseBusPing("5551234567 latitude:40.85902 longitude:29.31684 status:0")
	require.NoError(t, err)
	require.Equal(t, "5551234567", p.DeviceCode)
	require.InDelta(t, 40.85902, p.Lat, 1e-9)
	require.InDelta(t, 29.31684, p.Lng, 1e-9)
	require.Equal(t, "0", p.Status)
	require.True(t, p.Timestamp.IsZero())
}

func TestParseBusPing_WrongFieldCount(t *testing.T) {
	_, err := ParseBusPing("5551234567 latitude:40.85902 longitude:29.31684")
	require.ErrorIs(t, err, ErrMalformedPing)

	_, err = ParseBusPing("")
	require.ErrorIs(t, err, ErrMalformedPing)

	_, err = ParseBusPing("a b c d e")
	require.ErrorIs(t, err, ErrMalformedPing)
}

func TestParseBusPing_NonNumericCoordinates(t *testing.T) {
	_, err := ParseBusPing("5551234567 latitude:abc longitude:29.31684 status:0")
	require.ErrorIs(t, err, ErrMalformedPing)

	_, err = ParseBusPing("5551234567 latitude:40.85902 longitude: status:0")
	require.ErrorIs(t, err, ErrMalformedPing)

	_, err = ParseBusPing("5551234567 40.85902 longitude:29.31684 status:0")
	require.ErrorIs(t, err, ErrMalformedPing)
}

func TestParseBusPing_NonZeroStatusStillParses(t *testing.T) {
	// The consumer decides whether to skip non-zero statuses; the codec
	// just reports what was sent.
	p, err := ParseBusPing("5551234567 latitude:40.0 longitude:29.0 status:2")
	require.NoError(t, err)
	require.Equal(t, "2", p.Status)
}
