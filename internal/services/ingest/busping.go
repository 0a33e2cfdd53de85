package ingest

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseBusPing decodes the space-delimited ping format delivered over the
// message bus:
//
//	<deviceCode> latitude:<value> longitude:<value> status:<value>
//
// Exactly four fields; non-numeric latitude or longitude is a malformed
// ping. The bus carries no event time, so the returned Ping has a zero
// Timestamp and Ingest stamps processing time.
func ParseBusPing(raw string) (Ping, error) {
	parts := strings.Fields(raw)
	if len(parts) != 4 {
		return Ping{}, errors.Wrapf(ErrMalformedPing, "expected 4 fields, got %d", len(parts))
	}

	lat, err := parseField(parts[1], "latitude")
	if err != nil {
		return Ping{}, err
	}
	lng, err := parseField(parts[2], "longitude")
	if err != nil {
		return Ping{}, err
	}

	status := parts[3]
	if i := strings.IndexByte(status, ':'); i >= 0 {
		status = status[i+1:]
	}

	return Ping{
		DeviceCode: parts[0],
		Lat:        lat,
		Lng:        lng,
		Status:     status,
	}, nil
}

func parseField(field, name string) (float64, error) {
	_, val, found := strings.Cut(field, ":")
	if !found {
		return 0, errors.Wrapf(ErrMalformedPing, "%s field has no value", name)
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedPing, "%s is not a number: %q", name, val)
	}
	return f, nil
}
