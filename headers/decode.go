package headers

import (
	"fmt"

	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/internal/cborcodec"
)

// ParseMap decodes a CBOR-encoded header map into a typed Map, running each
// present label's value parser (spec §4.2). Unknown labels keep their raw
// CBOR value and round-trip unchanged.
func ParseMap(raw []byte) (Map, error) {
	if len(raw) == 0 {
		return Map{}, nil
	}
	var rawMap map[int64]cborcodec.RawMessage
	if err := cborcodec.Unmarshal(raw, &rawMap); err != nil {
		return nil, fmt.Errorf("headers: decoding header map: %w", err)
	}

	out := make(Map, len(rawMap))
	for id, val := range rawMap {
		l := Label(id)
		parsed, err := parseValue(l, val)
		if err != nil {
			return nil, err
		}
		out[l] = parsed
	}
	return out, nil
}

func parseValue(l Label, raw cborcodec.RawMessage) (interface{}, error) {
	switch KindOf(l) {
	case KindAlg:
		var asInt int64
		if err := cborcodec.Unmarshal(raw, &asInt); err == nil {
			return algorithm.Lookup(asInt)
		}
		var asText string
		if err := cborcodec.Unmarshal(raw, &asText); err == nil {
			return algorithm.LookupName(asText)
		}
		return nil, fmt.Errorf("headers: alg attribute is neither int nor text")

	case KindCritList:
		var ids []int64
		if err := cborcodec.Unmarshal(raw, &ids); err != nil {
			return nil, fmt.Errorf("headers: decoding crit: %w", err)
		}
		labels := make([]Label, len(ids))
		for i, id := range ids {
			labels[i] = Label(id)
		}
		return labels, nil

	case KindBytes:
		var b []byte
		if err := cborcodec.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("headers: attribute %d expected bstr: %w", l, err)
		}
		return b, nil

	case KindText:
		var s string
		if err := cborcodec.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("headers: attribute %d expected tstr: %w", l, err)
		}
		return s, nil

	default: // KindRaw, and any unregistered label
		return raw, nil
	}
}

// DecodeProtected parses a protected bucket's bstr contents into a typed
// map. It returns only the map; the caller keeps the verbatim bytes and
// installs both via Bucket.SetProtectedBytes.
func DecodeProtected(raw []byte) (Map, error) {
	return ParseMap(raw)
}
