package scraper

import (
	"encoding/json"
	"strconv"

	"pepperwatch/internal/models"
)

// Cards carry a serialized JSON side channel describing the same deal with
// richer structure. Its shape varies between page versions, so it is walked
// as a loosely-typed tree and any mismatch simply means "field absent".

func parseEmbeddedData(raw string) (models.Deal, bool) {
	var root any
	if err := json.Unmarshal([]byte(raw), &root); err != nil {
		return models.Deal{}, false
	}

	thread, ok := lookup(root, "props", "thread")
	if !ok {
		// Some payloads carry the thread object at the top level.
		thread = root
	}

	var d models.Deal
	d.Store = scalarAt(thread, "merchant", "merchantName")
	if d.Store == "" {
		d.Store = scalarAt(thread, "merchant", "name")
	}
	d.Price = scalarAt(thread, "price")
	d.OldPrice = scalarAt(thread, "oldPrice")
	if d.OldPrice == "" {
		d.OldPrice = scalarAt(thread, "nextBestPrice")
	}
	d.Discount = scalarAt(thread, "percentage")
	d.Code = scalarAt(thread, "voucherCode")
	d.StoreURL = scalarAt(thread, "link")

	empty := models.Deal{}
	return d, d != empty
}

// lookup descends a decoded JSON tree along a key path.
func lookup(root any, path ...string) (any, bool) {
	cur := root
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// scalarAt returns the string form of a string or number leaf, "" otherwise.
func scalarAt(root any, path ...string) string {
	v, ok := lookup(root, path...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
