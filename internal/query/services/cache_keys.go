package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
)

const (
	// ListKeyPrefix namespaces cached listing pages
	ListKeyPrefix = "facilities:list"

	// ItemKeyPrefix namespaces cached single facilities
	ItemKeyPrefix = "facilities:item"

	// KeyPattern matches every key this package produces
	KeyPattern = "facilities:*"
)

// CacheKey is a built cache key. Stored is what the cache backend sees;
// Readable is the canonical form used in logs.
type CacheKey struct {
	Stored   string
	Readable string
}

// BuildCacheKey produces a canonical key for params under prefix.
//
// Parameter names are sorted and list values are lower-cased and sorted, so
// the key does not depend on input order. Nil values and empty lists are
// omitted. The stored key hashes a JSON encoding of the sorted pairs, which
// keeps list and scalar values distinct even when they print alike.
func BuildCacheKey(prefix string, params map[string]any) CacheKey {
	names := make([]string, 0, len(params))
	for name, value := range params {
		if isEmptyParam(value) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([][2]any, 0, len(names))
	readable := make([]string, 0, len(names))
	for _, name := range names {
		value := canonicalValue(params[name])
		pairs = append(pairs, [2]any{name, value})
		readable = append(readable, name+":"+readableValue(value))
	}

	// Only strings, ints, bools and string slices reach here, all of which
	// encode without error.
	encoded, _ := json.Marshal(pairs)
	sum := sha256.Sum256(encoded)

	return CacheKey{
		Stored:   prefix + ":" + hex.EncodeToString(sum[:]),
		Readable: prefix + ":" + strings.Join(readable, "|"),
	}
}

// ListCacheParams returns the key parameters of a normalized listing query.
// The match mode only participates when an amenity filter is present.
func ListCacheParams(q entities.FacilityQuery) map[string]any {
	params := map[string]any{
		"page":      q.Page,
		"limit":     q.Limit,
		"sortBy":    string(q.SortBy),
		"sortOrder": string(q.SortOrder),
	}
	if q.HasNameFilter() {
		params["name"] = strings.ToLower(q.Name)
	}
	if q.HasAmenityFilter() {
		params["amenities"] = q.Amenities
		params["amenityMatchMode"] = string(q.AmenityMatchMode)
	}
	return params
}

// ListCacheKey builds the key of a normalized listing query
func ListCacheKey(q entities.FacilityQuery) CacheKey {
	return BuildCacheKey(ListKeyPrefix, ListCacheParams(q))
}

// ItemCacheKey builds the key of a single facility
func ItemCacheKey(id string) CacheKey {
	return BuildCacheKey(ItemKeyPrefix, map[string]any{"id": id})
}

func isEmptyParam(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case []string:
		return len(v) == 0
	}
	return false
}

func canonicalValue(value any) any {
	list, ok := value.([]string)
	if !ok {
		return value
	}
	out := make([]string, len(list))
	for i, item := range list {
		out[i] = strings.ToLower(item)
	}
	sort.Strings(out)
	return out
}

func readableValue(value any) string {
	if list, ok := value.([]string); ok {
		return strings.Join(list, ",")
	}
	return fmt.Sprint(value)
}
