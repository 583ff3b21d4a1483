package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Keys under which catalog stores persist the two halves of a CacheEntry.
const (
	CacheDataKey = "math_course_data"
	CacheTimeKey = "math_course_time"
)

// EncodeCacheEntry serializes an entry into the stored data and timestamp values.
// The timestamp is epoch milliseconds as decimal text.
func EncodeCacheEntry(entry CacheEntry) (data, stamp string, err error) {
	raw, err := json.Marshal(entry.Data)
	if err != nil {
		return "", "", fmt.Errorf("encode cache entry: %w", err)
	}
	return string(raw), strconv.FormatInt(entry.FetchedAt.UnixMilli(), 10), nil
}

// DecodeCacheEntry is the inverse of EncodeCacheEntry.
func DecodeCacheEntry(data, stamp string) (CacheEntry, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(stamp), 10, 64)
	if err != nil {
		return CacheEntry{}, fmt.Errorf("decode cache timestamp: %w", err)
	}
	var m CourseTopicMap
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return CacheEntry{}, fmt.Errorf("decode cache data: %w", err)
	}
	return CacheEntry{Data: m, FetchedAt: time.UnixMilli(ms)}, nil
}
