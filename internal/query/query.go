// Package query holds the derived-view helpers shared by the domain
// services: substring search, filtering and bucketing.
package query

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Match reports whether any field contains q, ignoring case and surrounding
// whitespace in q. An empty query matches everything.
func Match(q string, fields ...string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Filter returns the items for which keep is true, preserving order.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Map applies fn to every item.
func Map[T, U any](items []T, fn func(T) U) []U {
	out := make([]U, len(items))
	for i, it := range items {
		out[i] = fn(it)
	}
	return out
}

// Sum adds value(item) over items.
func Sum[T any](items []T, value func(T) float64) float64 {
	var total float64
	for _, it := range items {
		total += value(it)
	}
	return total
}

// Count returns how many items satisfy pred.
func Count[T any](items []T, pred func(T) bool) int {
	n := 0
	for _, it := range items {
		if pred(it) {
			n++
		}
	}
	return n
}

// Bucket accumulates the items sharing a label.
type Bucket struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// GroupBy buckets items by key, counting them and summing value. A nil value
// func only counts. Buckets are sorted by label.
func GroupBy[T any](items []T, key func(T) string, value func(T) float64) []Bucket {
	idx := make(map[string]int)
	var buckets []Bucket
	for _, it := range items {
		label := key(it)
		i, ok := idx[label]
		if !ok {
			i = len(buckets)
			idx[label] = i
			buckets = append(buckets, Bucket{Label: label})
		}
		buckets[i].Count++
		if value != nil {
			buckets[i].Total += value(it)
		}
	}
	sort.Slice(buckets, func(a, b int) bool { return buckets[a].Label < buckets[b].Label })
	for i := range buckets {
		buckets[i].Total = roundMoney(buckets[i].Total)
	}
	return buckets
}

// MonthLabel formats t as YYYY-MM.
func MonthLabel(t time.Time) string {
	return t.Format("2006-01")
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// InRange reports whether t lies in [from, to]; zero bounds are open.
func InRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
