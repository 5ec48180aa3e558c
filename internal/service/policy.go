package service

import (
    "fmt"
    "strings"
)

// CapacityPolicy decides whether a new reservation is admitted given the
// number of confirmed reservations already held for the exam.
type CapacityPolicy string

const (
    // CapacityStrict rejects once confirmed >= capacity.
    CapacityStrict CapacityPolicy = "strict"
    // CapacityLegacy rejects only once confirmed > capacity, which lets the
    // confirmed count reach capacity+1.
    CapacityLegacy CapacityPolicy = "legacy"
)

// ParseCapacityPolicy parses "strict" or "legacy"; empty selects strict.
func ParseCapacityPolicy(s string) (CapacityPolicy, error) {
    switch CapacityPolicy(strings.ToLower(strings.TrimSpace(s))) {
    case "", CapacityStrict:
        return CapacityStrict, nil
    case CapacityLegacy:
        return CapacityLegacy, nil
    default:
        return "", fmt.Errorf("unknown capacity policy %q", s)
    }
}

// Admits reports whether a reservation may be created.
func (p CapacityPolicy) Admits(confirmed int64, capacity uint32) bool {
    if p == CapacityLegacy {
        return confirmed <= int64(capacity)
    }
    return confirmed < int64(capacity)
}
