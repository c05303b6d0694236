package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed fingerprints.
// The version suffix allows the algorithm to change later.
const (
	DomainEntry     = "edgewatch/entry/v1"
	DomainCondition = "edgewatch/condition/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// conditionObject is the canonical form of a condition used for hashing.
func conditionObject(c Condition) IRObject {
	obj := IRObject{
		"id":        IRString(c.ID),
		"source_id": IRString(c.SourceID),
		"kind":      IRString(c.Kind),
		"label":     IRString(c.Label),
	}
	if c.Params != nil {
		obj["params"] = c.Params
	}
	return obj
}

// EntryObject is the canonical form of an entry spec. Its JSON decodes back
// into an EntrySpec.
func EntryObject(s EntrySpec) IRObject {
	conds := make(IRArray, len(s.Conditions))
	for i, c := range s.Conditions {
		conds[i] = conditionObject(c)
	}
	return IRObject{
		"id":         IRString(s.ID),
		"conditions": conds,
	}
}

// ConditionFingerprint hashes a condition's full content.
func ConditionFingerprint(c Condition) (string, error) {
	canonical, err := MarshalCanonical(conditionObject(c))
	if err != nil {
		return "", fmt.Errorf("ConditionFingerprint: %w", err)
	}
	return hashWithDomain(DomainCondition, canonical), nil
}

// EntryFingerprint hashes an entry spec, conditions in order. Two specs with
// the same fingerprint are interchangeable; a different fingerprint means the
// entry was edited and must be re-registered.
func EntryFingerprint(s EntrySpec) (string, error) {
	canonical, err := MarshalCanonical(EntryObject(s))
	if err != nil {
		return "", fmt.Errorf("EntryFingerprint: %w", err)
	}
	return hashWithDomain(DomainEntry, canonical), nil
}

// MustEntryFingerprint is like EntryFingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEntryFingerprint(s EntrySpec) string {
	fp, err := EntryFingerprint(s)
	if err != nil {
		panic(err)
	}
	return fp
}
