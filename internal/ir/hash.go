package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix
// leaves room for changing the hashed layout later.
const (
	DomainEntry = "tally/entry/v1"
	DomainState = "tally/state/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EntryID computes the content-addressed ID of one dispatched action.
// The same session, action and seq always produce the same ID.
func EntryID(session, actionType string, args IRObject, seq int64) (string, error) {
	if args == nil {
		args = IRObject{}
	}
	obj := IRObject{
		"session": IRString(session),
		"type":    IRString(actionType),
		"args":    args,
		"seq":     IRInt(seq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EntryID: %w", err)
	}
	return hashWithDomain(DomainEntry, canonical), nil
}

// StateHash computes the content hash of a state snapshot.
func StateHash(snapshot IRObject) (string, error) {
	canonical, err := MarshalCanonical(snapshot)
	if err != nil {
		return "", fmt.Errorf("StateHash: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// MustEntryID is like EntryID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEntryID(session, actionType string, args IRObject, seq int64) string {
	id, err := EntryID(session, actionType, args, seq)
	if err != nil {
		panic(err)
	}
	return id
}
