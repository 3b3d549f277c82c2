// Package meeting computes meeting batch assignments and meeting links
// for approved bookings. Each mentor fills batches of up to BatchCapacity
// approved bookings; every batch maps to one stable meeting link.
package meeting

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// BatchCapacity is the maximum number of approved bookings sharing one
// meeting batch for a mentor.
const BatchCapacity = 10

// codeLength is the number of hex characters kept from the batch digest.
const codeLength = 10

// NextBatch picks the batch for the next approval of a mentor.
// maxBatch is the highest batch already assigned to the mentor (nil when
// none exists) and countInMax is how many approved bookings currently sit
// in that batch. Batches fill contiguously from 1.
func NextBatch(maxBatch *int, countInMax int) int {
	if maxBatch == nil {
		return 1
	}
	if countInMax < BatchCapacity {
		return *maxBatch
	}
	return *maxBatch + 1
}

// Code derives the stable meeting code for a mentor's batch. The same
// (mentor, batch) pair always yields the same code, so every booking in
// a batch lands on the same link.
func Code(mentorID int64, batch int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("mentor:%d:batch:%d", mentorID, batch)))
	return hex.EncodeToString(sum[:])[:codeLength]
}

// Link builds the full meeting URL from the configured base URL and a
// meeting code.
func Link(baseURL, code string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + code
}
