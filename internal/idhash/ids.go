package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePositionID computes a deterministic position_id using SHA256.
// Formula: SHA256(agent_id|mint|buy_signature)
// Returns hex-encoded hash (64 characters).
func ComputePositionID(agentID, mint, buySignature string) string {
	data := fmt.Sprintf("%s|%s|%s", agentID, mint, buySignature)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(position_id|side|tx_signature)
func ComputeTradeID(positionID, side, txSignature string) string {
	data := fmt.Sprintf("%s|%s|%s", positionID, side, txSignature)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeReviewID computes a deterministic review_id using SHA256.
// Formula: SHA256(agent_id|trigger|created_at_ms)
func ComputeReviewID(agentID, trigger string, createdAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", agentID, trigger, createdAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
