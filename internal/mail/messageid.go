package mail

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"net/mail"
	"strings"
)

// StableID resolves the message identifier used for dedup (§3 invariant 2).
// A message carrying a usable Message-ID header uses that value verbatim;
// otherwise FallbackID derives a deterministic identifier from the
// mailbox, folder, uid_validity and UID so the same physical message
// always maps to the same stable id even with no Message-ID header.
func StableID(mailboxID int64, folderPath string, uidValidity uint32, uid uint32, messageIDHeader string) string {
	if id := strings.TrimSpace(messageIDHeader); id != "" {
		return strings.Trim(id, "<>")
	}
	return FallbackID(mailboxID, folderPath, uidValidity, uid)
}

// FallbackID builds "fallback:<mailbox_id>:<folder-hash>:<uid_validity>:<uid>"
// matching the deterministic format described for mailboxes that never
// supply a Message-ID header.
func FallbackID(mailboxID int64, folderPath string, uidValidity uint32, uid uint32) string {
	sum := sha256.Sum256([]byte(folderPath))
	folderHash := hex.EncodeToString(sum[:])[:16]

	uidValidityPart := "no-uidvalidity"
	if uidValidity != 0 {
		uidValidityPart = fmt.Sprintf("%d", uidValidity)
	}

	return fmt.Sprintf("fallback:%d:%s:%s:%d", mailboxID, folderHash, uidValidityPart, uid)
}

// ExtractEmailFromHeader pulls the bare address out of a From/To style
// header value, which may be RFC 2047 encoded and/or wrapped in a display
// name ("Jane Doe <jane@example.com>").
func ExtractEmailFromHeader(headerValue string) (string, error) {
	decoded := DecodeHeaderValue(headerValue)
	addr, err := mail.ParseAddress(decoded)
	if err != nil {
		return "", fmt.Errorf("failed to parse address %q: %w", headerValue, err)
	}
	return strings.ToLower(addr.Address), nil
}

// DecodeHeaderValue decodes RFC 2047 encoded-words ("=?UTF-8?B?...?=").
// Headers that are not encoded are returned unchanged.
func DecodeHeaderValue(value string) string {
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
