package blockchain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/service"
)

// clockSkew tolerates clients whose clock runs ahead of the server
const clockSkew = time.Minute

// SignatureAuthenticator verifies personal_sign signatures over a greeting
// followed by the unix time the wallet signed it. Signatures older than the
// configured TTL are rejected, so a captured header pair stops working.
type SignatureAuthenticator struct {
	message string
	ttl     time.Duration
	now     func() time.Time
}

var _ service.Authenticator = (*SignatureAuthenticator)(nil)

// NewSignatureAuthenticator creates an authenticator for message. A non-positive ttl uses ten minutes.
func NewSignatureAuthenticator(message string, ttl time.Duration) *SignatureAuthenticator {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SignatureAuthenticator{message: message, ttl: ttl, now: time.Now}
}

// SignedMessage is the exact text a wallet signs for issuedAt
func SignedMessage(message string, issuedAt time.Time) string {
	return fmt.Sprintf("%s\nIssued At: %d", message, issuedAt.Unix())
}

// Verify returns the lower-cased address when signature was produced by address
// over the greeting stamped with issuedAt
func (a *SignatureAuthenticator) Verify(address, signature, issuedAt string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid address %q: %w", address, entity.ErrAuthorizationRequired)
	}

	unix, err := strconv.ParseInt(issuedAt, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid issued-at %q: %w", issuedAt, entity.ErrAuthorizationRequired)
	}
	stamp := time.Unix(unix, 0)
	now := a.now()
	if stamp.After(now.Add(clockSkew)) {
		return "", fmt.Errorf("signature issued in the future: %w", entity.ErrAuthorizationRequired)
	}
	if now.Sub(stamp) > a.ttl {
		return "", fmt.Errorf("signature expired %s ago: %w", now.Sub(stamp).Truncate(time.Second), entity.ErrAuthorizationRequired)
	}

	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("malformed signature: %w", entity.ErrAuthorizationRequired)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(SignedMessage(a.message, stamp))), sig)
	if err != nil {
		return "", fmt.Errorf("failed to recover signer: %w", entity.ErrAuthorizationRequired)
	}

	signer := crypto.PubkeyToAddress(*pub)
	if signer != common.HexToAddress(address) {
		return "", fmt.Errorf("signature does not match %s: %w", address, entity.ErrAuthorizationRequired)
	}
	return entity.CanonicalAddress(signer.Hex()), nil
}
