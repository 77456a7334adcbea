package password

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrBreachedPassword is returned when a breach checker reports the
// plaintext as compromised.
var ErrBreachedPassword = errors.New("password found in breach corpus")

// BreachChecker reports whether a plaintext appears in a known breach
// corpus. Implementations must honour ctx cancellation.
type BreachChecker interface {
	Breached(ctx context.Context, plaintext string) (bool, error)
}

// DefaultRangeURL is the public k-anonymity range endpoint.
const DefaultRangeURL = "https://api.pwnedpasswords.com/range/"

// RangeChecker queries a k-anonymity range API. Only the first five hex
// characters of the SHA-1 digest leave the process.
type RangeChecker struct {
	BaseURL string
	Client  *http.Client
	// MinCount is the occurrence count at which a password counts as
	// breached. Zero means 1.
	MinCount int
}

// NewRangeChecker returns a checker against DefaultRangeURL with timeout.
func NewRangeChecker(timeout time.Duration) *RangeChecker {
	return &RangeChecker{
		BaseURL: DefaultRangeURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

// Breached implements [BreachChecker].
func (c *RangeChecker) Breached(ctx context.Context, plaintext string) (bool, error) {
	sum := sha1.Sum([]byte(plaintext))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := digest[:5], digest[5:]

	base := c.BaseURL
	if base == "" {
		base = DefaultRangeURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+prefix, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Add-Padding", "true")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("breach range query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("breach range query: status %d", resp.StatusCode)
	}

	minCount := c.MinCount
	if minCount <= 0 {
		minCount = 1
	}
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		hash, count, ok := strings.Cut(strings.TrimSpace(sc.Text()), ":")
		if !ok || !strings.EqualFold(hash, suffix) {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(count, "%d", &n); err != nil {
			return false, fmt.Errorf("breach range query: bad count %q", count)
		}
		// Padding entries carry a zero count.
		return n >= minCount, nil
	}
	if err := sc.Err(); err != nil {
		return false, fmt.Errorf("breach range query: %w", err)
	}
	return false, nil
}
