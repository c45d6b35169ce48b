package gstin

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
)

// gstinPattern is the structural format of a 15-character GSTIN:
// 2-digit state code, 10-character PAN, entity code, literal Z, check digit.
var gstinPattern = regexp.MustCompile(`^\d{2}[A-Z]{5}\d{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// alphabet maps GSTIN characters to their checksum values (0-9 then A-Z).
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Validate checks the structural format and the mod-36 checksum of a GSTIN.
// It is a pure function: no I/O, no shared state.
func Validate(s string) domain.GSTINStatus {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !gstinPattern.MatchString(s) {
		return domain.GSTINInvalidFormat
	}
	code, err := strconv.Atoi(s[:2])
	if err != nil || code < 1 || code > 38 {
		return domain.GSTINInvalidFormat
	}
	if checkDigit(s[:14]) != s[14] {
		return domain.GSTINInvalidChecksum
	}
	return domain.GSTINValid
}

// checkDigit computes the checksum character over the first 14 characters.
// Factors alternate 1, 2 from the left; each product contributes its mod-36
// quotient plus remainder to the running sum.
func checkDigit(s string) byte {
	sum := 0
	for i := 0; i < len(s); i++ {
		factor := 1
		if i%2 == 1 {
			factor = 2
		}
		product := strings.IndexByte(alphabet, s[i]) * factor
		sum += product/36 + product%36
	}
	return alphabet[(36-sum%36)%36]
}

// Parsed holds the structural segments of a valid GSTIN.
type Parsed struct {
	StateCode  string
	PAN        string
	EntityCode byte
	CheckDigit byte
}

// Parse splits a GSTIN into its segments. The GSTIN must be structurally
// valid; checksum validity is reported separately by Validate.
func Parse(s string) (*Parsed, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !gstinPattern.MatchString(s) {
		return nil, fmt.Errorf("parsing gstin %q: %w", s, domain.ErrInvalidGSTIN)
	}
	return &Parsed{
		StateCode:  s[:2],
		PAN:        s[2:12],
		EntityCode: s[12],
		CheckDigit: s[14],
	}, nil
}

// Cache memoizes validation results for the duration of one reconciliation
// run. It is injected explicitly so runs stay independently testable and
// parallelizable; there is no process-wide catalog.
type Cache struct {
	mu      sync.RWMutex
	results map[string]domain.GSTINStatus
}

// NewCache creates an empty run-scoped validation cache.
func NewCache() *Cache {
	return &Cache{results: make(map[string]domain.GSTINStatus)}
}

// Validate returns the cached status for s, computing and storing it on miss.
func (c *Cache) Validate(s string) domain.GSTINStatus {
	key := strings.ToUpper(strings.TrimSpace(s))

	c.mu.RLock()
	status, ok := c.results[key]
	c.mu.RUnlock()
	if ok {
		return status
	}

	status = Validate(key)
	c.mu.Lock()
	c.results[key] = status
	c.mu.Unlock()
	return status
}
