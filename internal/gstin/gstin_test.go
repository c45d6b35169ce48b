package gstin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
)

func TestValidate_KnownValid(t *testing.T) {
	valid := []string{
		"27AAPFU0939F1ZV",
		"27AAAPL1234C1ZE",
		"29ABCDE1234F1ZW",
		"07AABCU9603R1ZP",
		"33AAGCA1234A1ZL",
	}
	for _, g := range valid {
		assert.Equal(t, domain.GSTINValid, Validate(g), g)
	}
}

func TestValidate_TrimsAndUppercases(t *testing.T) {
	assert.Equal(t, domain.GSTINValid, Validate("  27aapfu0939f1zv "))
}

func TestValidate_InvalidChecksum(t *testing.T) {
	// Structurally fine but the check digit does not match.
	assert.Equal(t, domain.GSTINInvalidChecksum, Validate("27AAAPL1234C1Z5"))
	assert.Equal(t, domain.GSTINInvalidChecksum, Validate("29ABCDE1234F1Z5"))
}

func TestValidate_InvalidFormat(t *testing.T) {
	cases := []string{
		"",
		"27AAPFU0939F1Z",    // too short
		"27AAPFU0939F1ZVX",  // too long
		"27AAPFU0939F1XV",   // 14th char must be Z
		"2AAAPFU0939F1ZV",   // state code not two digits
		"00AAPFU0939F1ZV",   // state code out of range
		"39AAPFU0939F1ZV",   // state code out of range
		"27AAPFU0939F0ZV",   // entity code cannot be 0
		"27aapfu0939fizv@",  // junk
	}
	for _, g := range cases {
		assert.Equal(t, domain.GSTINInvalidFormat, Validate(g), g)
	}
}

// Flipping any single character of a valid GSTIN must never yield VALID.
func TestValidate_SingleCharacterFlipNeverValid(t *testing.T) {
	const g = "27AAPFU0939F1ZV"
	for i := 0; i < len(g); i++ {
		for _, c := range alphabet {
			if byte(c) == g[i] {
				continue
			}
			mutated := g[:i] + string(c) + g[i+1:]
			assert.NotEqual(t, domain.GSTINValid, Validate(mutated), mutated)
		}
	}
}

func TestParse(t *testing.T) {
	p, err := Parse("27AAPFU0939F1ZV")
	require.NoError(t, err)
	assert.Equal(t, "27", p.StateCode)
	assert.Equal(t, "AAPFU0939F", p.PAN)
	assert.Equal(t, byte('1'), p.EntityCode)
	assert.Equal(t, byte('V'), p.CheckDigit)

	_, err = Parse("not-a-gstin")
	assert.ErrorIs(t, err, domain.ErrInvalidGSTIN)
}

func TestCache_MemoizesAndMatchesDirectValidation(t *testing.T) {
	c := NewCache()
	assert.Equal(t, domain.GSTINValid, c.Validate("27AAPFU0939F1ZV"))
	assert.Equal(t, domain.GSTINValid, c.Validate("27aapfu0939f1zv"))
	assert.Equal(t, domain.GSTINInvalidChecksum, c.Validate("27AAAPL1234C1Z5"))
	assert.Len(t, c.results, 2)
}
