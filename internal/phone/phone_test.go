package phone

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "nine digits", raw: "901234567", want: "+998901234567"},
		{name: "nine digits with spaces", raw: "90 123 45 67", want: "+998901234567"},
		{name: "nine digits with dashes", raw: "90-123-45-67", want: "+998901234567"},
		{name: "twelve digits with country code", raw: "998901234567", want: "+998901234567"},
		{name: "canonical plus form", raw: "+998901234567", want: "+998901234567"},
		{name: "thirteen digits stray leading digit", raw: "9989012345678", want: "+9989012345678"},
		{name: "ten digits trunk prefix", raw: "8901234567", want: "+7901234567"},
		{name: "formatted with parens", raw: "(90) 123-45-67", want: "+998901234567"},
		{name: "plus with letters passes through", raw: "+44 20 7946 09", want: "+44 20 7946 09"},
		{name: "too short", raw: "12345", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "letters only", raw: "phone", wantErr: true},
		{name: "eleven digits no match", raw: "12345678901", wantErr: true},
		{name: "twelve digits wrong prefix", raw: "997901234567", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw, SourceText)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeContact(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "already canonical", raw: "+998901234567", want: "+998901234567"},
		{name: "country code without plus", raw: "998901234567", want: "+998901234567"},
		{name: "bare local number", raw: "901234567", want: "+998901234567"},
		{name: "foreign plus kept verbatim", raw: "+79161234567", want: "+79161234567"},
		{name: "long local tail trimmed to nine", raw: "00998901234567", want: "+998901234567"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw, SourceContact)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Every exactly-nine-digit input must normalize to +998 plus those digits.
func TestNormalizeTotalityNineDigits(t *testing.T) {
	for i := 0; i < 100; i++ {
		digits := fmt.Sprintf("9%02d1234%02d", i%100, (i*7)%100)
		require.Len(t, digits, 9)
		got, err := Normalize(digits, SourceText)
		require.NoError(t, err)
		assert.Equal(t, "+998"+digits, got)
	}
}

// Re-normalizing a successful output must return the same value.
func TestNormalizeIdempotence(t *testing.T) {
	inputs := []string{
		"901234567",
		"998901234567",
		"9989012345678",
		"+998901234567",
		"8901234567",
	}
	for _, raw := range inputs {
		first, err := Normalize(raw, SourceText)
		require.NoError(t, err)
		second, err := Normalize(first, SourceText)
		require.NoError(t, err)
		assert.Equal(t, first, second, "raw %q", raw)
	}
}
