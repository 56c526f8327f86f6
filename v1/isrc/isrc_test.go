package isrc

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"testing/quick"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// validISRC generates random valid codes for testing/quick.
type validISRC string

func (validISRC) Generate(r *rand.Rand, _ int) reflect.Value {
	b := make([]byte, Length)
	for i := range b {
		b[i] = alphabet[r.Intn(len(alphabet))]
	}
	return reflect.ValueOf(validISRC(b))
}

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"USRC17607839", true},
		{"usrc17607839", true},
		{"GBAYE0000351", true},
		{"USRC1760783", false},
		{"USRC176078390", false},
		{"US-RC1760783", false},
		{"USRC 7607839", false},
		{"", false},
		{"ÜSRC1760783", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	n, err := Normalize("  usrc17607839 ")
	require.NoError(t, err)
	assert.Equal(t, "USRC17607839", n)

	_, err = Normalize("nope")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestDeriveIDShape(t *testing.T) {
	id, err := DeriveID("USRC17607839")
	require.NoError(t, err)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, parsed.String())
	assert.Len(t, id, 36)
}

func TestDeriveIDRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "short", "USRC17607839X", "USRC1760783!"} {
		_, err := DeriveID(in)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, in)
	}
}

func TestDeriveIDIsStable(t *testing.T) {
	f := func(code validISRC) bool {
		a, errA := DeriveID(string(code))
		b, errB := DeriveID(string(code))
		return errA == nil && errB == nil && a == b
	}
	require.NoError(t, quick.Check(f, &quick.Config{MaxCount: 2000}))
}

func TestDeriveIDIgnoresCase(t *testing.T) {
	f := func(code validISRC) bool {
		lower, _ := DeriveID(strings.ToLower(string(code)))
		upper, _ := DeriveID(strings.ToUpper(string(code)))
		return lower == upper
	}
	require.NoError(t, quick.Check(f, &quick.Config{MaxCount: 2000}))
}

func TestDeriveIDDistinctInputs(t *testing.T) {
	f := func(a, b validISRC) bool {
		if strings.EqualFold(string(a), string(b)) {
			return true
		}
		idA, _ := DeriveID(string(a))
		idB, _ := DeriveID(string(b))
		return idA != idB
	}
	require.NoError(t, quick.Check(f, &quick.Config{MaxCount: 2000}))
}

func TestDeriveIDNoCollisionsInSample(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	seen := make(map[string]string, 50000)
	for i := 0; i < 50000; i++ {
		code := string(validISRC("").Generate(r, 0).Interface().(validISRC))
		norm := strings.ToUpper(code)
		id := MustDeriveID(code)
		if prev, ok := seen[id]; ok && prev != norm {
			t.Fatalf("collision between %s and %s", prev, norm)
		}
		seen[id] = norm
	}
}

func TestMustDeriveIDPanics(t *testing.T) {
	assert.Panics(t, func() { MustDeriveID("bad") })
}
