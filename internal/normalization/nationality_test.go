package normalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNationality_DirectLookup(t *testing.T) {
	assert.Equal(t, "Czech", Nationality("czech"))
	assert.Equal(t, "Czech", Nationality("Česká republika"))
	assert.Equal(t, "Czech", Nationality("CZ"))
	assert.Equal(t, "German", Nationality("Deutschland"))
	assert.Equal(t, "Slovak", Nationality("slovensko"))
	assert.Equal(t, "Ukrainian", Nationality("UA"))
}

func TestNationality_FuzzyMatch(t *testing.T) {
	assert.Equal(t, "Czech", Nationality("czech republik"))
	assert.Equal(t, "German", Nationality("deutschlandd"))
}

func TestNationality_Passthrough(t *testing.T) {
	// Unknown but usable values pass through title-cased.
	assert.Equal(t, "French", Nationality("french"))
	assert.Equal(t, "", Nationality("   "))
	assert.Equal(t, "", Nationality(""))
}
