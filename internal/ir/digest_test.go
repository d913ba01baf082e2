package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestIsDomainSeparated(t *testing.T) {
	a, err := Digest(DomainOutfit, String("x"))
	require.NoError(t, err)
	b, err := Digest(DomainTrace, String("x"))
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestOutfitDigestIsOrderSensitive(t *testing.T) {
	e1 := OutfitEntry{LinkedID: SequentialID(1), Description: "@500"}
	e2 := OutfitEntry{LinkedID: SequentialID(2), Description: "@501"}

	d12, err := OutfitDigest([]OutfitEntry{e1, e2})
	require.NoError(t, err)
	again, err := OutfitDigest([]OutfitEntry{e1, e2})
	require.NoError(t, err)
	d21, err := OutfitDigest([]OutfitEntry{e2, e1})
	require.NoError(t, err)

	assert.Equal(t, d12, again)
	assert.NotEqual(t, d12, d21)
}
