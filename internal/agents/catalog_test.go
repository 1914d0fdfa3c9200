package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogKeys(t *testing.T) {
	keys := Keys()
	assert.Equal(t, []string{EngineerKey, UXKey, QAKey, PMKey}, keys)

	for _, key := range keys {
		def, ok := Lookup(key)
		require.True(t, ok)
		assert.NotEmpty(t, def.DisplayName)
		assert.NotEmpty(t, def.Perspective)
	}
}

func TestDisplayName_UnknownFallsBack(t *testing.T) {
	assert.Equal(t, "Engineer Specialist", DisplayName(EngineerKey))
	assert.Equal(t, "ghost", DisplayName("ghost"))
}

func TestValidateSelection(t *testing.T) {
	full, err := ValidateSelection(nil)
	require.NoError(t, err)
	assert.Equal(t, Keys(), full)

	subset, err := ValidateSelection([]string{QAKey, EngineerKey, QAKey})
	require.NoError(t, err)
	assert.Equal(t, []string{QAKey, EngineerKey}, subset)

	_, err = ValidateSelection([]string{EngineerKey, "ghost"})
	assert.ErrorContains(t, err, "unknown agent: ghost")
}

func TestStaticRegistry(t *testing.T) {
	reg := StaticRegistry()
	for _, key := range Keys() {
		sp, ok := reg.Get(key)
		require.True(t, ok)

		items, err := sp.ReviewDocument(context.Background(), "First line.\nSecond line.")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "First line.", items[0].OriginalText)
		assert.NotEmpty(t, items[0].Comment)
	}
}

func TestStaticSpecialist_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sp := &Static{AgentKey: EngineerKey, Delay: time.Second}
	_, err := sp.ReviewDocument(ctx, "doc")
	assert.ErrorIs(t, err, context.Canceled)
}
