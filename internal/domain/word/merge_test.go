package word

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestMergeData_AdditiveOnly(t *testing.T) {
	populated := WordData{
		Meanings: []Meaning{{Translation: "dog", PartOfSpeech: "noun"}},
		Examples: []string{"Hunden skäller."},
		Story:    "En hund sprang genom parken.",
		CEFR:     "A1",
	}

	t.Run("empty incoming preserves populated base", func(t *testing.T) {
		got := MergeData(populated, WordData{})

		assert.Equal(t, populated.Meanings, got.Meanings)
		assert.Equal(t, populated.Examples, got.Examples)
		assert.Equal(t, populated.Story, got.Story)
		assert.Equal(t, populated.CEFR, got.CEFR)
	})

	t.Run("empty meanings slice does not overwrite", func(t *testing.T) {
		got := MergeData(populated, WordData{Meanings: []Meaning{}})

		assert.Equal(t, populated.Meanings, got.Meanings)
	})

	t.Run("populated incoming wins", func(t *testing.T) {
		incoming := WordData{
			Meanings: []Meaning{{Translation: "hound"}},
			Synonyms: []string{"valp"},
		}

		got := MergeData(populated, incoming)

		assert.Equal(t, incoming.Meanings, got.Meanings)
		assert.Equal(t, incoming.Synonyms, got.Synonyms)
		// Незатронутые поля остаются от базы.
		assert.Equal(t, populated.Examples, got.Examples)
		assert.Equal(t, populated.Story, got.Story)
	})

	t.Run("forms and populated_at replaced only when present", func(t *testing.T) {
		ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		base := WordData{Forms: &GrammarForms{Base: "hund", Plural: "hundar"}, PopulatedAt: &ts}

		got := MergeData(base, WordData{})
		require.NotNil(t, got.Forms)
		assert.Equal(t, "hundar", got.Forms.Plural)
		require.NotNil(t, got.PopulatedAt)

		got = MergeData(base, WordData{Forms: &GrammarForms{Base: "hund", Plural: "hundarna"}})
		assert.Equal(t, "hundarna", got.Forms.Plural)
	})
}

func TestMerge_RemoteIdentifiersWin(t *testing.T) {
	local := Word{
		SwedishWord: "hund",
		IsFT:        true,
		WordData:    WordData{Meanings: []Meaning{{Translation: "dog"}}},
	}
	remote := Word{
		ID:            101,
		SwedishWord:   "  Hund ",
		KellyLevel:    intPtr(1),
		FrequencyRank: intPtr(250),
		LastSyncedAt:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	got := Merge(local, remote)

	assert.Equal(t, int64(101), got.ID)
	assert.Equal(t, "hund", got.SwedishWord)
	require.NotNil(t, got.KellyLevel)
	assert.Equal(t, 1, *got.KellyLevel)
	require.NotNil(t, got.FrequencyRank)
	assert.Equal(t, 250, *got.FrequencyRank)
	assert.True(t, got.IsFT)
	assert.Equal(t, remote.LastSyncedAt, got.LastSyncedAt)
	// Заполненные локальные word_data не затираются пустой удалённой.
	assert.Equal(t, local.WordData.Meanings, got.WordData.Meanings)
}

func TestMerge_UnsetRemoteFieldsInherit(t *testing.T) {
	local := Word{
		ID:          55,
		SwedishWord: "katt",
		KellyLevel:  intPtr(2),
		IsFT:        false,
	}
	remote := Word{SwedishWord: "katt"}

	got := Merge(local, remote)

	assert.Equal(t, int64(55), got.ID)
	require.NotNil(t, got.KellyLevel)
	assert.Equal(t, 2, *got.KellyLevel)
	assert.False(t, got.IsFT)
	assert.True(t, got.LastSyncedAt.IsZero())
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "hund", NormalizeName("  Hund "))
	assert.Equal(t, "på", NormalizeName("PÅ"))
	assert.Equal(t, "", NormalizeName("   "))
}
