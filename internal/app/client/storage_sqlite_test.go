package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordbank/internal/domain/progress"
	"ordbank/internal/domain/word"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }

func TestSQLiteStorage_SaveAndGetWord(t *testing.T) {
	storage, _ := newTestStorage(t)

	w := &word.Word{
		SwedishWord: "  Hund ",
		KellyLevel:  intPtr(1),
		WordData: word.WordData{
			Meanings: []word.Meaning{{Translation: "dog", PartOfSpeech: "noun"}},
			Story:    "En hund sprang genom parken.",
		},
	}
	require.NoError(t, storage.SaveWord(w))

	got, err := storage.GetWord("hund")
	require.NoError(t, err)
	assert.Equal(t, "hund", got.SwedishWord)
	require.NotNil(t, got.KellyLevel)
	assert.Equal(t, 1, *got.KellyLevel)
	require.Len(t, got.WordData.Meanings, 1)
	assert.Equal(t, "dog", got.WordData.Meanings[0].Translation)

	_, err = storage.GetWord("katt")
	assert.ErrorIs(t, err, word.ErrNotFound)
}

func TestSQLiteStorage_SaveWordMergesExisting(t *testing.T) {
	storage, _ := newTestStorage(t)

	populated := &word.Word{
		SwedishWord: "bok",
		WordData:    word.WordData{Meanings: []word.Meaning{{Translation: "book"}}},
	}
	require.NoError(t, storage.SaveWord(populated))

	// Повторное сохранение без word_data не должно затереть значение.
	bare := &word.Word{ID: 17, SwedishWord: "bok"}
	require.NoError(t, storage.SaveWord(bare))

	got, err := storage.GetWord("bok")
	require.NoError(t, err)
	assert.Equal(t, int64(17), got.ID)
	require.Len(t, got.WordData.Meanings, 1)
	assert.Equal(t, "book", got.WordData.Meanings[0].Translation)
}

func TestSQLiteStorage_ApplyWordPageIdempotent(t *testing.T) {
	storage, _ := newTestStorage(t)
	syncedAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	page := []word.Word{
		{ID: 1, SwedishWord: "hund", WordData: word.WordData{Story: "berättelse"}},
		{ID: 2, SwedishWord: "katt", KellyLevel: intPtr(2)},
		{ID: 3, SwedishWord: "bok"},
	}

	require.NoError(t, storage.ApplyWordPage(page, syncedAt))
	require.NoError(t, storage.ApplyWordPage(page, syncedAt))

	n, err := storage.CountWords()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := storage.GetWord("hund")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "berättelse", got.WordData.Story)
}

func TestSQLiteStorage_ApplyProgressPageIdempotent(t *testing.T) {
	storage, _ := newTestStorage(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, storage.ApplyWordPage([]word.Word{{ID: 1, SwedishWord: "hund"}}, now))

	page := []progress.UserProgress{{
		UserID:      "u1",
		WordID:      1,
		WordSwedish: "hund",
		IsLearned:   1,
		LearnedDate: &now,
		UserMeaning: "dog",
		UpdatedAt:   now,
	}}

	require.NoError(t, storage.ApplyProgressPage(page))
	first, err := storage.ListProgress("u1")
	require.NoError(t, err)

	require.NoError(t, storage.ApplyProgressPage(page))
	second, err := storage.ListProgress("u1")
	require.NoError(t, err)

	// Повторное применение той же страницы — то же итоговое состояние.
	require.Len(t, second, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, second[0].IsLearned)
	assert.Equal(t, "dog", second[0].UserMeaning)
}

func TestSQLiteStorage_ApplyProgressPageKeepsLocalSRS(t *testing.T) {
	storage, _ := newTestStorage(t)
	now := time.Now().UTC().Truncate(time.Second)

	local := progress.UserProgress{
		UserID:      "u1",
		WordID:      1,
		WordSwedish: "hund",
		SRSInterval: 5,
		SRSEase:     2.65,
		UpdatedAt:   now,
	}
	require.NoError(t, storage.SaveProgress(&local))

	remoteRow := progress.UserProgress{
		UserID:      "u1",
		WordID:      1,
		WordSwedish: "hund",
		IsLearned:   1,
		LearnedDate: &now,
		UpdatedAt:   now.Add(time.Hour),
	}
	require.NoError(t, storage.ApplyProgressPage([]progress.UserProgress{remoteRow}))

	got, err := storage.GetProgress("u1", "hund")
	require.NoError(t, err)
	// Факт изучения пришёл из облака, SRS-поля остались локальными.
	assert.Equal(t, 1, got.IsLearned)
	assert.Equal(t, 5, got.SRSInterval)
	assert.Equal(t, 2.65, got.SRSEase)
}

func TestSQLiteStorage_GetWordsByNames(t *testing.T) {
	storage, _ := newTestStorage(t)
	now := time.Now()

	var page []word.Word
	for i := 1; i <= 5; i++ {
		page = append(page, word.Word{ID: int64(i), SwedishWord: "ord" + string(rune('a'+i-1))})
	}
	require.NoError(t, storage.ApplyWordPage(page, now))

	found, err := storage.GetWordsByNames([]string{"orda", "ordc", "saknas"})
	require.NoError(t, err)
	require.Len(t, found, 2)

	names := []string{found[0].SwedishWord, found[1].SwedishWord}
	assert.ElementsMatch(t, []string{"orda", "ordc"}, names)
}

func TestSQLiteStorage_ListMeaningfulProgress(t *testing.T) {
	storage, _ := newTestStorage(t)
	now := time.Now()

	rows := []progress.UserProgress{
		{UserID: "u1", WordSwedish: "learned", IsLearned: 1, LearnedDate: &now, UpdatedAt: now},
		{UserID: "u1", WordSwedish: "reserved", IsReserve: 1, ReservedAt: &now, UpdatedAt: now},
		{UserID: "u1", WordSwedish: "reviewed", SRSInterval: 3, SRSEase: 2.5, UpdatedAt: now},
		{UserID: "u1", WordSwedish: "empty", UpdatedAt: now},
	}
	for i := range rows {
		require.NoError(t, storage.SaveProgress(&rows[i]))
	}

	meaningful, err := storage.ListMeaningfulProgress("u1")
	require.NoError(t, err)

	var names []string
	for _, p := range meaningful {
		names = append(names, p.WordSwedish)
	}
	assert.ElementsMatch(t, []string{"learned", "reserved", "reviewed"}, names)
}

func TestSQLiteStorage_ListDueProgress(t *testing.T) {
	storage, _ := newTestStorage(t)
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	due := progress.UserProgress{
		UserID: "u1", WordSwedish: "due",
		SRSInterval: 1, SRSEase: 2.5, SRSNextReview: &past, UpdatedAt: now,
	}
	notDue := progress.UserProgress{
		UserID: "u1", WordSwedish: "senare",
		SRSInterval: 4, SRSEase: 2.5, SRSNextReview: &future, UpdatedAt: now,
	}
	require.NoError(t, storage.SaveProgress(&due))
	require.NoError(t, storage.SaveProgress(&notDue))

	got, err := storage.ListDueProgress("u1", now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "due", got[0].WordSwedish)
}

func TestSQLiteStorage_UpdateWordStory(t *testing.T) {
	storage, _ := newTestStorage(t)
	now := time.Now()

	page := []word.Word{
		{ID: 1, SwedishWord: "utan", WordData: word.WordData{Meanings: []word.Meaning{{Translation: "without"}}}},
		{ID: 2, SwedishWord: "med", WordData: word.WordData{Story: "redan klar"}},
	}
	require.NoError(t, storage.ApplyWordPage(page, now))

	missing, err := storage.ListWordsMissingStory()
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "utan", missing[0].SwedishWord)

	require.NoError(t, storage.UpdateWordStory("utan", "ny berättelse"))

	got, err := storage.GetWord("utan")
	require.NoError(t, err)
	assert.Equal(t, "ny berättelse", got.WordData.Story)
	// Остальные word_data при точечном обновлении не трогаются.
	require.Len(t, got.WordData.Meanings, 1)

	missing, err = storage.ListWordsMissingStory()
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestSQLiteStorage_SaveProgressRejectsInvalid(t *testing.T) {
	storage, _ := newTestStorage(t)

	broken := progress.UserProgress{
		UserID: "u1", WordSwedish: "fel",
		IsLearned: 1, IsReserve: 1,
	}
	err := storage.SaveProgress(&broken)
	require.Error(t, err)

	var verr *progress.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSQLiteStorage_DeleteProgress(t *testing.T) {
	storage, _ := newTestStorage(t)
	now := time.Now()

	p := progress.UserProgress{UserID: "u1", WordSwedish: "bort", IsReserve: 1, ReservedAt: &now, UpdatedAt: now}
	require.NoError(t, storage.SaveProgress(&p))

	require.NoError(t, storage.DeleteProgress("u1", "bort"))

	_, err := storage.GetProgress("u1", "bort")
	assert.ErrorIs(t, err, progress.ErrNotFound)
}

func TestSQLiteStorage_WordUsageCache(t *testing.T) {
	storage, _ := newTestStorage(t)
	fetched := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, storage.SaveWordUsage("hund", `{"hits":3}`, fetched))

	data, at, err := storage.GetWordUsage("hund")
	require.NoError(t, err)
	assert.JSONEq(t, `{"hits":3}`, data)
	assert.Equal(t, fetched.Unix(), at.Unix())
}

func TestNotifier_PublishOnWrite(t *testing.T) {
	storage, notifier := newTestStorage(t)

	wordsCh, _ := notifier.Subscribe(TopicWords)
	progressCh, _ := notifier.Subscribe(TopicProgress)

	require.NoError(t, storage.SaveWord(&word.Word{SwedishWord: "hund"}))
	select {
	case <-wordsCh:
	default:
		t.Fatal("expected invalidation on words topic")
	}

	now := time.Now()
	p := progress.UserProgress{UserID: "u1", WordSwedish: "hund", IsReserve: 1, ReservedAt: &now, UpdatedAt: now}
	require.NoError(t, storage.SaveProgress(&p))
	select {
	case <-progressCh:
	default:
		t.Fatal("expected invalidation on progress topic")
	}

	// Записи в учебные кэши тоже инвалидируют словарную тему.
	require.NoError(t, storage.SaveWordUsage("hund", `{"examples":[]}`, now))
	select {
	case <-wordsCh:
	default:
		t.Fatal("expected invalidation after usage cache write")
	}

	require.NoError(t, storage.SaveQuiz("hund", `{"question":"?"}`, now))
	select {
	case <-wordsCh:
	default:
		t.Fatal("expected invalidation after quiz cache write")
	}
}

func TestNotifier_Unsubscribe(t *testing.T) {
	storage, notifier := newTestStorage(t)

	ch, cancel := notifier.Subscribe(TopicWords)
	cancel()

	require.NoError(t, storage.SaveWord(&word.Word{SwedishWord: "hund"}))
	select {
	case <-ch:
		t.Fatal("cancelled subscription must not receive signals")
	default:
	}
}
