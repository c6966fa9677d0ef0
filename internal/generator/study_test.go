package generator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordbank/internal/domain/word"
)

type fakeStudyCache struct {
	quizzes map[string]cacheEntry
	usages  map[string]cacheEntry
}

type cacheEntry struct {
	data      string
	fetchedAt time.Time
}

func newFakeStudyCache() *fakeStudyCache {
	return &fakeStudyCache{
		quizzes: make(map[string]cacheEntry),
		usages:  make(map[string]cacheEntry),
	}
}

func (c *fakeStudyCache) GetQuiz(name string) (string, time.Time, error) {
	e, ok := c.quizzes[name]
	if !ok {
		return "", time.Time{}, errors.New("no rows")
	}
	return e.data, e.fetchedAt, nil
}

func (c *fakeStudyCache) SaveQuiz(name, quizJSON string, fetchedAt time.Time) error {
	c.quizzes[name] = cacheEntry{data: quizJSON, fetchedAt: fetchedAt}
	return nil
}

func (c *fakeStudyCache) GetWordUsage(name string) (string, time.Time, error) {
	e, ok := c.usages[name]
	if !ok {
		return "", time.Time{}, errors.New("no rows")
	}
	return e.data, e.fetchedAt, nil
}

func (c *fakeStudyCache) SaveWordUsage(name, usageJSON string, fetchedAt time.Time) error {
	c.usages[name] = cacheEntry{data: usageJSON, fetchedAt: fetchedAt}
	return nil
}

func TestQuizFor_CacheMissGeneratesAndSaves(t *testing.T) {
	cache := newFakeStudyCache()
	gen := &fakeGenerator{quizJSON: `{"question":"vad betyder hund?"}`}
	now := time.Now()

	data, err := QuizFor(context.Background(), cache, gen, word.Word{SwedishWord: "hund"}, now)
	require.NoError(t, err)
	assert.JSONEq(t, `{"question":"vad betyder hund?"}`, data)
	assert.Equal(t, 1, gen.quizCalls)

	saved, at, err := cache.GetQuiz("hund")
	require.NoError(t, err)
	assert.Equal(t, data, saved)
	assert.Equal(t, now, at)
}

func TestQuizFor_FreshCacheSkipsGenerator(t *testing.T) {
	cache := newFakeStudyCache()
	gen := &fakeGenerator{quizJSON: `{"question":"ny"}`}
	now := time.Now()

	require.NoError(t, cache.SaveQuiz("hund", `{"question":"gammal"}`, now.Add(-time.Hour)))

	data, err := QuizFor(context.Background(), cache, gen, word.Word{SwedishWord: "hund"}, now)
	require.NoError(t, err)
	assert.JSONEq(t, `{"question":"gammal"}`, data)
	assert.Zero(t, gen.quizCalls)
}

func TestQuizFor_StaleCacheRegenerates(t *testing.T) {
	cache := newFakeStudyCache()
	gen := &fakeGenerator{quizJSON: `{"question":"ny"}`}
	now := time.Now()

	require.NoError(t, cache.SaveQuiz("hund", `{"question":"gammal"}`, now.Add(-CacheTTL-time.Minute)))

	data, err := QuizFor(context.Background(), cache, gen, word.Word{SwedishWord: "hund"}, now)
	require.NoError(t, err)
	assert.JSONEq(t, `{"question":"ny"}`, data)
	assert.Equal(t, 1, gen.quizCalls)

	// Кэш перезаписан свежим материалом.
	saved, at, err := cache.GetQuiz("hund")
	require.NoError(t, err)
	assert.JSONEq(t, `{"question":"ny"}`, saved)
	assert.Equal(t, now, at)
}

func TestQuizFor_GeneratorErrorPropagates(t *testing.T) {
	cache := newFakeStudyCache()
	gen := &fakeGenerator{quizErr: errors.New("api down")}

	_, err := QuizFor(context.Background(), cache, gen, word.Word{SwedishWord: "hund"}, time.Now())
	assert.EqualError(t, err, "api down")

	_, _, err = cache.GetQuiz("hund")
	assert.Error(t, err)
}

func TestUsageFor_CacheRules(t *testing.T) {
	cache := newFakeStudyCache()
	gen := &fakeGenerator{usageJSON: `{"examples":[{"swedish":"hunden skäller","english":"the dog barks"}]}`}
	now := time.Now()

	data, err := UsageFor(context.Background(), cache, gen, word.Word{SwedishWord: "hund"}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, gen.usageCalls)

	var u Usage
	require.NoError(t, json.Unmarshal([]byte(data), &u))
	require.Len(t, u.Examples, 1)
	assert.Equal(t, "hunden skäller", u.Examples[0].Swedish)

	// Повторный запрос в пределах срока годности идёт из кэша.
	_, err = UsageFor(context.Background(), cache, gen, word.Word{SwedishWord: "hund"}, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, gen.usageCalls)
}
