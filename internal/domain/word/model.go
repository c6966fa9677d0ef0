package word

import (
	"strings"
	"time"
)

// Word представляет словарную единицу (запись списка слов).
//
// ID — числовой идентификатор удалённого хранилища, авторитетный после
// назначения. SwedishWord — нормализованный (lowercase, trimmed) текстовый
// ключ; он уникален и используется как ключ слияния, пока удалённый ID
// локально неизвестен (например, для только что захваченных слов).
type Word struct {
	ID            int64     `db:"id" json:"id"`
	SwedishWord   string    `db:"swedish_word" json:"swedish_word"`
	KellyLevel    *int      `db:"kelly_level" json:"kelly_level,omitempty"`
	KellySourceID *int64    `db:"kelly_source_id" json:"kelly_source_id,omitempty"`
	FrequencyRank *int      `db:"frequency_rank" json:"frequency_rank,omitempty"`
	SidorRank     *int      `db:"sidor_rank" json:"sidor_rank,omitempty"`
	IsFT          bool      `db:"is_ft" json:"is_ft"`
	WordData      WordData  `db:"-" json:"word_data"`
	LastSyncedAt  time.Time `db:"last_synced_at" json:"last_synced_at"`
}

// WordData — структурированное содержимое, сгенерированное для слова.
// Все поля опциональны; слияние всегда аддитивно (см. Merge).
type WordData struct {
	Meanings    []Meaning     `json:"meanings,omitempty"`
	Examples    []string      `json:"examples,omitempty"`
	Synonyms    []string      `json:"synonyms,omitempty"`
	Antonyms    []string      `json:"antonyms,omitempty"`
	Forms       *GrammarForms `json:"forms,omitempty"`
	Story       string        `json:"story,omitempty"`
	CEFR        string        `json:"cefr,omitempty"`
	PopulatedAt *time.Time    `json:"populated_at,omitempty"`
}

// Meaning — одно значение слова с переводом и пояснением.
type Meaning struct {
	Translation  string `json:"translation"`
	Explanation  string `json:"explanation,omitempty"`
	PartOfSpeech string `json:"part_of_speech,omitempty"`
}

// GrammarForms — грамматические формы слова.
type GrammarForms struct {
	Base        string   `json:"base,omitempty"`
	Definite    string   `json:"definite,omitempty"`
	Plural      string   `json:"plural,omitempty"`
	Past        string   `json:"past,omitempty"`
	Supine      string   `json:"supine,omitempty"`
	Comparative string   `json:"comparative,omitempty"`
	Extra       []string `json:"extra,omitempty"`
}

// NormalizeName приводит слово к каноническому локальному ключу.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsEmpty сообщает, есть ли в данных хоть одно заполненное поле.
func (d WordData) IsEmpty() bool {
	return len(d.Meanings) == 0 && len(d.Examples) == 0 &&
		len(d.Synonyms) == 0 && len(d.Antonyms) == 0 &&
		d.Forms == nil && d.Story == "" && d.CEFR == "" && d.PopulatedAt == nil
}

// HasMeanings сообщает, заполнены ли значения слова.
func (d WordData) HasMeanings() bool {
	return len(d.Meanings) > 0
}
