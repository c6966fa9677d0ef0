package progress

import "time"

// DefaultEase — стартовый фактор лёгкости для любой новой записи.
const DefaultEase = 2.5

// UserProgress описывает отношение одного пользователя к одному слову.
// Идентичность — составной ключ (user_id, word_id); локально запись также
// ключуется по word_swedish, пока удалённый word_id неизвестен.
//
// Флаги is_learned / is_reserve хранятся канонически как 0/1 и взаимно
// исключают друг друга: одновременно выученное и отложенное слово —
// недопустимое состояние (см. Sanitize).
type UserProgress struct {
	UserID         string     `db:"user_id" json:"user_id"`
	WordID         int64      `db:"word_id" json:"word_id"`
	WordSwedish    string     `db:"word_swedish" json:"word_swedish"`
	IsLearned      int        `db:"is_learned" json:"is_learned"`
	IsReserve      int        `db:"is_reserve" json:"is_reserve"`
	LearnedDate    *time.Time `db:"learned_date" json:"learned_date,omitempty"`
	ReservedAt     *time.Time `db:"reserved_at" json:"reserved_at,omitempty"`
	UserMeaning    string     `db:"user_meaning" json:"user_meaning,omitempty"`
	CustomSpelling string     `db:"custom_spelling" json:"custom_spelling,omitempty"`
	SRSInterval    int        `db:"srs_interval" json:"srs_interval"`
	SRSEase        float64    `db:"srs_ease" json:"srs_ease"`
	SRSNextReview  *time.Time `db:"srs_next_review" json:"srs_next_review,omitempty"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Learned сообщает, выучено ли слово.
func (p *UserProgress) Learned() bool { return p.IsLearned == 1 }

// Reserved сообщает, отложено ли слово на потом.
func (p *UserProgress) Reserved() bool { return p.IsReserve == 1 }

// Meaningful сообщает, несёт ли запись прогресс, который стоит отправлять
// в облако: слово отложено, выучено или имеет ненулевой интервал повторения.
func (p *UserProgress) Meaningful() bool {
	return p.Learned() || p.Reserved() || p.SRSInterval > 0
}

// Candidate — частичное изменение прогресса, поступающее от мутации или из
// удалённой строки. Nil-поле означает "не задано, унаследовать от existing".
type Candidate struct {
	UserID         string
	WordID         int64
	WordSwedish    string
	IsLearned      *bool
	IsReserve      *bool
	UserMeaning    *string
	CustomSpelling *string
	SRSInterval    *int
	SRSEase        *float64
	SRSNextReview  *time.Time
}

// CoerceFlag приводит любое правдоподобное представление булева флага
// (bool, целые, float, строки "1"/"true") к каноническому виду. Второе
// возвращаемое значение ложно, если представление не распознано.
func CoerceFlag(v any) (*bool, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case bool:
		return &t, true
	case int:
		b := t != 0
		return &b, true
	case int64:
		b := t != 0
		return &b, true
	case float64:
		b := t != 0
		return &b, true
	case string:
		switch t {
		case "1", "true", "TRUE", "True":
			b := true
			return &b, true
		case "0", "false", "FALSE", "False", "":
			b := false
			return &b, true
		}
	}
	return nil, false
}
