package progress

import "time"

// Sanitize нормализует кандидата на изменение прогресса относительно
// существующей записи и возвращает каноническую форму. Функция чистая:
// никакого I/O, текущее время передаётся явно.
//
// Правила:
//   - взаимная исключительность: установка learned=true принудительно
//     сбрасывает reserve и reserved_at; установка reserve=true сбрасывает
//     learned и learned_date. Если кандидат противоречиво задаёт оба флага
//     как true, learned побеждает;
//   - learned_date ставится только на переходе 0→1 и сохраняется при
//     последующих правках уже выученного слова; reserved_at ставится только
//     если слово ещё не было отложено;
//   - незаданные поля кандидата наследуются от existing;
//   - в результат попадают только поля UserProgress — всё прочее отбрасывается.
func Sanitize(c Candidate, existing *UserProgress, now time.Time) UserProgress {
	var out UserProgress
	if existing != nil {
		out = *existing
	} else {
		out.SRSEase = DefaultEase
	}

	if c.UserID != "" {
		out.UserID = c.UserID
	}
	if c.WordID != 0 {
		out.WordID = c.WordID
	}
	if c.WordSwedish != "" {
		out.WordSwedish = c.WordSwedish
	}

	if c.IsLearned != nil || c.IsReserve != nil {
		applyFlags(&out, c, now)
	}

	if c.UserMeaning != nil {
		out.UserMeaning = *c.UserMeaning
	}
	if c.CustomSpelling != nil {
		out.CustomSpelling = *c.CustomSpelling
	}
	if c.SRSInterval != nil {
		out.SRSInterval = *c.SRSInterval
	}
	if c.SRSEase != nil {
		out.SRSEase = *c.SRSEase
	}
	if c.SRSNextReview != nil {
		out.SRSNextReview = c.SRSNextReview
	}

	if out.SRSEase == 0 {
		out.SRSEase = DefaultEase
	}
	out.UpdatedAt = now

	return out
}

func applyFlags(out *UserProgress, c Candidate, now time.Time) {
	wantLearned := out.Learned()
	if c.IsLearned != nil {
		wantLearned = *c.IsLearned
	}
	wantReserve := out.Reserved()
	if c.IsReserve != nil {
		wantReserve = *c.IsReserve
	}

	// Противоречивый кандидат: выученное состояние приоритетнее.
	if c.IsLearned != nil && *c.IsLearned {
		wantReserve = false
	} else if c.IsReserve != nil && *c.IsReserve {
		wantLearned = false
	}

	switch {
	case wantLearned:
		if !out.Learned() || out.LearnedDate == nil {
			t := now
			out.LearnedDate = &t
		}
		out.IsLearned = 1
		out.IsReserve = 0
		out.ReservedAt = nil
	case wantReserve:
		if !out.Reserved() || out.ReservedAt == nil {
			t := now
			out.ReservedAt = &t
		}
		out.IsReserve = 1
		out.IsLearned = 0
		out.LearnedDate = nil
	default:
		out.IsLearned = 0
		out.IsReserve = 0
		if c.IsLearned != nil && !*c.IsLearned {
			out.LearnedDate = nil
		}
		if c.IsReserve != nil && !*c.IsReserve {
			out.ReservedAt = nil
		}
	}
}

// Repair повторно санитизирует запись, у которой оба флага оказались
// установлены (защитный путь восстановления, не нормальное состояние).
// Побеждает выученное состояние. Возвращает исправленную копию и признак
// того, что исправление потребовалось.
func Repair(p UserProgress, now time.Time) (UserProgress, bool) {
	if !(p.Learned() && p.Reserved()) {
		return p, false
	}
	learned := true
	fixed := Sanitize(Candidate{IsLearned: &learned}, &p, now)
	// Дата выучивания при ремонте не переписывается.
	if p.LearnedDate != nil {
		fixed.LearnedDate = p.LearnedDate
	}
	return fixed, true
}
