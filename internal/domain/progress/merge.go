package progress

// Merge объединяет локальную и удалённую версии прогресса одного слова.
// Удалённая сторона авторитетна для факта изучения, даты изучения,
// пользовательского значения и альтернативного написания. Локальная
// сторона авторитетна для SRS-полей и флага резерва: интервалы
// повторения живут на устройстве и не затираются при скачивании.
func Merge(local, remote UserProgress) UserProgress {
	merged := local

	merged.WordID = remote.WordID
	merged.IsLearned = remote.IsLearned
	merged.LearnedDate = remote.LearnedDate
	merged.UserMeaning = remote.UserMeaning
	merged.CustomSpelling = remote.CustomSpelling

	// Флаги взаимоисключающие: удалённый learned снимает локальный резерв.
	if merged.IsLearned == 1 && merged.IsReserve == 1 {
		merged.IsReserve = 0
		merged.ReservedAt = nil
	}

	if remote.UpdatedAt.After(merged.UpdatedAt) {
		merged.UpdatedAt = remote.UpdatedAt
	}

	return merged
}
