package word

// Validate проверяет форму записи слова перед допуском в локальное
// хранилище. Возвращает *ValidationError с именем первого нарушившего поля.
func Validate(w *Word) error {
	if w == nil {
		return &ValidationError{Field: "word", Reason: "record is nil"}
	}
	if NormalizeName(w.SwedishWord) == "" {
		return &ValidationError{Field: "swedish_word", Reason: "must not be empty"}
	}
	if w.SwedishWord != NormalizeName(w.SwedishWord) {
		return &ValidationError{Field: "swedish_word", Reason: "must be normalized lowercase"}
	}
	if w.ID < 0 {
		return &ValidationError{Field: "id", Reason: "must not be negative"}
	}
	if w.KellyLevel != nil && (*w.KellyLevel < 1 || *w.KellyLevel > 6) {
		return &ValidationError{Field: "kelly_level", Reason: "must be between 1 and 6"}
	}
	if w.FrequencyRank != nil && *w.FrequencyRank < 1 {
		return &ValidationError{Field: "frequency_rank", Reason: "must be positive"}
	}
	if w.SidorRank != nil && *w.SidorRank < 1 {
		return &ValidationError{Field: "sidor_rank", Reason: "must be positive"}
	}
	return nil
}
