package progress

// Validate проверяет форму записи прогресса перед допуском в локальное
// хранилище или очередь синхронизации.
func Validate(p *UserProgress) error {
	if p == nil {
		return &ValidationError{Field: "progress", Reason: "record is nil"}
	}
	if p.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	if p.WordID == 0 && p.WordSwedish == "" {
		return &ValidationError{Field: "word_id", Reason: "either word_id or word_swedish is required"}
	}
	if p.IsLearned != 0 && p.IsLearned != 1 {
		return &ValidationError{Field: "is_learned", Reason: "must be 0 or 1"}
	}
	if p.IsReserve != 0 && p.IsReserve != 1 {
		return &ValidationError{Field: "is_reserve", Reason: "must be 0 or 1"}
	}
	if p.IsLearned == 1 && p.IsReserve == 1 {
		return &ValidationError{Field: "is_reserve", Reason: "learned and reserve are mutually exclusive"}
	}
	if p.SRSInterval < 0 {
		return &ValidationError{Field: "srs_interval", Reason: "must not be negative"}
	}
	if p.SRSEase != 0 && p.SRSEase < 1.3 {
		return &ValidationError{Field: "srs_ease", Reason: "must be at least 1.3"}
	}
	return nil
}
