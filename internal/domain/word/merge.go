package word

// MergeData объединяет две версии word_data по принципу "только добавление":
// уже заполненное поле базовой версии никогда не затирается пустым или
// отсутствующим значением входящей. Если входящее поле заполнено, оно
// побеждает. Функция чистая, аргументы не модифицируются.
func MergeData(base, incoming WordData) WordData {
	out := base

	if len(incoming.Meanings) > 0 {
		out.Meanings = incoming.Meanings
	}
	if len(incoming.Examples) > 0 {
		out.Examples = incoming.Examples
	}
	if len(incoming.Synonyms) > 0 {
		out.Synonyms = incoming.Synonyms
	}
	if len(incoming.Antonyms) > 0 {
		out.Antonyms = incoming.Antonyms
	}
	if incoming.Forms != nil {
		out.Forms = incoming.Forms
	}
	if incoming.Story != "" {
		out.Story = incoming.Story
	}
	if incoming.CEFR != "" {
		out.CEFR = incoming.CEFR
	}
	if incoming.PopulatedAt != nil {
		out.PopulatedAt = incoming.PopulatedAt
	}

	return out
}

// Merge объединяет удалённую версию слова с локальной. Удалённые
// идентификаторы и маркеры списков авторитетны, когда заданы; word_data
// сливается аддитивно через MergeData.
func Merge(local, remote Word) Word {
	out := local

	if remote.ID != 0 {
		out.ID = remote.ID
	}
	if remote.SwedishWord != "" {
		out.SwedishWord = NormalizeName(remote.SwedishWord)
	}
	if remote.KellyLevel != nil {
		out.KellyLevel = remote.KellyLevel
	}
	if remote.KellySourceID != nil {
		out.KellySourceID = remote.KellySourceID
	}
	if remote.FrequencyRank != nil {
		out.FrequencyRank = remote.FrequencyRank
	}
	if remote.SidorRank != nil {
		out.SidorRank = remote.SidorRank
	}
	if remote.IsFT {
		out.IsFT = true
	}
	if !remote.LastSyncedAt.IsZero() {
		out.LastSyncedAt = remote.LastSyncedAt
	}
	out.WordData = MergeData(local.WordData, remote.WordData)

	return out
}
