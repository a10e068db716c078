package certificate

import (
	"sort"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RENEWAL CHAIN
// ══════════════════════════════════════════════════════════════════════════════

// CourseRef - сведения о курсе, необходимые для восстановления
// цепочки: уровень и ссылка на исходный курс.
type CourseRef struct {
	ID        shared.CourseID
	Level     shared.CourseLevel
	RelatedID shared.CourseID
}

// OriginalCourseID возвращает исходный курс линии сертификации: для
// Recurrent курса это связанный курс, иначе сам курс.
func (r CourseRef) OriginalCourseID() shared.CourseID {
	if r.Level.RenewsInPlace() && !r.RelatedID.IsEmpty() {
		return r.RelatedID
	}
	return r.ID
}

// EntryKind классифицирует запись истории.
type EntryKind string

const (
	// KindOriginal - первая выдача в линии.
	KindOriginal EntryKind = "original"
	// KindRenewal - продление существующей сертификации.
	KindRenewal EntryKind = "renewal"
	// KindReissue - повторная выдача, не являющаяся продлением.
	KindReissue EntryKind = "reissue"
)

// HistoryEntry - одна запись восстановленной истории сертификации.
type HistoryEntry struct {
	CertificateID shared.CertificateID
	Code          string
	CourseID      shared.CourseID
	Kind          EntryKind
	IssuedAt      time.Time
	ExpiresAt     time.Time
	Status        Status

	// Inferred - классификация восстановлена из временных меток, а не
	// из журнала продлений.
	Inferred bool
}

// Lineage - восстановленная линия сертификации одного слушателя.
// Записи отсортированы по убыванию даты выдачи: текущее состояние
// первым.
type Lineage struct {
	TraineeID        shared.UserID
	OriginalCourseID shared.CourseID
	Entries          []HistoryEntry
}

// Empty проверяет, что линия пуста.
func (l Lineage) Empty() bool {
	return len(l.Entries) == 0
}

// Current возвращает последнюю по времени запись линии.
func (l Lineage) Current() (HistoryEntry, bool) {
	if len(l.Entries) == 0 {
		return HistoryEntry{}, false
	}
	return l.Entries[0], true
}

// ══════════════════════════════════════════════════════════════════════════════
// RESOLVER
// ══════════════════════════════════════════════════════════════════════════════

// ResolveHistory восстанавливает историю сертификации слушателя по
// линии курса. Сертификаты сортируются по возрастанию даты выдачи;
// самая ранняя запись считается исходной, каждая последующая
// классифицируется относительно предыдущей:
//
//   - курс изменился и новый курс Recurrent: продление;
//   - курс тот же, зазор между выдачами больше InferredRenewalGapDays:
//     продление;
//   - срок предыдущего истекал в пределах RenewalWindowDays до новой
//     выдачи: продление;
//   - иначе: повторная выдача.
//
// Зафиксированные в журнале продления дополняют записи того же
// сертификата и снимают с них флаг Inferred. Отозванные сертификаты в
// историю не входят; если вся линия отозвана, возвращается пустая
// Lineage.
func ResolveHistory(traineeID shared.UserID, certs []Certificate, renewals []RenewalEvent, courses map[shared.CourseID]CourseRef) Lineage {
	alive := make([]Certificate, 0, len(certs))
	for _, c := range certs {
		if c.Status != StatusRevoked {
			alive = append(alive, c)
		}
	}
	if len(alive) == 0 {
		return Lineage{TraineeID: traineeID}
	}

	sort.Slice(alive, func(i, j int) bool {
		return alive[i].IssuedAt.Before(alive[j].IssuedAt)
	})

	logged := make(map[shared.CertificateID][]RenewalEvent, len(renewals))
	for _, ev := range renewals {
		logged[ev.CertificateID] = append(logged[ev.CertificateID], ev)
	}

	entries := make([]HistoryEntry, 0, len(alive)+len(renewals))

	for i, c := range alive {
		entry := HistoryEntry{
			CertificateID: c.ID,
			Code:          c.Code,
			CourseID:      c.CourseID,
			IssuedAt:      c.IssuedAt,
			ExpiresAt:     c.ExpiresAt,
			Status:        c.Status,
		}

		if i == 0 {
			entry.Kind = KindOriginal
		} else {
			prev := alive[i-1]
			entry.Kind, entry.Inferred = classify(prev, c, courses)
		}
		entries = append(entries, entry)

		// Зафиксированные продления этого сертификата восстанавливаются
		// как отдельные записи истории с тем же id и кодом.
		evs := logged[c.ID]
		sort.Slice(evs, func(a, b int) bool {
			return evs[a].RenewedAt.Before(evs[b].RenewedAt)
		})
		for _, ev := range evs {
			entries = append(entries, HistoryEntry{
				CertificateID: c.ID,
				Code:          c.Code,
				CourseID:      ev.CourseID,
				Kind:          KindRenewal,
				IssuedAt:      ev.RenewedAt,
				ExpiresAt:     ev.NewExpiry,
				Status:        c.Status,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].IssuedAt.After(entries[j].IssuedAt)
	})

	original := alive[0].CourseID
	if ref, ok := courses[original]; ok {
		original = ref.OriginalCourseID()
	}

	return Lineage{
		TraineeID:        traineeID,
		OriginalCourseID: original,
		Entries:          entries,
	}
}

// classify определяет тип записи по паре соседних сертификатов.
func classify(prev, next Certificate, courses map[shared.CourseID]CourseRef) (EntryKind, bool) {
	if prev.CourseID != next.CourseID {
		if ref, ok := courses[next.CourseID]; ok && ref.Level.RenewsInPlace() {
			return KindRenewal, true
		}
	}
	if prev.CourseID == next.CourseID &&
		next.IssuedAt.Sub(prev.IssuedAt) > time.Duration(InferredRenewalGapDays)*24*time.Hour {
		return KindRenewal, true
	}
	window := next.IssuedAt.AddDate(0, 0, RenewalWindowDays)
	if prev.ExpiresAt.After(next.IssuedAt.AddDate(0, 0, -RenewalWindowDays)) && prev.ExpiresAt.Before(window) {
		return KindRenewal, true
	}
	return KindReissue, true
}
