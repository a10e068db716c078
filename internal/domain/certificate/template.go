package certificate

import (
	"sort"
	"strings"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEMPLATE
// ══════════════════════════════════════════════════════════════════════════════

// Template - шаблон документа сертификата. Выбор идёт по префиксу
// имени, соответствующему уровню курса, среди активных шаблонов с
// наибольшим Sequence.
type Template struct {
	ID        string
	Name      string
	Sequence  int
	Active    bool
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Префиксы имён шаблонов по уровням курса.
const (
	templatePrefixInitial      = "Initial"
	templatePrefixRelearn      = "Relearn"
	templatePrefixProfessional = "Professional"
)

// templatePrefixes возвращает префиксы в порядке предпочтения для
// уровня курса. Relearn сначала ищет собственный шаблон, затем
// откатывается на Initial. Recurrent шаблона не требует: продление
// переиспользует существующий документ.
func templatePrefixes(level shared.CourseLevel) []string {
	switch level {
	case shared.LevelRelearn:
		return []string{templatePrefixRelearn, templatePrefixInitial}
	case shared.LevelProfessional:
		return []string{templatePrefixProfessional}
	default:
		return []string{templatePrefixInitial}
	}
}

// ResolveTemplate выбирает шаблон для уровня курса: среди активных
// шаблонов с подходящим префиксом имени берётся шаблон с наибольшим
// Sequence. Для Relearn при отсутствии собственного шаблона
// используется Initial.
func ResolveTemplate(templates []Template, level shared.CourseLevel) (Template, error) {
	for _, prefix := range templatePrefixes(level) {
		var matched []Template
		for _, t := range templates {
			if t.Active && strings.HasPrefix(t.Name, prefix) {
				matched = append(matched, t)
			}
		}
		if len(matched) == 0 {
			continue
		}
		sort.Slice(matched, func(i, j int) bool {
			return matched[i].Sequence > matched[j].Sequence
		})
		return matched[0], nil
	}
	return Template{}, shared.ErrTemplateNotFound
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADE TIER
// ══════════════════════════════════════════════════════════════════════════════

// GradeTier возвращает словесную оценку для подстановки в шаблон.
func GradeTier(total float64) string {
	switch {
	case total >= 9:
		return "Excellent"
	case total >= 8:
		return "Very Good"
	case total >= 7:
		return "Good"
	default:
		return "Pass"
	}
}
