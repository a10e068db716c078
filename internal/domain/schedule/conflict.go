package schedule

import (
	"fmt"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE CONFLICT VALIDATOR
// Упорядоченный список именованных правил-предикатов. Каждое правило
// возвращает типизированную причину отказа; первое сработавшее правило
// останавливает проверку. Вызывающая сторона сохраняет расписание
// только после успешной валидации.
// ══════════════════════════════════════════════════════════════════════════════

// Причины отказа валидатора.
const (
	ReasonOwnedByOther       = "class subject already owns a different schedule"
	ReasonSpecialtyMismatch  = "instructor specialty does not match the class subject specialty"
	ReasonClassTimeNotListed = "class time is not in the allowed set"
	ReasonDurationOutOfRange = "duration is outside the allowed bounds"
	ReasonDateOrder          = "start day must be before end day"
	ReasonStartInPast        = "start day is in the past"
	ReasonRoomConflict       = "room is occupied by another schedule"
	ReasonInstructorConflict = "instructor is occupied by another schedule"
)

// ValidationError - типизированный отказ валидатора.
// Никогда не приводится к другим типам молча.
type ValidationError struct {
	// Rule - имя сработавшего правила.
	Rule string

	// Reason - человекочитаемая причина отказа.
	Reason string

	// ConflictingScheduleID - идентификатор конфликтующего расписания
	// (заполняется правилами поиска конфликтов).
	ConflictingScheduleID shared.ScheduleID
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if !e.ConflictingScheduleID.IsEmpty() {
		return fmt.Sprintf("schedule validation failed [%s]: %s (conflicts with %s)",
			e.Rule, e.Reason, e.ConflictingScheduleID)
	}
	return fmt.Sprintf("schedule validation failed [%s]: %s", e.Rule, e.Reason)
}

// Is поддерживает errors.Is(err, shared.ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == shared.ErrValidation
}

// ══════════════════════════════════════════════════════════════════════════════
// INPUT
// ══════════════════════════════════════════════════════════════════════════════

// Candidate - проверяемое расписание вместе со специальностями,
// необходимыми для проверки соответствия инструктора.
type Candidate struct {
	// Schedule - предлагаемое расписание. Для обновления ID указывает
	// на существующее расписание.
	Schedule *TrainingSchedule

	// SubjectSpecialty - специальность пары предмет-специальность
	// целевого ClassSubject.
	SubjectSpecialty shared.Specialty

	// InstructorSpecialty - специальность предлагаемого инструктора.
	InstructorSpecialty shared.Specialty
}

// Environment - срез существующих данных, против которых идёт
// проверка. Собирается вызывающей стороной в той же транзакции, в
// которой расписание будет сохранено: валидация и запись атомарны на
// уровне ClassSubject.
type Environment struct {
	// Now - текущий момент.
	Now time.Time

	// OwnedScheduleID - расписание, которым целевой ClassSubject уже
	// владеет (пусто, если расписания нет).
	OwnedScheduleID shared.ScheduleID

	// RoomNeighbors - расписания той же аудитории (location, room).
	RoomNeighbors []*TrainingSchedule

	// InstructorNeighbors - все расписания того же инструктора,
	// независимо от аудитории.
	InstructorNeighbors []*TrainingSchedule
}

// ══════════════════════════════════════════════════════════════════════════════
// RULES
// ══════════════════════════════════════════════════════════════════════════════

// Rule - именованное правило валидации.
type Rule struct {
	Name  string
	Check func(c Candidate, env Environment) *ValidationError
}

// Rules возвращает упорядоченный список правил валидатора.
// Порядок значим: дешёвые структурные проверки идут до поиска
// конфликтов.
func Rules() []Rule {
	return []Rule{
		{Name: "single_schedule_per_class_subject", Check: checkSingleSchedule},
		{Name: "instructor_specialty", Check: checkSpecialty},
		{Name: "allowed_class_time", Check: checkClassTime},
		{Name: "duration_bounds", Check: checkDuration},
		{Name: "date_order", Check: checkDateOrder},
		{Name: "start_not_in_past", Check: checkStartNotPast},
		{Name: "room_conflict", Check: checkRoomConflict},
		{Name: "instructor_conflict", Check: checkInstructorConflict},
	}
}

// Validate прогоняет кандидата через все правила по порядку и
// возвращает первый типизированный отказ.
func Validate(c Candidate, env Environment) error {
	for _, rule := range Rules() {
		if verr := rule.Check(c, env); verr != nil {
			verr.Rule = rule.Name
			return verr
		}
	}
	return nil
}

func checkSingleSchedule(c Candidate, env Environment) *ValidationError {
	if env.OwnedScheduleID.IsEmpty() {
		return nil
	}
	if env.OwnedScheduleID == c.Schedule.ID {
		return nil
	}
	return &ValidationError{
		Reason:                ReasonOwnedByOther,
		ConflictingScheduleID: env.OwnedScheduleID,
	}
}

func checkSpecialty(c Candidate, env Environment) *ValidationError {
	if c.InstructorSpecialty.Matches(c.SubjectSpecialty) {
		return nil
	}
	return &ValidationError{Reason: ReasonSpecialtyMismatch}
}

func checkClassTime(c Candidate, env Environment) *ValidationError {
	if IsAllowedClassTime(c.Schedule.ClassTime) {
		return nil
	}
	return &ValidationError{Reason: ReasonClassTimeNotListed}
}

func checkDuration(c Candidate, env Environment) *ValidationError {
	d := c.Schedule.DurationMinutes
	if d >= MinDurationMinutes && d <= MaxDurationMinutes {
		return nil
	}
	return &ValidationError{Reason: ReasonDurationOutOfRange}
}

func checkDateOrder(c Candidate, env Environment) *ValidationError {
	r := c.Schedule.Range
	if startOfDay(r.Start).Before(startOfDay(r.End)) {
		return nil
	}
	return &ValidationError{Reason: ReasonDateOrder}
}

func checkStartNotPast(c Candidate, env Environment) *ValidationError {
	if !startOfDay(c.Schedule.Range.Start).Before(startOfDay(env.Now)) {
		return nil
	}
	return &ValidationError{Reason: ReasonStartInPast}
}

func checkRoomConflict(c Candidate, env Environment) *ValidationError {
	if conflicting := findOverlap(c.Schedule, env.RoomNeighbors); conflicting != nil {
		return &ValidationError{
			Reason:                ReasonRoomConflict,
			ConflictingScheduleID: conflicting.ID,
		}
	}
	return nil
}

func checkInstructorConflict(c Candidate, env Environment) *ValidationError {
	if conflicting := findOverlap(c.Schedule, env.InstructorNeighbors); conflicting != nil {
		return &ValidationError{
			Reason:                ReasonInstructorConflict,
			ConflictingScheduleID: conflicting.ID,
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// OVERLAP TEST
// ══════════════════════════════════════════════════════════════════════════════

// findOverlap возвращает первое расписание из списка, тройное
// пересечение с которым подтверждено. Отменённые и завершённые соседи,
// а также само обновляемое расписание, пропускаются.
func findOverlap(cand *TrainingSchedule, neighbors []*TrainingSchedule) *TrainingSchedule {
	for _, other := range neighbors {
		if other.ID == cand.ID {
			continue
		}
		if !other.Status.Occupies() {
			continue
		}
		if TripleOverlap(cand, other) {
			return other
		}
	}
	return nil
}

// TripleOverlap - тест тройного пересечения расписаний: диапазоны дат
// пересекаются И множества дней недели пересекаются И полуоткрытые
// интервалы времени [classTime, classTime+duration) пересекаются.
// Достаточно одного непересекающегося измерения, чтобы конфликта не
// было.
func TripleOverlap(a, b *TrainingSchedule) bool {
	if !a.Range.Overlaps(b.Range) {
		return false
	}
	if !a.Days.Intersects(b.Days) {
		return false
	}
	return a.Interval().Overlaps(b.Interval())
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
