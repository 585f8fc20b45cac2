package model

import "time"

// ApplicationForm — анкета кандидата.
// Хранится в таблице application_forms.
type ApplicationForm struct {
	// ID — идентификатор (bigserial)
	ID int64 `json:"id"`
	// UserID — владелец анкеты, задаётся при создании и не меняется
	UserID int64 `json:"user_id"`
	// Name — имя кандидата
	Name string `json:"name"`
	// Email — email кандидата
	Email string `json:"email"`
	// Phone — телефон (опционально)
	Phone *string `json:"phone"`
	// Position — желаемая должность
	Position string `json:"position"`
	// Education — уровень образования, одно из EducationLevels
	Education string `json:"education"`
	// Observations — свободный комментарий (опционально)
	Observations *string `json:"observations"`
	// CVPath — относительный путь вложения в файловом хранилище (опционально)
	CVPath *string `json:"cv_path"`
	// CreatedAt — время подачи анкеты
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time `json:"updated_at"`
}

// HasAttachment сообщает, есть ли у анкеты вложение.
func (f *ApplicationForm) HasAttachment() bool {
	return f.CVPath != nil && *f.CVPath != ""
}

// FormWithOwner — анкета вместе с владельцем (административные представления и экспорт).
type FormWithOwner struct {
	ApplicationForm
	Owner OwnerSummary `json:"user"`
}

// FormStats — счётчики для административной панели.
type FormStats struct {
	TotalForms      int64 `json:"total_forms"`
	TotalApplicants int64 `json:"total_applicants"`
	RecentForms     int64 `json:"recent_forms"`
}
