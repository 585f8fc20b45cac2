// forms.go — сервис анкет кандидата.
// Все операции доступны только роли applicant и только над собственными анкетами.
//
// Порядок работы с вложениями:
//   - создание: файл записывается до вставки записи, при ошибке вставки удаляется;
//   - обновление: новый файл записывается до обновления записи, старый удаляется
//     только после успешного обновления, при ошибке удаляется новый;
//   - удаление: сначала файл, затем запись.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bigkaa/intake-portal/internal/domain/access"
	"github.com/bigkaa/intake-portal/internal/domain/model"
	"github.com/bigkaa/intake-portal/internal/domain/role"
	"github.com/bigkaa/intake-portal/internal/repository"
)

// FormService — операции кандидата над своими анкетами.
type FormService struct {
	forms     repository.FormRepository
	files     *attachments
	validator *Validator
	logger    *slog.Logger
}

// NewFormService создаёт сервис анкет кандидата.
func NewFormService(
	forms repository.FormRepository,
	store AttachmentStore,
	validator *Validator,
	logger *slog.Logger,
) *FormService {
	logger = logger.With(slog.String("component", "form_service"))
	return &FormService{
		forms:     forms,
		files:     &attachments{store: store, logger: logger},
		validator: validator,
		logger:    logger,
	}
}

// List возвращает страницу собственных анкет, новые первыми.
func (s *FormService) List(ctx context.Context, caller *access.Caller, page int) (*Page[*model.ApplicationForm], error) {
	if err := access.RequireRole(caller, role.Applicant); err != nil {
		return nil, err
	}
	page = normalizePage(page)

	total, err := s.forms.CountByOwner(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("подсчёт анкет: %w", err)
	}
	items, err := s.forms.ListByOwner(ctx, caller.ID, PageSize, pageOffset(page))
	if err != nil {
		return nil, fmt.Errorf("список анкет: %w", err)
	}

	result := newPage(items, page, total)
	return &result, nil
}

// Create проверяет данные, сохраняет резюме и создаёт анкету от имени вызывающего.
func (s *FormService) Create(ctx context.Context, caller *access.Caller, in FormInput) (*model.ApplicationForm, error) {
	if err := access.RequireRole(caller, role.Applicant); err != nil {
		return nil, err
	}

	v, err := s.validator.ValidateForm(ctx, in, true)
	if err != nil {
		return nil, err
	}

	path, err := s.files.save(v.cv)
	if err != nil {
		return nil, err
	}

	f := &model.ApplicationForm{UserID: caller.ID, CVPath: &path}
	v.apply(f)

	if err := s.forms.Create(ctx, f); err != nil {
		s.files.discard(path)
		return nil, fmt.Errorf("создание анкеты: %w", err)
	}

	formsSubmittedTotal.Inc()
	s.logger.Info("Анкета создана",
		slog.Int64("form_id", f.ID),
		slog.Int64("user_id", caller.ID),
	)
	return f, nil
}

// Show возвращает собственную анкету.
func (s *FormService) Show(ctx context.Context, caller *access.Caller, id int64) (*model.ApplicationForm, error) {
	if err := access.RequireRole(caller, role.Applicant); err != nil {
		return nil, err
	}
	return s.loadOwned(ctx, caller, id)
}

// Update изменяет собственную анкету. Без нового файла прежнее резюме сохраняется.
func (s *FormService) Update(ctx context.Context, caller *access.Caller, id int64, in FormInput) (*model.ApplicationForm, error) {
	if err := access.RequireRole(caller, role.Applicant); err != nil {
		return nil, err
	}

	f, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	v, err := s.validator.ValidateForm(ctx, in, false)
	if err != nil {
		return nil, err
	}
	v.apply(f)

	oldPath := f.CVPath
	var newPath string
	if v.cv != nil {
		newPath, err = s.files.save(v.cv)
		if err != nil {
			return nil, err
		}
		f.CVPath = &newPath
	}

	if err := s.forms.Update(ctx, f); err != nil {
		if newPath != "" {
			s.files.discard(newPath)
		}
		return nil, fmt.Errorf("обновление анкеты: %w", mapRepoErr(err))
	}

	// Запись уже ссылается на новый файл: старый удаляется после фиксации
	if newPath != "" && oldPath != nil && *oldPath != "" {
		s.files.discard(*oldPath)
	}

	formsUpdatedTotal.Inc()
	s.logger.Info("Анкета обновлена",
		slog.Int64("form_id", f.ID),
		slog.Bool("cv_replaced", newPath != ""),
	)
	return f, nil
}

// Delete удаляет собственную анкету вместе с резюме.
func (s *FormService) Delete(ctx context.Context, caller *access.Caller, id int64) error {
	if err := access.RequireRole(caller, role.Applicant); err != nil {
		return err
	}

	f, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return err
	}

	if err := deleteForm(ctx, s.forms, s.files, f); err != nil {
		return err
	}

	formsDeletedTotal.WithLabelValues(role.Applicant.String()).Inc()
	s.logger.Info("Анкета удалена", slog.Int64("form_id", id), slog.Int64("user_id", caller.ID))
	return nil
}

// loadOwned загружает анкету и проверяет владельца.
func (s *FormService) loadOwned(ctx context.Context, caller *access.Caller, id int64) (*model.ApplicationForm, error) {
	f, err := s.forms.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if err := access.RequireOwnership(caller.ID, f.UserID); err != nil {
		return nil, err
	}
	return f, nil
}

// deleteForm удаляет сначала файл, затем запись.
// Если файл удалить не удалось, запись остаётся.
func deleteForm(ctx context.Context, forms repository.FormRepository, files *attachments, f *model.ApplicationForm) error {
	if f.HasAttachment() {
		if err := files.remove(*f.CVPath); err != nil {
			return err
		}
	}
	if err := forms.Delete(ctx, f.ID); err != nil {
		return fmt.Errorf("удаление анкеты: %w", mapRepoErr(err))
	}
	return nil
}
