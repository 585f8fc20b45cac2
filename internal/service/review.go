// review.go — административный просмотр анкет: список с фильтрами,
// просмотр, удаление, скачивание резюме и счётчики панели.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/bigkaa/intake-portal/internal/domain/access"
	"github.com/bigkaa/intake-portal/internal/domain/model"
	"github.com/bigkaa/intake-portal/internal/domain/role"
	"github.com/bigkaa/intake-portal/internal/repository"
)

// recentWindow — окно счётчика «недавних» анкет на панели.
const recentWindow = 7 * 24 * time.Hour

// ReviewFilters — фильтры административного списка и экспорта.
type ReviewFilters struct {
	// UserID — точное совпадение владельца
	UserID *int64
	// Position — подстрока должности без учёта регистра
	Position string
	// Education — подстрока уровня образования без учёта регистра
	Education string
}

func (f ReviewFilters) toRepo() repository.FormFilters {
	rf := repository.FormFilters{UserID: f.UserID}
	if f.Position != "" {
		p := f.Position
		rf.Position = &p
	}
	if f.Education != "" {
		e := f.Education
		rf.Education = &e
	}
	return rf
}

// ReviewList — страница анкет и список кандидатов для фильтра по владельцу.
type ReviewList struct {
	Page[*model.FormWithOwner]
	Applicants []model.OwnerSummary `json:"applicants"`
}

// ReviewService — операции администратора над всеми анкетами.
type ReviewService struct {
	forms  repository.FormRepository
	users  repository.UserRepository
	files  *attachments
	now    func() time.Time
	logger *slog.Logger
}

// NewReviewService создаёт административный сервис анкет.
func NewReviewService(
	forms repository.FormRepository,
	users repository.UserRepository,
	store AttachmentStore,
	logger *slog.Logger,
) *ReviewService {
	logger = logger.With(slog.String("component", "review_service"))
	return &ReviewService{
		forms:  forms,
		users:  users,
		files:  &attachments{store: store, logger: logger},
		now:    time.Now,
		logger: logger,
	}
}

// List возвращает страницу анкет по фильтрам, новые первыми.
func (s *ReviewService) List(ctx context.Context, caller *access.Caller, filters ReviewFilters, page int) (*ReviewList, error) {
	if err := access.RequireRole(caller, role.Admin); err != nil {
		return nil, err
	}
	page = normalizePage(page)
	rf := filters.toRepo()

	total, err := s.forms.Count(ctx, rf)
	if err != nil {
		return nil, fmt.Errorf("подсчёт анкет: %w", err)
	}
	items, err := s.forms.List(ctx, rf, PageSize, pageOffset(page))
	if err != nil {
		return nil, fmt.Errorf("список анкет: %w", err)
	}
	applicants, err := s.users.ListByRole(ctx, role.Applicant)
	if err != nil {
		return nil, fmt.Errorf("список кандидатов: %w", err)
	}

	return &ReviewList{Page: newPage(items, page, total), Applicants: applicants}, nil
}

// Show возвращает любую анкету вместе с владельцем.
func (s *ReviewService) Show(ctx context.Context, caller *access.Caller, id int64) (*model.FormWithOwner, error) {
	if err := access.RequireRole(caller, role.Admin); err != nil {
		return nil, err
	}
	fw, err := s.forms.GetWithOwner(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return fw, nil
}

// Delete удаляет любую анкету: сначала резюме, затем запись.
func (s *ReviewService) Delete(ctx context.Context, caller *access.Caller, id int64) error {
	if err := access.RequireRole(caller, role.Admin); err != nil {
		return err
	}

	f, err := s.forms.GetByID(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}
	if err := deleteForm(ctx, s.forms, s.files, f); err != nil {
		return err
	}

	formsDeletedTotal.WithLabelValues(role.Admin.String()).Inc()
	s.logger.Info("Анкета удалена администратором",
		slog.Int64("form_id", id),
		slog.Int64("admin_id", caller.ID),
	)
	return nil
}

// OpenAttachment открывает резюме анкеты для скачивания.
// Нет записи, нет пути или нет файла — ErrNotFound.
func (s *ReviewService) OpenAttachment(ctx context.Context, caller *access.Caller, id int64) (*Attachment, error) {
	if err := access.RequireRole(caller, role.Admin); err != nil {
		return nil, err
	}

	f, err := s.forms.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if !f.HasAttachment() {
		return nil, ErrNotFound
	}

	file, info, err := s.files.open(*f.CVPath)
	if err != nil {
		return nil, err
	}

	return &Attachment{
		Content:     file,
		Name:        DownloadName(f.Name, *f.CVPath),
		ContentType: ContentTypeForPath(*f.CVPath),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
	}, nil
}

// Stats возвращает счётчики административной панели.
func (s *ReviewService) Stats(ctx context.Context, caller *access.Caller) (*model.FormStats, error) {
	if err := access.RequireRole(caller, role.Admin); err != nil {
		return nil, err
	}

	total, recent, err := s.forms.CountSince(ctx, s.now().Add(-recentWindow))
	if err != nil {
		return nil, fmt.Errorf("счётчики анкет: %w", err)
	}
	applicants, err := s.users.CountByRole(ctx, role.Applicant)
	if err != nil {
		return nil, fmt.Errorf("счётчик кандидатов: %w", err)
	}

	return &model.FormStats{TotalForms: total, TotalApplicants: applicants, RecentForms: recent}, nil
}

// DownloadName формирует имя файла для скачивания: <имя кандидата>_CV.<ext>.
func DownloadName(applicantName, storagePath string) string {
	return applicantName + "_CV" + path.Ext(storagePath)
}
