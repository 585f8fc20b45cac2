// export.go — выгрузка анкет в CSV.
// Строки читаются курсором из базы и сразу пишутся в encoding/csv,
// весь результат в памяти не накапливается.
package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/bigkaa/intake-portal/internal/domain/access"
	"github.com/bigkaa/intake-portal/internal/domain/model"
	"github.com/bigkaa/intake-portal/internal/domain/role"
)

// Форматы времени экспорта.
const (
	exportTimeLayout     = "2006-01-02 15:04:05"
	exportFilenameLayout = "2006-01-02_15-04-05"
)

// exportHeader — заголовок CSV.
var exportHeader = []string{
	"ID",
	"Nome do Candidato",
	"Email do Candidato",
	"Posição",
	"Educação",
	"Observações",
	"Data de Envio",
	"Nome do Usuário",
	"Email do Usuário",
}

// FormExport — подготовленная выгрузка. Права проверены при создании,
// поэтому заголовки ответа можно отправлять до начала записи.
type FormExport struct {
	// Filename — имя файла для Content-Disposition
	Filename string

	svc     *ReviewService
	filters ReviewFilters
}

// Export проверяет права и готовит выгрузку анкет по фильтрам без пагинации.
func (s *ReviewService) Export(ctx context.Context, caller *access.Caller, filters ReviewFilters) (*FormExport, error) {
	if err := access.RequireRole(caller, role.Admin); err != nil {
		return nil, err
	}
	return &FormExport{
		Filename: ExportFilename(s.now()),
		svc:      s,
		filters:  filters,
	}, nil
}

// WriteTo пишет CSV в w и возвращает число строк данных.
func (e *FormExport) WriteTo(ctx context.Context, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)

	if err := cw.Write(exportHeader); err != nil {
		return 0, fmt.Errorf("запись заголовка CSV: %w", err)
	}

	rows := 0
	err := e.svc.forms.Each(ctx, e.filters.toRepo(), func(fw *model.FormWithOwner) error {
		if err := cw.Write(exportRow(fw)); err != nil {
			return fmt.Errorf("запись строки CSV: %w", err)
		}
		rows++
		return nil
	})
	if err != nil {
		return rows, fmt.Errorf("выгрузка анкет: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("запись CSV: %w", err)
	}

	exportRowsTotal.Add(float64(rows))
	e.svc.logger.Info("Анкеты выгружены в CSV", slog.Int("rows", rows))
	return rows, nil
}

// exportRow формирует строку CSV для анкеты.
func exportRow(fw *model.FormWithOwner) []string {
	return []string{
		strconv.FormatInt(fw.ID, 10),
		fw.Name,
		fw.Email,
		fw.Position,
		fw.Education,
		deref(fw.Observations),
		fw.CreatedAt.Format(exportTimeLayout),
		fw.Owner.Name,
		fw.Owner.Email,
	}
}

// ExportFilename возвращает имя файла выгрузки на момент t.
func ExportFilename(t time.Time) string {
	return "forms_export_" + t.Format(exportFilenameLayout) + ".csv"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
