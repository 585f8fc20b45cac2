package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bigkaa/intake-portal/internal/domain/access"
)

func TestFormServiceCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f, err := env.formSvc.Create(ctx, env.applicant, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if f.ID == 0 {
		t.Error("ID должен быть заполнен")
	}
	if f.UserID != env.applicant.ID {
		t.Errorf("UserID = %d, ожидалось %d", f.UserID, env.applicant.ID)
	}
	if f.CVPath == nil || !strings.HasPrefix(*f.CVPath, "cvs/") || !strings.HasSuffix(*f.CVPath, ".pdf") {
		t.Errorf("CVPath = %v, ожидался cvs/<uuid>.pdf", f.CVPath)
	}
	if !env.store.Exists(*f.CVPath) {
		t.Error("файл резюме должен существовать")
	}
	if f.Observations != nil {
		t.Errorf("пустые observations должны сохраняться как nil, получено %q", *f.Observations)
	}
}

func TestFormServiceCreateDocx(t *testing.T) {
	env := newTestEnv(t)

	in := validInput()
	in.CV = &Upload{Filename: "cv.docx", Data: docxSample(t)}
	f, err := env.formSvc.Create(context.Background(), env.applicant, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasSuffix(*f.CVPath, ".docx") {
		t.Errorf("CVPath = %q, ожидалось расширение .docx", *f.CVPath)
	}
}

func TestFormServiceCreateRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.formSvc.Create(ctx, nil, validInput())
	if !errors.Is(err, access.ErrUnauthenticated) {
		t.Errorf("без вызывающего: ожидалась ErrUnauthenticated, получено %v", err)
	}

	_, err = env.formSvc.Create(ctx, env.admin, validInput())
	if !errors.Is(err, access.ErrForbidden) {
		t.Errorf("администратор: ожидалась ErrForbidden, получено %v", err)
	}

	if env.forms.count() != 0 || env.store.storedFiles(t) != 0 {
		t.Error("при отказе в доступе ничего не должно сохраняться")
	}
}

func TestFormServiceCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *FormInput)
		fields []string
	}{
		{
			name:   "пустое имя",
			mutate: func(in *FormInput) { in.Name = "   " },
			fields: []string{FieldName},
		},
		{
			name:   "неверный email",
			mutate: func(in *FormInput) { in.Email = "не-email" },
			fields: []string{FieldEmail},
		},
		{
			name:   "длинный телефон",
			mutate: func(in *FormInput) { in.Phone = strings.Repeat("9", 21) },
			fields: []string{FieldPhone},
		},
		{
			name:   "должность длиннее 255 символов",
			mutate: func(in *FormInput) { in.Position = strings.Repeat("é", 256) },
			fields: []string{FieldPosition},
		},
		{
			name:   "образование не из списка",
			mutate: func(in *FormInput) { in.Education = "Superior Completo" },
			fields: []string{FieldEducation},
		},
		{
			name:   "нет резюме",
			mutate: func(in *FormInput) { in.CV = nil },
			fields: []string{FieldCV},
		},
		{
			name:   "резюме не документ",
			mutate: func(in *FormInput) { in.CV = &Upload{Filename: "cv.pdf", Data: []byte("просто текст")} },
			fields: []string{FieldCV},
		},
		{
			name: "резюме больше лимита",
			mutate: func(in *FormInput) {
				data := append(pdfSample(), make([]byte, testMaxUpload)...)
				in.CV = &Upload{Filename: "cv.pdf", Data: data}
			},
			fields: []string{FieldCV},
		},
		{
			name: "несколько полей",
			mutate: func(in *FormInput) {
				in.Name = ""
				in.Position = ""
				in.Education = ""
			},
			fields: []string{FieldName, FieldPosition, FieldEducation},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			in := validInput()
			tt.mutate(&in)

			_, err := env.formSvc.Create(context.Background(), env.applicant, in)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ожидалась ValidationError, получено %v", err)
			}
			if len(verr.Fields) != len(tt.fields) {
				t.Errorf("поля = %v, ожидалось ровно %v", verr.Fields, tt.fields)
			}
			for _, f := range tt.fields {
				if verr.Fields[f] == "" {
					t.Errorf("нет сообщения для поля %q", f)
				}
			}
			if env.forms.count() != 0 {
				t.Error("анкета не должна создаваться")
			}
			if env.store.storedFiles(t) != 0 {
				t.Error("файл не должен сохраняться при ошибке валидации")
			}
		})
	}
}

func TestFormServiceCreateInsertFailure(t *testing.T) {
	env := newTestEnv(t)
	env.forms.createErr = errors.New("соединение потеряно")

	_, err := env.formSvc.Create(context.Background(), env.applicant, validInput())
	if err == nil {
		t.Fatal("ожидалась ошибка")
	}
	if n := env.store.storedFiles(t); n != 0 {
		t.Errorf("после ошибки вставки осталось файлов: %d", n)
	}
}

func TestFormServiceCreateStorageFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.failSave = true

	_, err := env.formSvc.Create(context.Background(), env.applicant, validInput())
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("ожидалась ErrStorageUnavailable, получено %v", err)
	}
	if env.forms.count() != 0 {
		t.Error("анкета не должна создаваться без файла")
	}
}

func TestFormServiceOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.createForm(t, env.applicant, "QA", "Mestrado")

	if _, err := env.formSvc.Show(ctx, env.other, f.ID); !errors.Is(err, access.ErrForbidden) {
		t.Errorf("Show чужой анкеты: ожидалась ErrForbidden, получено %v", err)
	}
	if _, err := env.formSvc.Update(ctx, env.other, f.ID, validInput()); !errors.Is(err, access.ErrForbidden) {
		t.Errorf("Update чужой анкеты: ожидалась ErrForbidden, получено %v", err)
	}
	if err := env.formSvc.Delete(ctx, env.other, f.ID); !errors.Is(err, access.ErrForbidden) {
		t.Errorf("Delete чужой анкеты: ожидалась ErrForbidden, получено %v", err)
	}
	if _, err := env.formSvc.Show(ctx, env.admin, f.ID); !errors.Is(err, access.ErrForbidden) {
		t.Errorf("Show администратором: ожидалась ErrForbidden, получено %v", err)
	}
	if _, err := env.formSvc.Show(ctx, env.applicant, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Show несуществующей: ожидалась ErrNotFound, получено %v", err)
	}

	got, err := env.formSvc.Show(ctx, env.applicant, f.ID)
	if err != nil {
		t.Fatalf("Show своей анкеты: %v", err)
	}
	if got.Position != "QA" {
		t.Errorf("Position = %q, ожидалось QA", got.Position)
	}
	if !env.store.Exists(*f.CVPath) {
		t.Error("файл не должен затрагиваться чужими запросами")
	}
}

func TestFormServiceList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < PageSize+2; i++ {
		env.createForm(t, env.applicant, "Dev", "Mestrado")
	}
	env.createForm(t, env.other, "Outro", "Mestrado")

	page1, err := env.formSvc.List(ctx, env.applicant, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page1.Total != PageSize+2 || page1.LastPage != 2 || len(page1.Items) != PageSize {
		t.Errorf("страница 1: total=%d last=%d items=%d", page1.Total, page1.LastPage, len(page1.Items))
	}
	for i := 1; i < len(page1.Items); i++ {
		if page1.Items[i-1].CreatedAt.Before(page1.Items[i].CreatedAt) {
			t.Fatal("анкеты должны идти от новых к старым")
		}
	}
	for _, f := range page1.Items {
		if f.UserID != env.applicant.ID {
			t.Fatalf("в списке чужая анкета %d", f.ID)
		}
	}

	page2, err := env.formSvc.List(ctx, env.applicant, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page2.Items) != 2 || page2.HasNext() || !page2.HasPrev() {
		t.Errorf("страница 2: items=%d next=%v prev=%v", len(page2.Items), page2.HasNext(), page2.HasPrev())
	}

	// Номер страницы меньше 1 трактуется как первая
	page0, err := env.formSvc.List(ctx, env.applicant, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page0.Page != 1 {
		t.Errorf("Page = %d, ожидалась 1", page0.Page)
	}

	// Огромный номер страницы даёт пустой список без ошибки
	far, err := env.formSvc.List(ctx, env.applicant, 922337203685477581)
	if err != nil {
		t.Fatalf("List с огромной страницей: %v", err)
	}
	if len(far.Items) != 0 || far.Page != maxPage {
		t.Errorf("огромная страница: page=%d items=%d", far.Page, len(far.Items))
	}
}

func TestFormServiceUpdateKeepsFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.createForm(t, env.applicant, "Dev", "Mestrado")
	oldPath := *f.CVPath

	in := validInput()
	in.Position = "Tech Lead"
	in.Observations = "  disponível imediatamente "
	in.CV = nil

	got, err := env.formSvc.Update(ctx, env.applicant, f.ID, in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Position != "Tech Lead" {
		t.Errorf("Position = %q", got.Position)
	}
	if got.Observations == nil || *got.Observations != "disponível imediatamente" {
		t.Errorf("Observations = %v", got.Observations)
	}
	if got.CVPath == nil || *got.CVPath != oldPath {
		t.Errorf("CVPath = %v, ожидался прежний %q", got.CVPath, oldPath)
	}
	if !env.store.Exists(oldPath) {
		t.Error("прежний файл должен остаться")
	}
	if got.UserID != env.applicant.ID {
		t.Error("владелец не должен меняться")
	}
}

func TestFormServiceUpdateReplacesFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.createForm(t, env.applicant, "Dev", "Mestrado")
	oldPath := *f.CVPath

	in := validInput()
	in.CV = &Upload{Filename: "novo.docx", Data: docxSample(t)}

	got, err := env.formSvc.Update(ctx, env.applicant, f.ID, in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if *got.CVPath == oldPath || !strings.HasSuffix(*got.CVPath, ".docx") {
		t.Errorf("CVPath = %q, ожидался новый .docx", *got.CVPath)
	}
	if env.store.Exists(oldPath) {
		t.Error("прежний файл должен быть удалён")
	}
	if !env.store.Exists(*got.CVPath) {
		t.Error("новый файл должен существовать")
	}
	if n := env.store.storedFiles(t); n != 1 {
		t.Errorf("файлов в хранилище: %d, ожидался 1", n)
	}
}

func TestFormServiceUpdateFailureKeepsOldFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.createForm(t, env.applicant, "Dev", "Mestrado")
	oldPath := *f.CVPath
	env.forms.updateErr = errors.New("соединение потеряно")

	in := validInput()
	in.CV = &Upload{Filename: "novo.pdf", Data: pdfSample()}
	if _, err := env.formSvc.Update(ctx, env.applicant, f.ID, in); err == nil {
		t.Fatal("ожидалась ошибка")
	}

	if !env.store.Exists(oldPath) {
		t.Error("прежний файл должен остаться")
	}
	if n := env.store.storedFiles(t); n != 1 {
		t.Errorf("новый файл должен быть удалён, файлов: %d", n)
	}
}

func TestFormServiceUpdateValidation(t *testing.T) {
	env := newTestEnv(t)
	f := env.createForm(t, env.applicant, "Dev", "Mestrado")

	in := validInput()
	in.Education = "Pós-doutorado"
	in.CV = &Upload{Filename: "novo.pdf", Data: pdfSample()}

	_, err := env.formSvc.Update(context.Background(), env.applicant, f.ID, in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ожидалась ValidationError, получено %v", err)
	}
	if n := env.store.storedFiles(t); n != 1 {
		t.Errorf("новый файл не должен сохраняться, файлов: %d", n)
	}

	stored, _ := env.forms.GetByID(context.Background(), f.ID)
	if stored.Education != "Mestrado" {
		t.Errorf("запись не должна меняться, Education = %q", stored.Education)
	}
}

func TestFormServiceDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.createForm(t, env.applicant, "Dev", "Mestrado")

	if err := env.formSvc.Delete(ctx, env.applicant, f.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if env.store.Exists(*f.CVPath) {
		t.Error("файл должен быть удалён")
	}
	if env.forms.count() != 0 {
		t.Error("запись должна быть удалена")
	}

	if err := env.formSvc.Delete(ctx, env.applicant, f.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторное удаление: ожидалась ErrNotFound, получено %v", err)
	}
}

func TestFormServiceDeleteStorageFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.createForm(t, env.applicant, "Dev", "Mestrado")
	env.store.failDelete = true

	err := env.formSvc.Delete(ctx, env.applicant, f.ID)
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("ожидалась ErrStorageUnavailable, получено %v", err)
	}
	if env.forms.count() != 1 {
		t.Error("запись должна остаться, если файл не удалён")
	}
}

func TestFormServiceDeleteMissingFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.createForm(t, env.applicant, "Dev", "Mestrado")

	// Файл пропал из хранилища: удаление записи всё равно проходит
	if err := env.store.FileStore.Delete(*f.CVPath); err != nil {
		t.Fatalf("удаление файла: %v", err)
	}
	if err := env.formSvc.Delete(ctx, env.applicant, f.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if env.forms.count() != 0 {
		t.Error("запись должна быть удалена")
	}
}
