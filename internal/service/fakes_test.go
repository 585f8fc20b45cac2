package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/intake-portal/internal/domain/access"
	"github.com/bigkaa/intake-portal/internal/domain/model"
	"github.com/bigkaa/intake-portal/internal/domain/role"
	"github.com/bigkaa/intake-portal/internal/repository"
	"github.com/bigkaa/intake-portal/internal/storage/filestore"
	"github.com/bigkaa/intake-portal/internal/ui/i18n"
)

// testEpoch — время создания первой анкеты в тестовом репозитории.
var testEpoch = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// --- In-memory репозиторий анкет ---

type memForms struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.ApplicationForm
	users  *memUsers

	createErr error
	updateErr error
	deleteErr error
}

func newMemForms(users *memUsers) *memForms {
	return &memForms{rows: make(map[int64]*model.ApplicationForm), users: users}
}

func (m *memForms) Create(_ context.Context, f *model.ApplicationForm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	f.ID = m.nextID
	f.CreatedAt = testEpoch.Add(time.Duration(f.ID) * time.Minute)
	f.UpdatedAt = f.CreatedAt
	cp := *f
	m.rows[f.ID] = &cp
	return nil
}

func (m *memForms) GetByID(_ context.Context, id int64) (*model.ApplicationForm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memForms) GetWithOwner(ctx context.Context, id int64) (*model.FormWithOwner, error) {
	f, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.withOwner(f), nil
}

func (m *memForms) Update(_ context.Context, f *model.ApplicationForm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	cur, ok := m.rows[f.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cp := *f
	cp.UserID = cur.UserID
	cp.CreatedAt = cur.CreatedAt
	cp.UpdatedAt = cur.UpdatedAt.Add(time.Second)
	m.rows[f.ID] = &cp
	f.UpdatedAt = cp.UpdatedAt
	return nil
}

func (m *memForms) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memForms) ListByOwner(_ context.Context, userID int64, limit, offset int) ([]*model.ApplicationForm, error) {
	var out []*model.ApplicationForm
	for _, f := range m.sorted() {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return window(out, limit, offset), nil
}

func (m *memForms) CountByOwner(ctx context.Context, userID int64) (int, error) {
	all, _ := m.ListByOwner(ctx, userID, 0, 0)
	return len(all), nil
}

func (m *memForms) List(_ context.Context, filters repository.FormFilters, limit, offset int) ([]*model.FormWithOwner, error) {
	return window(m.filtered(filters), limit, offset), nil
}

func (m *memForms) Count(_ context.Context, filters repository.FormFilters) (int, error) {
	return len(m.filtered(filters)), nil
}

func (m *memForms) Each(_ context.Context, filters repository.FormFilters, fn func(*model.FormWithOwner) error) error {
	for _, fw := range m.filtered(filters) {
		if err := fn(fw); err != nil {
			return err
		}
	}
	return nil
}

func (m *memForms) CountSince(_ context.Context, since time.Time) (total, recent int64, err error) {
	for _, f := range m.sorted() {
		total++
		if !f.CreatedAt.Before(since) {
			recent++
		}
	}
	return total, recent, nil
}

// sorted возвращает копии анкет: новые первыми, при равенстве больший ID первым.
func (m *memForms) sorted() []*model.ApplicationForm {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ApplicationForm, 0, len(m.rows))
	for _, f := range m.rows {
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *memForms) filtered(filters repository.FormFilters) []*model.FormWithOwner {
	var out []*model.FormWithOwner
	for _, f := range m.sorted() {
		if filters.UserID != nil && f.UserID != *filters.UserID {
			continue
		}
		if filters.Position != nil && !containsFold(f.Position, *filters.Position) {
			continue
		}
		if filters.Education != nil && !containsFold(f.Education, *filters.Education) {
			continue
		}
		out = append(out, m.withOwner(f))
	}
	return out
}

func (m *memForms) withOwner(f *model.ApplicationForm) *model.FormWithOwner {
	fw := &model.FormWithOwner{ApplicationForm: *f}
	if u, err := m.users.GetByID(context.Background(), f.UserID); err == nil {
		fw.Owner = u.Summary()
	}
	return fw
}

func (m *memForms) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// --- In-memory репозиторий пользователей ---

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.User
}

func newMemUsers() *memUsers {
	return &memUsers{rows: make(map[int64]*model.User)}
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !u.Role.Valid() {
		return role.ErrInvalidRole
	}
	for _, existing := range m.rows {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrConflict
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = testEpoch
	u.UpdatedAt = testEpoch
	cp := *u
	m.rows[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) ListByRole(_ context.Context, r role.Role) ([]model.OwnerSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.OwnerSummary
	for _, u := range m.rows {
		if u.Role == r {
			out = append(out, u.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memUsers) CountByRole(ctx context.Context, r role.Role) (int64, error) {
	list, _ := m.ListByRole(ctx, r)
	return int64(len(list)), nil
}

// --- Хранилище с инъекцией ошибок ---

var errDiskGone = errors.New("диск недоступен")

// flakyStore — обёртка над FileStore, возвращающая ошибки по флагам.
type flakyStore struct {
	*filestore.FileStore
	failSave   bool
	failDelete bool
	failOpen   bool
}

func (s *flakyStore) Save(r io.Reader, ext string) (*filestore.SaveResult, error) {
	if s.failSave {
		return nil, errDiskGone
	}
	return s.FileStore.Save(r, ext)
}

func (s *flakyStore) Delete(path string) error {
	if s.failDelete {
		return errDiskGone
	}
	return s.FileStore.Delete(path)
}

func (s *flakyStore) Open(path string) (*os.File, fs.FileInfo, error) {
	if s.failOpen {
		return nil, nil, errDiskGone
	}
	return s.FileStore.Open(path)
}

// storedFiles возвращает число файлов в каталоге резюме.
func (s *flakyStore) storedFiles(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(s.Root() + "/" + filestore.CVDir)
	if err != nil {
		t.Fatalf("чтение каталога резюме: %v", err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			n++
		}
	}
	return n
}

// --- Окружение тестов ---

type testEnv struct {
	forms     *memForms
	users     *memUsers
	store     *flakyStore
	validator *Validator
	formSvc   *FormService
	reviewSvc *ReviewService
	accounts  *AccountService

	admin     *access.Caller
	applicant *access.Caller
	other     *access.Caller
}

const testMaxUpload = 64 * 1024

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	bundle, err := i18n.Load(i18n.LangPT, testLogger())
	if err != nil {
		t.Fatalf("i18n.Load: %v", err)
	}
	fstore, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("filestore.New: %v", err)
	}

	users := newMemUsers()
	forms := newMemForms(users)
	store := &flakyStore{FileStore: fstore}
	v := NewValidator(bundle, testMaxUpload)

	env := &testEnv{
		forms:     forms,
		users:     users,
		store:     store,
		validator: v,
		formSvc:   NewFormService(forms, store, v, testLogger()),
		reviewSvc: NewReviewService(forms, users, store, testLogger()),
		accounts:  NewAccountService(users, v, testLogger()),
	}
	env.accounts.hashCost = 4

	env.admin = env.addUser(t, "Administrador", "admin@example.com", role.Admin)
	env.applicant = env.addUser(t, "Ana Souza", "ana@example.com", role.Applicant)
	env.other = env.addUser(t, "Bruno Lima", "bruno@example.com", role.Applicant)
	return env
}

func (e *testEnv) addUser(t *testing.T, name, email string, r role.Role) *access.Caller {
	t.Helper()
	u := &model.User{Name: name, Email: email, PasswordHash: "x", Role: r}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("создание пользователя %s: %v", email, err)
	}
	return &access.Caller{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// createForm создаёт анкету кандидата через сервис.
func (e *testEnv) createForm(t *testing.T, caller *access.Caller, position, education string) *model.ApplicationForm {
	t.Helper()
	in := validInput()
	in.Position = position
	in.Education = education
	f, err := e.formSvc.Create(context.Background(), caller, in)
	if err != nil {
		t.Fatalf("создание анкеты: %v", err)
	}
	return f
}

// --- Образцы вложений ---

func pdfSample() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
}

func docxSample(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := []struct{ name, body string }{
		{"[Content_Types].xml", `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		{"_rels/.rels", `<?xml version="1.0"?><Relationships/>`},
		{"word/document.xml", `<?xml version="1.0"?><w:document/>`},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatalf("zip: %v", err)
		}
		if _, err := w.Write([]byte(f.body)); err != nil {
			t.Fatalf("zip: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip: %v", err)
	}
	return buf.Bytes()
}

func validInput() FormInput {
	return FormInput{
		Name:      "Ana Souza",
		Email:     "ana@example.com",
		Phone:     "+55 11 99999-0000",
		Position:  "Desenvolvedora Backend",
		Education: "Bacharelado em Ciência da Computação",
		CV:        &Upload{Filename: "cv.pdf", Data: pdfSample()},
	}
}
