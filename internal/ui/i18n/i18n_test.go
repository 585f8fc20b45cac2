package i18n

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
)

func testBundle(t *testing.T, defaultLang string) *Bundle {
	t.Helper()
	b, err := Load(defaultLang, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}
	return b
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	b := testBundle(t, LangPT)
	for lang, keys := range b.missingKeys() {
		t.Errorf("в каталоге %s нет ключей %v", lang, keys)
	}
}

func TestLoadFS(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fsys := fstest.MapFS{
		"locales/pt.json": {Data: []byte(`{"hello": "Olá", "bye": "Tchau"}`)},
		"locales/en.json": {Data: []byte(`{"hello": "Hello"}`)},
	}

	b, err := LoadFS(fsys, LangEN, logger)
	if err != nil {
		t.Fatalf("LoadFS() ошибка: %v", err)
	}
	if got := b.Translate(LangEN, "hello"); got != "Hello" {
		t.Errorf("Translate(en, hello) = %q", got)
	}
	missing := b.missingKeys()
	if len(missing) != 1 || len(missing[LangEN]) != 1 || missing[LangEN][0] != "bye" {
		t.Errorf("missingKeys() = %v, ожидали en: [bye]", missing)
	}

	delete(fsys, "locales/en.json")
	if _, err := LoadFS(fsys, LangPT, logger); err == nil {
		t.Error("ожидали ошибку без en.json")
	}

	fsys["locales/en.json"] = &fstest.MapFile{Data: []byte(`не json`)}
	if _, err := LoadFS(fsys, LangPT, logger); err == nil {
		t.Error("ожидали ошибку разбора каталога")
	}
}

func TestTranslate(t *testing.T) {
	b := testBundle(t, LangPT)

	if got := b.Translate(LangPT, "form.created"); got != "Formulário enviado com sucesso!" {
		t.Errorf("pt form.created = %q", got)
	}
	if got := b.Translate(LangEN, "form.deleted"); got != "Form deleted successfully!" {
		t.Errorf("en form.deleted = %q", got)
	}
	// Неизвестный язык — язык по умолчанию
	if got := b.Translate("de", "form.updated"); got != "Formulário atualizado com sucesso!" {
		t.Errorf("de form.updated = %q", got)
	}
	// Неизвестный ключ возвращается как есть
	if got := b.Translate(LangPT, "no.such.key"); got != "no.such.key" {
		t.Errorf("неизвестный ключ = %q", got)
	}

	ctx := WithLang(context.Background(), LangEN)
	if got := b.Tf(ctx, "validation.max", "name", 255); got != "The name field must not be greater than 255 characters." {
		t.Errorf("Tf = %q", got)
	}
	if got := b.T(context.Background(), "validation.failed"); got != "Os dados fornecidos são inválidos." {
		t.Errorf("T без языка в контексте = %q", got)
	}
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		defaultLang string
		accept      string
		want        string
	}{
		{LangPT, "pt-BR,pt;q=0.9", LangPT},
		{LangPT, "en-US,en;q=0.9", LangEN},
		{LangPT, "ja-JP", LangPT},
		{LangEN, "ja-JP", LangEN},
		{LangEN, "pt-PT", LangPT},
	}
	for _, tt := range tests {
		t.Run(tt.defaultLang+"/"+tt.accept, func(t *testing.T) {
			b := NewBundle(tt.defaultLang, nil)
			if got := b.MatchLanguage(tt.accept); got != tt.want {
				t.Errorf("MatchLanguage(%q) = %q, хотели %q", tt.accept, got, tt.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	b := testBundle(t, LangPT)

	var got string
	h := b.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LangFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		cookie string
		accept string
		want   string
	}{
		{"cookie приоритетнее заголовка", LangEN, "pt-BR", LangEN},
		{"некорректный cookie игнорируется", "ru", "en", LangEN},
		{"заголовок", "", "en-GB", LangEN},
		{"по умолчанию", "", "", LangPT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: LangCookieName, Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("язык = %q, хотели %q", got, tt.want)
			}
		})
	}
}
