// validation.go — проверка входных данных анкет и регистрации.
// Правила полей описаны тегами go-playground/validator, тип вложения
// определяется по содержимому (mimetype), а не по имени файла.
// Длины строк считаются в символах.
package service

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/bigkaa/intake-portal/internal/domain/model"
	"github.com/bigkaa/intake-portal/internal/ui/i18n"
)

// Имена полей в ответах валидации.
const (
	FieldName         = "name"
	FieldEmail        = "email"
	FieldPhone        = "phone"
	FieldPosition     = "position"
	FieldEducation    = "education"
	FieldObservations = "observations"
	FieldCV           = "cv_file"
	FieldPassword     = "password"
)

// allowedCVTypes — допустимые MIME-типы резюме и расширения файлов в хранилище.
var allowedCVTypes = []struct {
	mime string
	ext  string
}{
	{"application/pdf", ".pdf"},
	{"application/msword", ".doc"},
	{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", ".docx"},
}

// FormInput — данные анкеты из запроса.
type FormInput struct {
	Name         string
	Email        string
	Phone        string
	Position     string
	Education    string
	Observations string
	// CV — загруженное резюме, nil если файл не передан
	CV *Upload
}

// Upload — загруженный файл.
type Upload struct {
	// Filename — имя файла у клиента (только для логов)
	Filename string
	// Data — содержимое. Вызывающий читает не больше лимита + 1 байт,
	// поэтому превышение лимита видно по длине.
	Data []byte
}

// RegisterInput — данные регистрации кандидата.
type RegisterInput struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

// formFields — проверяемые поля анкеты.
type formFields struct {
	Name      string `json:"name" validate:"required,max=255"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
	Position  string `json:"position" validate:"required,max=255"`
	Education string `json:"education" validate:"required,education"`
}

// registerFields — проверяемые поля регистрации.
type registerFields struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8,max=255"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
}

// validForm — анкета после успешной валидации.
type validForm struct {
	name         string
	email        string
	phone        *string
	position     string
	education    string
	observations *string
	cv           *sniffedFile
}

// apply переносит проверенные поля в запись. Владелец и вложение не меняются.
func (v *validForm) apply(f *model.ApplicationForm) {
	f.Name = v.name
	f.Email = v.email
	f.Phone = v.phone
	f.Position = v.position
	f.Education = v.education
	f.Observations = v.observations
}

// sniffedFile — вложение с типом, определённым по содержимому.
type sniffedFile struct {
	data        []byte
	contentType string
	ext         string
}

// Validator — валидатор входных данных с локализованными сообщениями.
type Validator struct {
	v              *validator.Validate
	bundle         *i18n.Bundle
	maxUploadBytes int64
}

// NewValidator создаёт валидатор. maxUploadBytes — предельный размер резюме.
func NewValidator(bundle *i18n.Bundle, maxUploadBytes int64) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// В ошибках используем имена полей из json-тегов
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// Ошибка регистрации возможна только при пустом имени тега
	_ = v.RegisterValidation("education", func(fl validator.FieldLevel) bool {
		return model.IsEducationLevel(fl.Field().String())
	})

	return &Validator{v: v, bundle: bundle, maxUploadBytes: maxUploadBytes}
}

// ValidateForm проверяет анкету. cvRequired — резюме обязательно (создание).
// Возвращает *ValidationError со всеми непрошедшими полями.
func (val *Validator) ValidateForm(ctx context.Context, in FormInput, cvRequired bool) (*validForm, error) {
	fields := formFields{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Position:  strings.TrimSpace(in.Position),
		Education: strings.TrimSpace(in.Education),
	}

	errs := val.structErrors(ctx, fields)

	var cv *sniffedFile
	switch {
	case in.CV == nil && cvRequired:
		errs[FieldCV] = val.bundle.Tf(ctx, "validation.required", val.fieldLabel(ctx, FieldCV))
	case in.CV != nil:
		var msg string
		cv, msg = val.sniffCV(ctx, in.CV)
		if msg != "" {
			errs[FieldCV] = msg
		}
	}

	if len(errs) > 0 {
		return nil, val.fail(errs)
	}

	return &validForm{
		name:         fields.Name,
		email:        fields.Email,
		phone:        optional(fields.Phone),
		position:     fields.Position,
		education:    fields.Education,
		observations: optional(strings.TrimSpace(in.Observations)),
		cv:           cv,
	}, nil
}

// ValidateRegistration проверяет данные регистрации.
func (val *Validator) ValidateRegistration(ctx context.Context, in RegisterInput) error {
	errs := val.structErrors(ctx, registerFields{
		Name:                 strings.TrimSpace(in.Name),
		Email:                strings.TrimSpace(in.Email),
		Password:             in.Password,
		PasswordConfirmation: in.PasswordConfirmation,
	})
	if len(errs) > 0 {
		return val.fail(errs)
	}
	return nil
}

// structErrors запускает проверку тегов и собирает сообщения по полям.
func (val *Validator) structErrors(ctx context.Context, s any) map[string]string {
	errs := make(map[string]string)

	err := val.v.Struct(s)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs["_"] = val.bundle.T(ctx, "validation.failed")
		return errs
	}

	for _, fe := range verrs {
		field := fe.Field()
		if fe.Tag() == "eqfield" {
			// Несовпадение подтверждения — ошибка поля пароля
			field = FieldPassword
		}
		if _, exists := errs[field]; exists {
			continue
		}
		errs[field] = val.message(ctx, field, fe)
	}
	return errs
}

// message возвращает локализованное сообщение для ошибки поля.
func (val *Validator) message(ctx context.Context, field string, fe validator.FieldError) string {
	label := val.fieldLabel(ctx, field)

	switch fe.Tag() {
	case "required":
		return val.bundle.Tf(ctx, "validation.required", label)
	case "email":
		return val.bundle.Tf(ctx, "validation.email", label)
	case "max":
		n, _ := strconv.Atoi(fe.Param())
		return val.bundle.Tf(ctx, "validation.max", label, n)
	case "min":
		n, _ := strconv.Atoi(fe.Param())
		return val.bundle.Tf(ctx, "validation.min", label, n)
	case "education":
		return val.bundle.Tf(ctx, "validation.education", label)
	case "eqfield":
		return val.bundle.Tf(ctx, "validation.confirmed", label)
	default:
		return val.bundle.T(ctx, "validation.failed")
	}
}

// sniffCV проверяет размер и тип резюме по содержимому.
// Возвращает сообщение об ошибке или пустую строку.
func (val *Validator) sniffCV(ctx context.Context, up *Upload) (*sniffedFile, string) {
	label := val.fieldLabel(ctx, FieldCV)

	if int64(len(up.Data)) > val.maxUploadBytes {
		return nil, val.bundle.Tf(ctx, "validation.file_max", label, val.maxUploadBytes/1024)
	}

	mt := mimetype.Detect(up.Data)
	for _, allowed := range allowedCVTypes {
		if mt.Is(allowed.mime) {
			return &sniffedFile{data: up.Data, contentType: allowed.mime, ext: allowed.ext}, ""
		}
	}
	return nil, val.bundle.Tf(ctx, "validation.file_mimes", label)
}

func (val *Validator) fieldLabel(ctx context.Context, field string) string {
	return val.bundle.T(ctx, "field."+field)
}

// fail учитывает ошибки в метриках и собирает ValidationError.
func (val *Validator) fail(errs map[string]string) error {
	for field := range errs {
		validationFailuresTotal.WithLabelValues(field).Inc()
	}
	return &ValidationError{Fields: errs}
}

// optional возвращает nil для пустой строки.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ContentTypeForPath возвращает MIME-тип вложения по расширению пути в хранилище.
func ContentTypeForPath(path string) string {
	for _, allowed := range allowedCVTypes {
		if strings.HasSuffix(strings.ToLower(path), allowed.ext) {
			return allowed.mime
		}
	}
	return "application/octet-stream"
}
