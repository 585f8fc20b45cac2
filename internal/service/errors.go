// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bigkaa/intake-portal/internal/repository"
)

var (
	// ErrNotFound — анкета, пользователь или вложение не найдены.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrStorageUnavailable — файловое хранилище вложений недоступно.
	ErrStorageUnavailable = errors.New("хранилище вложений недоступно")
	// ErrInvalidCredentials — неверный email или пароль.
	ErrInvalidCredentials = errors.New("неверные учётные данные")
	// ErrEmailTaken — email уже зарегистрирован.
	ErrEmailTaken = errors.New("email уже используется")
)

// ValidationError — входные данные не прошли валидацию.
// Fields содержит ровно те поля, которые не прошли проверку: поле → сообщение.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("ошибка валидации: %s", strings.Join(names, ", "))
}

// mapRepoErr переводит ошибки репозитория в ошибки сервисного слоя.
func mapRepoErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
