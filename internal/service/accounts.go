// accounts.go — учётные записи: вход по паролю, регистрация кандидатов
// и начальное заполнение пользователей.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/bigkaa/intake-portal/internal/domain/model"
	"github.com/bigkaa/intake-portal/internal/domain/role"
	"github.com/bigkaa/intake-portal/internal/repository"
)

// dummyHash — хэш для сравнения при неизвестном email, чтобы время ответа
// не выдавало существование учётной записи.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("intake-portal-dummy"), bcrypt.DefaultCost)

// AccountService — учётные записи портала.
type AccountService struct {
	users     repository.UserRepository
	validator *Validator
	hashCost  int
	// inTx выполняет fn над репозиторием пользователей в транзакции (если настроена)
	inTx   func(ctx context.Context, fn func(users repository.UserRepository) error) error
	logger *slog.Logger
}

// NewAccountService создаёт сервис учётных записей.
func NewAccountService(users repository.UserRepository, validator *Validator, logger *slog.Logger) *AccountService {
	s := &AccountService{
		users:     users,
		validator: validator,
		hashCost:  bcrypt.DefaultCost,
		logger:    logger.With(slog.String("component", "account_service")),
	}
	s.inTx = func(ctx context.Context, fn func(repository.UserRepository) error) error {
		return fn(s.users)
	}
	return s
}

// WithTransactions включает транзакции для многошаговых операций (Seed).
func (s *AccountService) WithTransactions(runner *repository.TxRunner) *AccountService {
	s.inTx = func(ctx context.Context, fn func(repository.UserRepository) error) error {
		return runner.RunInTx(ctx, func(tx pgx.Tx) error {
			return fn(repository.NewUserRepository(tx))
		})
	}
	return s
}

// Authenticate проверяет email и пароль.
// Неизвестный email и неверный пароль неразличимы: ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			loginAttemptsTotal.WithLabelValues("failure").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("поиск пользователя: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		loginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	loginAttemptsTotal.WithLabelValues("success").Inc()
	return u, nil
}

// Register создаёт учётную запись кандидата. Роль всегда applicant.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if err := s.validator.ValidateRegistration(ctx, in); err != nil {
		return nil, err
	}

	u, err := s.newUser(strings.TrimSpace(in.Name), strings.TrimSpace(in.Email), in.Password, role.Applicant, nil)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("регистрация: %w", err)
	}

	s.logger.Info("Кандидат зарегистрирован", slog.Int64("user_id", u.ID))
	return u, nil
}

// GetUser возвращает пользователя по ID.
func (s *AccountService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return u, nil
}

// SeedAccount — учётная запись для начального заполнения.
type SeedAccount struct {
	Name     string
	Email    string
	Password string
	Role     role.Role
}

// DefaultSeedAccounts возвращает администратора и тестового кандидата.
func DefaultSeedAccounts(adminEmail, adminPassword, applicantEmail, applicantPassword string) []SeedAccount {
	return []SeedAccount{
		{Name: "Administrador", Email: adminEmail, Password: adminPassword, Role: role.Admin},
		{Name: "Candidato Exemplo", Email: applicantEmail, Password: applicantPassword, Role: role.Applicant},
	}
}

// Seed создаёт отсутствующие учётные записи. Существующие не изменяются.
// Возвращает email созданных записей.
func (s *AccountService) Seed(ctx context.Context, accounts []SeedAccount) ([]string, error) {
	for _, a := range accounts {
		if a.Email == "" || a.Password == "" {
			return nil, fmt.Errorf("seed: для %q не задан email или пароль", a.Name)
		}
		if !a.Role.Valid() {
			return nil, fmt.Errorf("seed %s: %w", a.Email, role.ErrInvalidRole)
		}
	}

	var created []string
	err := s.inTx(ctx, func(users repository.UserRepository) error {
		created = created[:0]
		for _, a := range accounts {
			_, err := users.GetByEmail(ctx, a.Email)
			if err == nil {
				s.logger.Info("Пользователь уже существует", slog.String("email", a.Email))
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("seed %s: %w", a.Email, err)
			}

			now := time.Now()
			u, err := s.newUser(a.Name, a.Email, a.Password, a.Role, &now)
			if err != nil {
				return err
			}
			if err := users.Create(ctx, u); err != nil {
				return fmt.Errorf("seed %s: %w", a.Email, err)
			}
			created = append(created, a.Email)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Начальные пользователи созданы", slog.Int("created", len(created)))
	return created, nil
}

// newUser хэширует пароль и собирает пользователя.
func (s *AccountService) newUser(name, email, password string, r role.Role, verifiedAt *time.Time) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("хэширование пароля: %w", err)
	}
	return &model.User{
		Name:            name,
		Email:           email,
		PasswordHash:    string(hash),
		Role:            r,
		EmailVerifiedAt: verifiedAt,
	}, nil
}
