package validator

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"storefront/internal/repository"
	"storefront/internal/usecase"
)

// 入力が不正
var ErrInvalidInput = errors.New("invalid input")

type authValidator struct {
	users repository.UserRepository
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	// 必須チェック
	if email == "" || password == "" {
		return ErrInvalidInput
	}

	// email形式
	if !isEmailLike(email) {
		return ErrInvalidInput
	}

	// パスワード最低文字数（MVP: 8）
	if len(password) < 8 {
		return ErrInvalidInput
	}

	// email重複チェック（DBが必要）
	u, err := v.users.FindByEmail(ctx, email)
	if err == nil && u != nil {
		return usecase.ErrEmailAlreadyUsed
	}

	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	// 必須チェック
	if email == "" || password == "" {
		return ErrInvalidInput
	}

	// email形式
	if !isEmailLike(email) {
		return ErrInvalidInput
	}

	return nil
}

// ワンタイムコード入力を検証（6桁数字）
func (v *authValidator) ValidateCode(ctx context.Context, email string, code string) error {
	if strings.TrimSpace(email) == "" || !isEmailLike(strings.TrimSpace(email)) {
		return ErrInvalidInput
	}
	if !isSixDigits(code) {
		return ErrInvalidInput
	}
	return nil
}

// パスワード再設定の入力を検証
func (v *authValidator) ValidatePasswordReset(ctx context.Context, email string, code string, newPassword string) error {
	if err := v.ValidateCode(ctx, email, code); err != nil {
		return err
	}
	if len(newPassword) < 8 {
		return ErrInvalidInput
	}
	return nil
}

// 簡易メール形式をチェック
func isEmailLike(s string) bool {
	re := regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	return re.MatchString(s)
}

func isSixDigits(s string) bool {
	re := regexp.MustCompile(`^[0-9]{6}$`)
	return re.MatchString(s)
}
