package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/mail"
	repo "storefront/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// ワンタイムコードの有効期限
const codeTTL = 15 * time.Minute

// アクセストークンの有効期限
const accessTokenTTL = 24 * time.Hour

// emailが既に使用済み
var ErrEmailAlreadyUsed = errors.New("email already used")

// 入力検証の約束。実装はvalidatorパッケージ。
type AuthValidator interface {
	ValidateRegister(ctx context.Context, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
	ValidateCode(ctx context.Context, email string, code string) error
	ValidatePasswordReset(ctx context.Context, email string, code string, newPassword string) error
}

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

// bcryptハッシュ化
type BcryptPasswordHasher struct {
	cost int
}

// DI
func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{cost}
}

// bcryptでハッシュ化
func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// bcryptハッシュと平文を比較
type BcryptPasswordVerifier struct{}

// DI
func NewBcryptPasswordVerifier() *BcryptPasswordVerifier {
	return &BcryptPasswordVerifier{}
}

// 平文(plain)をbcryptで比較
func (v *BcryptPasswordVerifier) Verify(plain string, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	return err == nil
}

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(userID int64, role model.Role, now time.Time) (token string, expiresAt time.Time, err error)
}

type JWTIssuer struct {
	secret []byte
}

func NewJWTIssuer(secret string) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret)}
}

// HS256で署名。subはユーザーIDの10進文字列。
func (i *JWTIssuer) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(accessTokenTTL)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(userID, 10),
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

type AuthUsecase struct {
	users     repo.UserRepository
	codes     repo.CodeStore
	validator AuthValidator
	hasher    PasswordHasher
	verifier  PasswordVerifier
	issuer    AccessTokenIssuer
	mailer    mail.Mailer
}

func NewAuthUsecase(
	users repo.UserRepository,
	codes repo.CodeStore,
	validator AuthValidator,
	hasher PasswordHasher,
	verifier PasswordVerifier,
	issuer AccessTokenIssuer,
	mailer mail.Mailer,
) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		codes:     codes,
		validator: validator,
		hasher:    hasher,
		verifier:  verifier,
		issuer:    issuer,
		mailer:    mailer,
	}
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

type UserOutput struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// Register は会員登録。ユーザーはメール認証が済むまでIsActive=false。
// 認証コードのメールが送れなければ登録ごと失敗にする（コードが届かない
// アカウントは永久に有効化できないため）。
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (UserOutput, error) {
	if err := u.validator.ValidateRegister(ctx, in.Email, in.Password); err != nil {
		if errors.Is(err, ErrEmailAlreadyUsed) {
			return UserOutput{}, NewHTTPError(http.StatusConflict, "email already used")
		}
		return UserOutput{}, NewHTTPError(http.StatusBadRequest, "invalid input")
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := &model.User{
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hashed,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         model.RoleUser,
		IsActive:     false,
	}
	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return UserOutput{}, NewHTTPError(http.StatusConflict, "email already used")
		}
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	code, err := newSixDigitCode()
	if err != nil {
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := u.codes.Set(ctx, repo.CodeKindEmailVerify, user.Email, code, codeTTL); err != nil {
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := u.mailer.Send(user.Email, "Verify your email",
		fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(codeTTL.Minutes()))); err != nil {
		log.Printf("auth: verification mail failed for %s: %v", user.Email, err)
		return UserOutput{}, NewHTTPError(http.StatusBadGateway, "could not send verification email")
	}

	return toUserOutput(user), nil
}

// VerifyEmail はワンタイムコードの照合とアカウント有効化。
func (u *AuthUsecase) VerifyEmail(ctx context.Context, email string, code string) error {
	if err := u.validator.ValidateCode(ctx, email, code); err != nil {
		return NewHTTPError(http.StatusBadRequest, "invalid input")
	}
	email = strings.TrimSpace(email)

	stored, err := u.codes.Get(ctx, repo.CodeKindEmailVerify, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusBadRequest, "invalid or expired code")
		}
		return NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if stored != code {
		return NewHTTPError(http.StatusBadRequest, "invalid or expired code")
	}

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if user == nil {
		return NewHTTPError(http.StatusBadRequest, "invalid or expired code")
	}

	if !user.IsActive {
		user.IsActive = true
		if err := u.users.Update(ctx, user); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	//使い終わったコードは消す
	if err := u.codes.Delete(ctx, repo.CodeKindEmailVerify, email); err != nil {
		log.Printf("auth: code cleanup failed for %s: %v", email, err)
	}
	return nil
}

type LoginOutput struct {
	User        UserOutput `json:"user"`
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// Login はメール・パスワードの照合とJWT発行。
// ユーザーが見つからない場合もパスワード不一致と同じ応答にする。
func (u *AuthUsecase) Login(ctx context.Context, email string, password string) (LoginOutput, error) {
	if err := u.validator.ValidateLogin(ctx, email, password); err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusBadRequest, "invalid input")
	}
	email = strings.TrimSpace(email)

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if user == nil {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if !user.IsActive {
		return LoginOutput{}, NewHTTPError(http.StatusForbidden, "account not verified")
	}
	if !u.verifier.Verify(password, user.PasswordHash) {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	now := time.Now()
	token, expiresAt, err := u.issuer.Issue(user.ID, user.Role, now)
	if err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		log.Printf("auth: last login update failed for user %d: %v", user.ID, err)
	}

	return LoginOutput{
		User:        toUserOutput(user),
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

// RequestPasswordReset はパスワード再設定コードの発行。
// アカウントの有無は応答から判別できないようにする（列挙対策）。
func (u *AuthUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid input")
	}

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if user == nil {
		return nil
	}

	code, err := newSixDigitCode()
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := u.codes.Set(ctx, repo.CodeKindPasswordReset, email, code, codeTTL); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := u.mailer.Send(email, "Password reset",
		fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", code, int(codeTTL.Minutes()))); err != nil {
		log.Printf("auth: reset mail failed for %s: %v", email, err)
		return NewHTTPError(http.StatusBadGateway, "could not send reset email")
	}
	return nil
}

// ConfirmPasswordReset はコード照合とパスワード更新。
func (u *AuthUsecase) ConfirmPasswordReset(ctx context.Context, email string, code string, newPassword string) error {
	if err := u.validator.ValidatePasswordReset(ctx, email, code, newPassword); err != nil {
		return NewHTTPError(http.StatusBadRequest, "invalid input")
	}
	email = strings.TrimSpace(email)

	stored, err := u.codes.Get(ctx, repo.CodeKindPasswordReset, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusBadRequest, "invalid or expired code")
		}
		return NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if stored != code {
		return NewHTTPError(http.StatusBadRequest, "invalid or expired code")
	}

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if user == nil {
		return NewHTTPError(http.StatusBadRequest, "invalid or expired code")
	}

	hashed, err := u.hasher.Hash(newPassword)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	user.PasswordHash = hashed
	if err := u.users.Update(ctx, user); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.codes.Delete(ctx, repo.CodeKindPasswordReset, email); err != nil {
		log.Printf("auth: code cleanup failed for %s: %v", email, err)
	}
	return nil
}

// GetMe は自分のプロフィール。
func (u *AuthUsecase) GetMe(ctx context.Context, userID int64) (UserOutput, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if user == nil {
		return UserOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return toUserOutput(user), nil
}

func toUserOutput(user *model.User) UserOutput {
	return UserOutput{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Phone:    user.Phone,
		Role:     string(user.Role),
		IsActive: user.IsActive,
	}
}

// 000000-999999のゼロ埋め6桁
func newSixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
