package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// セッション（token+user）の有効期限
const SessionTTL = 24 * time.Hour

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
}

type UserDTO struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
}

type AuthRegisterInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

// tokenとuserは必ずセットで返す（片方だけは無い）。
type AuthLoginResponse struct {
	Token     string  `json:"token"`
	ExpiresIn int     `json:"expires_in"`
	User      UserDTO `json:"user"`
}

type MeResponse struct {
	User            UserDTO `json:"user"`
	IsAuthenticated bool    `json:"is_authenticated"`
	IsAdmin         bool    `json:"is_admin"`
}

type AuthUsecase struct {
	cfg       config.Config
	users     repo.UserRepository
	sessions  repo.SessionStore
	validator AuthValidator
}

func NewAuthUsecase(
	cfg config.Config,
	users repo.UserRepository,
	sessions repo.SessionStore,
	validator AuthValidator,
) *AuthUsecase {
	return &AuthUsecase{
		cfg:       cfg,
		users:     users,
		sessions:  sessions,
		validator: validator,
	}
}

// Register は会員登録。成功したらそのままログイン扱いにする。
func (u *AuthUsecase) Register(ctx context.Context, in AuthRegisterInput) (AuthLoginResponse, error) {
	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateRegister(ctx, in.Email, in.Password); err != nil {
		//collaboratorのメッセージはそのまま返す
		return AuthLoginResponse{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthLoginResponse{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	now := time.Now()
	user := &model.User{
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(pwHash),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := u.users.Create(ctx, user); err != nil {
		return AuthLoginResponse{}, NewHTTPError(http.StatusConflict, "email already used")
	}

	return u.startSession(ctx, user)
}

// Login はログイン。成功でセッション（token+user）を書き込む。
func (u *AuthUsecase) Login(ctx context.Context, email string, password string) (AuthLoginResponse, error) {
	if err := u.validator.ValidateLogin(ctx, email, password); err != nil {
		return AuthLoginResponse{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil || user == nil {
		return AuthLoginResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return AuthLoginResponse{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	//パスワード照合（bcrypt）
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AuthLoginResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//last_login更新
	now := time.Now()
	user.LastLoginAt = &now
	_ = u.users.Update(ctx, user)

	return u.startSession(ctx, user)
}

// Logout はセッションを破棄する。
// カートは消さない（次回ログインで同じユーザーのカートが戻る）。
func (u *AuthUsecase) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := u.sessions.Delete(ctx, token); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return nil
}

// Me はセッションの現在ユーザーを返す。
func (u *AuthUsecase) Me(ctx context.Context, token string) (MeResponse, error) {
	if strings.TrimSpace(token) == "" {
		return MeResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.sessions.Find(ctx, token)
	if err == repo.ErrSessionNotFound {
		return MeResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err != nil {
		return MeResponse{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return MeResponse{
		User:            toUserDTO(&user),
		IsAuthenticated: true,
		IsAdmin:         user.Role == model.RoleAdmin,
	}, nil
}

// JWTを発行してセッションに書き込む（tokenとuserは必ずペア）。
func (u *AuthUsecase) startSession(ctx context.Context, user *model.User) (AuthLoginResponse, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(SessionTTL).Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(u.cfg.JWTSecret))
	if err != nil {
		return AuthLoginResponse{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := u.sessions.Save(ctx, signed, *user); err != nil {
		return AuthLoginResponse{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return AuthLoginResponse{
		Token:     signed,
		ExpiresIn: int(SessionTTL.Seconds()),
		User:      toUserDTO(user),
	}, nil
}

// model.UserをAPI返却用DTOに変換。
func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      string(u.Role),
	}
}
