package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/saclworks/trialflow/internal/config"
	"github.com/saclworks/trialflow/internal/middleware"
	"github.com/saclworks/trialflow/internal/qc/entity"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"github.com/saclworks/trialflow/internal/shared/mailer"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials 用户名或密码错误
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserInactive 用户已停用
	ErrUserInactive = errors.New("user is inactive")
	// ErrInvalidRefreshToken 刷新令牌无效或已撤销
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrInvalidOTP 验证码错误或已过期
	ErrInvalidOTP = errors.New("invalid or expired otp")
)

const (
	otpTTL       = 5 * time.Minute
	otpKeyPrefix = "otp:reset:"
	rtKeyPrefix  = "auth:refresh:"
)

// AuthService 认证服务
// 刷新令牌按 jti 存入 redis，登出即撤销；
// 密码重置验证码存 redis，5 分钟过期，GetDel 保证单次使用
type AuthService struct {
	repos  *repository.Repositories
	rdb    *redis.Client
	mail   *mailer.Mailer
	cfg    config.JWTConfig
	logger *zap.Logger
}

func NewAuthService(repos *repository.Repositories, rdb *redis.Client, mail *mailer.Mailer, cfg config.JWTConfig, logger *zap.Logger) *AuthService {
	return &AuthService{
		repos:  repos,
		rdb:    rdb,
		mail:   mail,
		cfg:    cfg,
		logger: logger,
	}
}

// TokenPair 访问令牌与刷新令牌
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LoginResult 登录响应
type LoginResult struct {
	TokenPair
	User *entity.User `json:"user"`
}

// Login 用户名密码登录
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.repos.User.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.repos.User.Update(ctx, user); err != nil {
		s.logger.Warn("更新最近登录时间失败", zap.String("username", username), zap.Error(err))
	}

	return &LoginResult{TokenPair: *pair, User: user}, nil
}

// Refresh 用刷新令牌换取新令牌对，旧刷新令牌随即失效
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := jwt.ParseWithClaims(refreshToken, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidRefreshToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ID == "" {
		return nil, ErrInvalidRefreshToken
	}

	// redis 中不存在即视为已撤销
	username, err := s.rdb.GetDel(ctx, rtKeyPrefix+claims.ID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("校验刷新令牌失败: %w", err)
	}
	if username != claims.Subject {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.repos.User.FindByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return s.generateTokenPair(ctx, user)
}

// Logout 撤销刷新令牌
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	token, err := jwt.ParseWithClaims(refreshToken, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	if claims, ok := token.Claims.(*jwt.RegisteredClaims); ok && claims.ID != "" {
		return s.rdb.Del(ctx, rtKeyPrefix+claims.ID).Err()
	}
	return nil
}

// RequestPasswordReset 生成验证码并发送到用户邮箱
// 用户不存在时静默成功，避免探测用户名
func (s *AuthService) RequestPasswordReset(ctx context.Context, username string) error {
	user, err := s.repos.User.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("查询用户失败: %w", err)
	}

	otp, err := generateOTP(6)
	if err != nil {
		return fmt.Errorf("生成验证码失败: %w", err)
	}
	if err := s.rdb.Set(ctx, otpKeyPrefix+username, otp, otpTTL).Err(); err != nil {
		return fmt.Errorf("存储验证码失败: %w", err)
	}

	go func() {
		subject, body := mailer.NewOTPMail(user.Name, otp, int(otpTTL.Minutes()))
		if err := s.mail.SendWithTimeout(user.Email, subject, body, 15*time.Second); err != nil {
			s.logger.Error("发送验证码邮件失败", zap.String("username", username), zap.Error(err))
		}
	}()
	return nil
}

// ResetPassword 校验验证码并重置密码，验证码单次有效
func (s *AuthService) ResetPassword(ctx context.Context, username, otp, newPassword string) error {
	stored, err := s.rdb.GetDel(ctx, otpKeyPrefix+username).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("校验验证码失败: %w", err)
	}
	if stored != otp {
		return ErrInvalidOTP
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("密码加密失败: %w", err)
	}
	if err := s.repos.User.UpdatePassword(ctx, username, string(hash)); err != nil {
		return fmt.Errorf("更新密码失败: %w", err)
	}

	s.logger.Info("密码重置成功", zap.String("username", username))
	return nil
}

// ChangePassword 已登录用户修改密码
func (s *AuthService) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	user, err := s.repos.User.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("密码加密失败: %w", err)
	}
	return s.repos.User.UpdatePassword(ctx, username, string(hash))
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *entity.User) (*TokenPair, error) {
	now := time.Now()

	accessClaims := middleware.JWTClaims{
		UserID:       user.ID,
		Username:     user.Username,
		Name:         user.Name,
		DepartmentID: user.DepartmentID,
		Role:         user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenExpire)),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("签发访问令牌失败: %w", err)
	}

	jti := uuid.New().String()
	refreshClaims := jwt.RegisteredClaims{
		ID:        jti,
		Issuer:    s.cfg.Issuer,
		Subject:   user.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.RefreshTokenExpire)),
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("签发刷新令牌失败: %w", err)
	}

	if err := s.rdb.Set(ctx, rtKeyPrefix+jti, user.Username, s.cfg.RefreshTokenExpire).Err(); err != nil {
		return nil, fmt.Errorf("存储刷新令牌失败: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.AccessTokenExpire.Seconds()),
	}, nil
}

func generateOTP(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
