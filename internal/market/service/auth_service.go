package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/bitfantasy/buildmart/internal/config"
	"github.com/bitfantasy/buildmart/internal/market/entity"
	"github.com/bitfantasy/buildmart/internal/market/repository"
	"github.com/bitfantasy/buildmart/internal/shared/sms"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Redis key 前缀
const (
	refreshTokenKeyPrefix = "auth:refresh_token:"
	otpKeyPrefix          = "auth:otp:"
)

// AuthService 认证服务
type AuthService struct {
	userRepo *repository.UserRepository
	rdb      *redis.Client
	sender   sms.Sender
	cfg      *config.Config
}

// NewAuthService 创建认证服务
func NewAuthService(userRepo *repository.UserRepository, rdb *redis.Client, sender sms.Sender, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		rdb:      rdb,
		sender:   sender,
		cfg:      cfg,
	}
}

// TokenPair Token对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type SignupRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Mobile      string `json:"mobile" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
	Role        string `json:"role" binding:"required"`
	CompanyName string `json:"company_name"`
	GSTIN       string `json:"gstin"`
}

// Signup 注册。开放注册只允许 vendor/customer，后台角色由管理员开通
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*entity.User, error) {
	if req.Role != entity.RoleVendor && req.Role != entity.RoleCustomer {
		return nil, fmt.Errorf("该角色不允许自助注册: %s", req.Role)
	}

	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("邮箱已被注册: %s", req.Email)
	}
	if _, err := s.userRepo.GetByMobile(ctx, req.Mobile); err == nil {
		return nil, fmt.Errorf("手机号已被注册: %s", req.Mobile)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	user := &entity.User{
		ID:           uuid.New().String()[:32],
		Name:         req.Name,
		Email:        req.Email,
		Mobile:       req.Mobile,
		PasswordHash: string(hash),
		Role:         req.Role,
		CompanyName:  req.CompanyName,
		GSTIN:        req.GSTIN,
		Status:       entity.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	return user, nil
}

// Login 登录，校验密码并签发Token对
func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.User, *TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("邮箱或密码错误")
	}
	if user.Status != entity.UserStatusActive {
		return nil, nil, fmt.Errorf("账号已被禁用")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, fmt.Errorf("邮箱或密码错误")
	}

	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate token: %w", err)
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("更新登录时间失败: %w", err)
	}

	return user, pair, nil
}

// Refresh 刷新Token。旧refresh token作废，签发新对
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	key := refreshTokenKeyPrefix + refreshToken
	userID, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("refresh token无效或已过期")
	}
	if err != nil {
		return nil, fmt.Errorf("读取refresh token失败: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("用户不存在: %w", err)
	}
	if user.Status != entity.UserStatusActive {
		return nil, fmt.Errorf("账号已被禁用")
	}

	// 旋转：先作废旧token
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return nil, fmt.Errorf("作废旧refresh token失败: %w", err)
	}

	return s.generateTokenPair(ctx, user)
}

// Logout 登出，服务端作废refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.rdb.Del(ctx, refreshTokenKeyPrefix+refreshToken).Err()
}

// GetUser 查询当前用户
func (s *AuthService) GetUser(ctx context.Context, userID string) (*entity.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// ListUsers 用户列表，后台管理用
func (s *AuthService) ListUsers(ctx context.Context, params repository.UserListParams) ([]entity.User, int64, error) {
	return s.userRepo.List(ctx, params)
}

// SetUserStatus 启用/禁用用户。禁用后登录和refresh均被拒绝
func (s *AuthService) SetUserStatus(ctx context.Context, userID, status string) (*entity.User, error) {
	if status != entity.UserStatusActive && status != entity.UserStatusDisabled {
		return nil, fmt.Errorf("无效的用户状态: %s", status)
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status == status {
		return user, nil
	}
	user.Status = status
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("更新用户状态失败: %w", err)
	}
	return user, nil
}

// generateTokenPair 签发access token（短期JWT）和refresh token（长期，存Redis）
func (s *AuthService) generateTokenPair(ctx context.Context, user *entity.User) (*TokenPair, error) {
	now := time.Now()
	expire := s.cfg.JWT.AccessTokenExpire

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"uid":  user.ID,
		"name": user.Name,
		"role": user.Role,
		"iss":  s.cfg.JWT.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(expire).Unix(),
		"jti":  uuid.New().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("签发access token失败: %w", err)
	}

	refreshToken := uuid.New().String()
	key := refreshTokenKeyPrefix + refreshToken
	if err := s.rdb.Set(ctx, key, user.ID, s.cfg.JWT.RefreshTokenExpire).Err(); err != nil {
		return nil, fmt.Errorf("存储refresh token失败: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(expire.Seconds()),
	}, nil
}

// GenerateOTP 生成6位验证码，写入Redis并下发短信
func (s *AuthService) GenerateOTP(ctx context.Context, mobile string) error {
	user, err := s.userRepo.GetByMobile(ctx, mobile)
	if err == gorm.ErrRecordNotFound {
		return fmt.Errorf("手机号未注册: %s", mobile)
	}
	if err != nil {
		return fmt.Errorf("查询用户失败: %w", err)
	}

	code, err := randomOTP()
	if err != nil {
		return fmt.Errorf("生成验证码失败: %w", err)
	}

	key := otpKeyPrefix + mobile
	if err := s.rdb.Set(ctx, key, code, s.cfg.SMS.OTPExpire).Err(); err != nil {
		return fmt.Errorf("存储验证码失败: %w", err)
	}

	msg := fmt.Sprintf("您的验证码是 %s，%d分钟内有效。", code, int(s.cfg.SMS.OTPExpire.Minutes()))
	if err := s.sender.Send(ctx, user.Mobile, msg); err != nil {
		return fmt.Errorf("下发验证码失败: %w", err)
	}
	return nil
}

// VerifyOTP 校验验证码，一次有效，通过后标记手机号已验证
func (s *AuthService) VerifyOTP(ctx context.Context, mobile, code string) error {
	key := otpKeyPrefix + mobile
	stored, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return fmt.Errorf("验证码不存在或已过期")
	}
	if err != nil {
		return fmt.Errorf("读取验证码失败: %w", err)
	}
	if stored != code {
		return fmt.Errorf("验证码错误")
	}

	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("作废验证码失败: %w", err)
	}

	user, err := s.userRepo.GetByMobile(ctx, mobile)
	if err != nil {
		return fmt.Errorf("用户不存在: %w", err)
	}
	if !user.MobileVerified {
		user.MobileVerified = true
		if err := s.userRepo.Update(ctx, user); err != nil {
			return fmt.Errorf("更新验证状态失败: %w", err)
		}
	}
	return nil
}

func randomOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
