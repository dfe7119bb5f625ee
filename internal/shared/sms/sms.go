package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bitfantasy/buildmart/internal/config"
	"go.uber.org/zap"
)

// Sender 短信发送接口，OTP下发使用
type Sender interface {
	Send(ctx context.Context, mobile, message string) error
}

// New 按配置选择发送实现，未配置网关时回落到开发实现
func New(cfg config.SMSConfig, logger *zap.Logger) Sender {
	if cfg.Provider == "http" && cfg.Endpoint != "" {
		return NewHTTPSender(cfg)
	}
	return &DevSender{logger: logger}
}

// DevSender 开发环境实现：只打日志不真正下发
type DevSender struct {
	logger *zap.Logger
}

func (s *DevSender) Send(_ context.Context, mobile, message string) error {
	s.logger.Info("SMS (dev sender)",
		zap.String("mobile", mobile),
		zap.String("message", message),
	)
	return nil
}

// HTTPSender 短信网关客户端
type HTTPSender struct {
	endpoint   string
	apiKey     string
	senderID   string
	httpClient *http.Client
}

func NewHTTPSender(cfg config.SMSConfig) *HTTPSender {
	return &HTTPSender{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		senderID: cfg.SenderID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type gatewayResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *HTTPSender) Send(ctx context.Context, mobile, message string) error {
	reqBody := map[string]string{
		"sender_id": s.senderID,
		"mobile":    mobile,
		"message":   message,
	}
	bodyBytes, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, "POST", s.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("创建短信请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("短信网关请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("短信网关返回 %d: %s", resp.StatusCode, string(respBody))
	}

	var gwResp gatewayResponse
	if err := json.Unmarshal(respBody, &gwResp); err != nil {
		return fmt.Errorf("解析短信网关响应失败: %w", err)
	}
	if gwResp.Code != 0 {
		return fmt.Errorf("短信发送失败: %s", gwResp.Message)
	}
	return nil
}
