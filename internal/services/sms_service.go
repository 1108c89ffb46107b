package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SMSConfig holds MSG91 credentials.
type SMSConfig struct {
	BaseURL    string
	AuthKey    string
	TemplateID string
	Local      bool
	Timeout    time.Duration
}

// SMSService sends one-time codes through the MSG91 OTP API.
type SMSService struct {
	cfg        SMSConfig
	httpClient *http.Client
	log        *zap.Logger
}

func NewSMSService(cfg SMSConfig) *SMSService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMSService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        zap.L().With(zap.String("component", "sms")),
	}
}

type msg91Response struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SendOTP delivers code to phone. In local mode the code is logged instead.
func (s *SMSService) SendOTP(ctx context.Context, phone, code string) error {
	if s.cfg.Local {
		s.log.Info("local otp mode, sms not sent", zap.String("phone", phone), zap.String("otp", code))
		return nil
	}
	if s.cfg.AuthKey == "" || s.cfg.TemplateID == "" {
		return fmt.Errorf("msg91 credentials not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"mobile":      strings.TrimPrefix(phone, "+"),
		"otp":         code,
		"template_id": s.cfg.TemplateID,
	})
	if err != nil {
		return fmt.Errorf("msg91 request marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/otp", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("msg91 request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authkey", s.cfg.AuthKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("msg91 request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("msg91 send otp: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result msg91Response
	if err := json.Unmarshal(body, &result); err == nil && result.Type == "error" {
		return fmt.Errorf("msg91 send otp: %s", result.Message)
	}
	return nil
}
