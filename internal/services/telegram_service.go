package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/models"
)

var indiaTime = time.FixedZone("IST", 5*60*60+30*60)

// TelegramService sends admin alerts to a Telegram chat.
type TelegramService struct {
	botToken    string
	adminChatID string
	baseURL     string
	httpClient  *http.Client
	log         *zap.Logger
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		baseURL:     "https://api.telegram.org",
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		log:         zap.L().With(zap.String("component", "telegram")),
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends an HTML message to chatID.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		s.log.Debug("bot token not configured, message dropped")
		return nil
	}

	body, err := json.Marshal(telegramMessage{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		s.log.Debug("admin chat not configured, message dropped")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// FormatPrice renders amount with its currency. Rupees use Indian digit
// grouping (1,23,456); other currencies group by thousands.
func FormatPrice(amount float64, currency string) string {
	if currency == "" {
		currency = defaultCurrency
	}
	paise := int64(math.Round(math.Abs(amount) * 100))
	whole, frac := paise/100, paise%100

	digits := strconv.FormatInt(whole, 10)
	var grouped string
	if currency == defaultCurrency {
		grouped = groupIndian(digits)
	} else {
		grouped = groupThousands(digits)
	}
	if frac != 0 {
		grouped += fmt.Sprintf(".%02d", frac)
	}
	if amount < 0 {
		grouped = "-" + grouped
	}

	if currency == defaultCurrency {
		return "₹" + grouped
	}
	return grouped + " " + currency
}

func groupThousands(digits string) string {
	var b strings.Builder
	n := len(digits)
	for i, d := range digits {
		if i > 0 && (n-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return b.String()
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var b strings.Builder
	for i, d := range head {
		if i > 0 && (len(head)-i)%2 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return b.String() + "," + tail
}

// NotifyOrder alerts the admin chat about a new or newly paid order.
func (s *TelegramService) NotifyOrder(ctx context.Context, order *models.Order, event string) error {
	if s.adminChatID == "" {
		return nil
	}

	var items strings.Builder
	for i, item := range order.Items {
		fmt.Fprintf(&items, "%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1,
			html.EscapeString(item.Name),
			item.Qty,
			FormatPrice(item.Price, order.Currency),
			FormatPrice(item.Price*float64(item.Qty), order.Currency),
		)
	}

	title := "🛒 NEW ORDER"
	if event == "paid" {
		title = "✅ PAYMENT RECEIVED"
	}

	method := "Cash on delivery"
	if order.PaymentMethod == models.PaymentMethodRazorpay {
		method = "Razorpay"
	}

	message := fmt.Sprintf(`<b>%s</b>
<b>📋 Order:</b> %s
<b>👤 Customer:</b> %s
<b>📞 Phone:</b> %s
<b>📍 City:</b> %s %s
<b>📦 Items:</b>
%s
<b>💰 Total:</b> %s
<b>💳 Payment:</b> %s
<b>📌 Status:</b> %s
━━━━━━━━━━━━━━━━━━`,
		title,
		order.ID.String(),
		html.EscapeString(order.Address.Name),
		html.EscapeString(order.Address.Phone),
		html.EscapeString(order.Address.City),
		html.EscapeString(order.Address.Pincode),
		items.String(),
		FormatPrice(order.Amount, order.Currency),
		method,
		order.PaymentStatus,
	)
	if order.RazorpayPaymentID != "" {
		message += "\n<b>🧾 Payment ID:</b> " + html.EscapeString(order.RazorpayPaymentID)
	}

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}
