package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/models"
)

// MailConfig holds SMTP credentials.
type MailConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	From         string
	FromName     string
	SupportEmail string
	Local        bool
}

// MailService sends transactional email over SMTP.
type MailService struct {
	cfg  MailConfig
	log  *zap.Logger
	send func(ctx context.Context, to []string, raw []byte) error
}

func NewMailService(cfg MailConfig) *MailService {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.SupportEmail == "" {
		cfg.SupportEmail = cfg.Username
	}
	s := &MailService{
		cfg: cfg,
		log: zap.L().With(zap.String("component", "mail")),
	}
	s.send = s.deliver
	return s
}

var otpEmailTemplate = template.Must(template.New("otp").Parse(
	`<p>Your one-time code is: <strong>{{.Code}}</strong></p>
<p>It expires in {{.Minutes}} minutes. If you did not request it, ignore this email.</p>`))

// SendOTP emails code to the address. In local mode the code is logged.
func (s *MailService) SendOTP(ctx context.Context, email, code string) error {
	if s.cfg.Local {
		s.log.Info("local otp mode, email not sent", zap.String("email", email), zap.String("otp", code))
		return nil
	}

	var body bytes.Buffer
	if err := otpEmailTemplate.Execute(&body, map[string]any{
		"Code":    code,
		"Minutes": int(OTPTTL / time.Minute),
	}); err != nil {
		return fmt.Errorf("render otp email: %w", err)
	}
	subject := fmt.Sprintf("Your %s login code", s.cfg.FromName)
	return s.sendHTML(ctx, email, subject, body.String())
}

type confirmationItem struct {
	Name  string
	Qty   int
	Price string
}

type confirmationView struct {
	Brand        string
	OrderID      string
	CustomerName string
	Items        []confirmationItem
	Total        string
	Date         string
	Address      models.AddressSnapshot
	PaymentID    string
	SupportEmail string
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<!doctype html>
<html><head><meta charset="utf-8"/></head>
<body style="font-family:Arial,sans-serif;background:#f6f6f8;margin:0;padding:20px;">
<div style="max-width:680px;margin:0 auto;background:#fff;border-radius:8px;padding:20px 28px;">
  <div style="font-weight:700;font-size:18px">{{.Brand}}</div>
  <div style="color:#666;font-size:13px">Order #: <strong>{{.OrderID}}</strong> &middot; {{.Date}}</div>
  <h2 style="font-size:18px;">Thanks for your order, {{.CustomerName}}</h2>
  <p style="color:#555;">We're preparing your items now. We'll update you when your order is out for delivery.</p>
  <table width="100%" cellpadding="0" cellspacing="0" style="border-collapse:collapse;">
    <thead><tr>
      <th style="text-align:left;padding:8px 12px;border:1px solid #eee;">Item</th>
      <th style="text-align:center;padding:8px 12px;border:1px solid #eee;">Qty</th>
      <th style="text-align:right;padding:8px 12px;border:1px solid #eee;">Price</th>
    </tr></thead>
    <tbody>
    {{- range .Items}}
      <tr>
        <td style="padding:8px 12px;border:1px solid #eee;">{{.Name}}</td>
        <td style="padding:8px 12px;border:1px solid #eee;text-align:center;">{{.Qty}}</td>
        <td style="padding:8px 12px;border:1px solid #eee;text-align:right;">{{.Price}}</td>
      </tr>
    {{- else}}
      <tr><td colspan="3" style="padding:8px 12px;border:1px solid #eee;">No items</td></tr>
    {{- end}}
    </tbody>
    <tfoot><tr>
      <td colspan="2" style="padding:10px 12px;text-align:right;">Total</td>
      <td style="padding:10px 12px;text-align:right;font-weight:600;">{{.Total}}</td>
    </tr></tfoot>
  </table>
  <h3 style="font-size:14px;color:#666;">Delivery address</h3>
  <p>{{.Address.Name}}<br/>{{.Address.Line1}}{{if .Address.Line2}}, {{.Address.Line2}}{{end}}<br/>{{.Address.City}} - {{.Address.Pincode}}<br/>{{.Address.Phone}}</p>
  {{- if .PaymentID}}<p style="font-size:13px;color:#333;">Payment ID: <strong>{{.PaymentID}}</strong></p>{{end}}
  <p style="font-size:13px;color:#666;">Questions? Write to <a href="mailto:{{.SupportEmail}}">{{.SupportEmail}}</a>.</p>
</div>
</body></html>`))

// RenderOrderConfirmation builds the subject and HTML body for a paid order.
func (s *MailService) RenderOrderConfirmation(order *models.Order) (string, string, error) {
	name := order.Address.Name
	if name == "" {
		name = strings.SplitN(order.CustomerEmail, "@", 2)[0]
	}
	if name == "" {
		name = "Customer"
	}

	view := confirmationView{
		Brand:        s.cfg.FromName,
		OrderID:      order.ID.String(),
		CustomerName: name,
		Total:        FormatPrice(order.Amount, order.Currency),
		Date:         order.CreatedAt.In(indiaTime).Format("02 Jan 2006, 15:04"),
		Address:      order.Address,
		PaymentID:    order.RazorpayPaymentID,
		SupportEmail: s.cfg.SupportEmail,
	}
	for _, item := range order.Items {
		qty := item.Qty
		if qty <= 0 {
			qty = 1
		}
		view.Items = append(view.Items, confirmationItem{
			Name:  item.Name,
			Qty:   qty,
			Price: FormatPrice(item.Price, order.Currency),
		})
	}

	var body bytes.Buffer
	if err := confirmationTemplate.Execute(&body, view); err != nil {
		return "", "", fmt.Errorf("render confirmation: %w", err)
	}
	subject := fmt.Sprintf("Order Confirmed • %s • %s", view.OrderID, s.cfg.FromName)
	return subject, body.String(), nil
}

// SendOrderConfirmation emails the order summary to the customer.
func (s *MailService) SendOrderConfirmation(ctx context.Context, recipient string, order *models.Order) error {
	if recipient == "" {
		recipient = order.CustomerEmail
	}
	if recipient == "" {
		return fmt.Errorf("order %s has no customer email", order.ID)
	}
	subject, body, err := s.RenderOrderConfirmation(order)
	if err != nil {
		return err
	}
	return s.sendHTML(ctx, recipient, subject, body)
}

func (s *MailService) sendHTML(ctx context.Context, to, subject, body string) error {
	if s.cfg.Username == "" {
		return fmt.Errorf("mail: SMTP_USER not configured")
	}
	from := s.cfg.From
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From)
	}

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	return s.send(ctx, []string{to}, []byte(b.String()))
}

// deliver speaks SMTP directly so the dial and the session honor ctx.
// Port 465 uses implicit TLS; other ports upgrade with STARTTLS when offered.
func (s *MailService) deliver(ctx context.Context, to []string, raw []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	tlsCfg := &tls.Config{ServerName: s.cfg.Host}

	dialer := &net.Dialer{Timeout: 15 * time.Second}
	var (
		conn net.Conn
		err  error
	)
	if s.cfg.Port == "465" {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsCfg}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("mail: dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if s.cfg.Port != "465" {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsCfg); err != nil {
				return fmt.Errorf("mail: starttls: %w", err)
			}
		}
	}
	if err := client.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
		return fmt.Errorf("mail: auth: %w", err)
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
