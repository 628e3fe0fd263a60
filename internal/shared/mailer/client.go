package mailer

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// =============================================================================
// Mailer — SMTP邮件客户端
// 提供受限并发的邮件发送，供流转通知、OTP找回密码等子模块共用
// =============================================================================

// Mailer SMTP客户端
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	sem    chan struct{} // 限制同时建立的SMTP连接数
}

// New 创建邮件客户端实例
func New(host string, port int, username, password, from string, maxInflight int) *Mailer {
	if maxInflight <= 0 {
		maxInflight = 4
	}
	d := gomail.NewDialer(host, port, username, password)
	return &Mailer{
		dialer: d,
		from:   from,
		sem:    make(chan struct{}, maxInflight),
	}
}

// Send 同步发送一封HTML邮件
// 状态流转本身不依赖发送结果，调用方自行决定是否忽略错误
func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("发送邮件失败 (to=%s): %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendWithTimeout Send的便捷包装，用于fire-and-forget场景
func (m *Mailer) SendWithTimeout(to, subject, htmlBody string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return m.Send(ctx, to, subject, htmlBody)
}
