package mailer

import "fmt"

// NewHandoffMail 试制卡流转到新责任人时的通知邮件
func NewHandoffMail(recipientName, trialID, partName, departmentName, action string) (subject, body string) {
	subject = fmt.Sprintf("[TrialFlow] 试制卡 %s 待处理", trialID)
	body = fmt.Sprintf(`<html><body>
<p>%s，您好：</p>
<p>试制卡 <b>%s</b>（零件：%s）已流转至 <b>%s</b>，当前待办：<b>%s</b>。</p>
<p>请登录系统处理。</p>
</body></html>`, recipientName, trialID, partName, departmentName, action)
	return subject, body
}

// NewOTPMail 找回密码验证码邮件
func NewOTPMail(recipientName, otp string, ttlMinutes int) (subject, body string) {
	subject = "[TrialFlow] 密码重置验证码"
	body = fmt.Sprintf(`<html><body>
<p>%s，您好：</p>
<p>您的密码重置验证码为 <b>%s</b>，%d 分钟内有效，且仅可使用一次。</p>
<p>如非本人操作请忽略本邮件。</p>
</body></html>`, recipientName, otp, ttlMinutes)
	return subject, body
}
