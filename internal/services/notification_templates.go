package services

import (
	"html/template"
	"strings"

	"finportal/internal/receipt"
)

type mailTemplate struct {
	subject  string
	required []string
	body     *template.Template
}

var templateFuncs = template.FuncMap{
	"amount": func(v any) string {
		if f, ok := v.(float64); ok {
			return receipt.FormatAmount(f)
		}
		return toString(v)
	},
	"upper": func(v any) string { return strings.ToUpper(toString(v)) },
}

func mustBody(name, src string) *template.Template {
	return template.Must(template.New(name).Funcs(templateFuncs).Parse(src))
}

var mailTemplates = map[string]mailTemplate{
	"welcome": {
		subject:  "Welcome to {{company}}",
		required: []string{"Name"},
		body: mustBody("welcome", `<h2>Welcome, {{.Name}}!</h2>
<p>Your account has been created. Confirm your email address to unlock deposits, withdrawals and trading.</p>
<p>If you did not sign up, you can ignore this message.</p>`),
	},
	"verification": {
		subject:  "Your verification code",
		required: []string{"Code"},
		body: mustBody("verification", `<p>Use this code to verify your email address:</p>
<p style="font-size:28px;letter-spacing:6px;font-weight:bold">{{.Code}}</p>
<p>The code expires in {{with .ExpiresMinutes}}{{.}}{{else}}5{{end}} minutes. Never share it with anyone, including our support team.</p>`),
	},
	"deposit": {
		subject:  "Deposit {{status}}",
		required: []string{"Amount", "Currency"},
		body: mustBody("deposit", `<h3>Deposit {{with .Status}}{{.}}{{else}}received{{end}}</h3>
<p>We have registered your deposit of <strong>{{amount .Amount}} {{upper .Currency}}</strong>{{with .Method}} via {{.}}{{end}}.</p>
<p>Funds are credited to your balance once the transfer is confirmed.</p>`),
	},
	"withdrawal": {
		subject:  "Withdrawal {{status}}",
		required: []string{"Amount", "Currency"},
		body: mustBody("withdrawal", `<h3>Withdrawal {{with .Status}}{{.}}{{else}}requested{{end}}</h3>
<p>Your withdrawal of <strong>{{amount .Amount}} {{upper .Currency}}</strong>{{with .Destination}} to {{.}}{{end}} is being processed.</p>
<p>If you did not request this withdrawal, contact support immediately.</p>`),
	},
	"trade": {
		subject:  "Trade executed",
		required: []string{"Side", "Asset", "Quantity"},
		body: mustBody("trade", `<h3>Trade executed</h3>
<p>{{upper .Side}} {{.Quantity}} {{upper .Asset}}{{with .Price}} at {{amount .}}{{end}}{{with .Currency}} {{upper .}}{{end}}.</p>`),
	},
	"password_reset": {
		subject:  "Password reset request",
		required: []string{"Link"},
		body: mustBody("password_reset", `<h3>Password reset requested</h3>
<p>We received a request to reset the password for your account.</p>
<p><a href="{{.Link}}">Choose a new password</a></p>
<p>If you did not request this change, you can ignore this email.</p>`),
	},
}

var layoutTmpl = template.Must(template.New("layout").Parse(`<!doctype html>
<html><body style="margin:0;padding:24px;background:#f3f4f6;font-family:Arial,sans-serif;color:#111827">
<div style="max-width:600px;margin:0 auto;background:#ffffff;border-radius:8px;padding:24px">
<div style="font-size:18px;font-weight:bold;margin-bottom:16px">{{.Company}}</div>
{{.Body}}
<p style="margin-top:32px;font-size:12px;color:#6b7280">Best regards,<br>The {{.Company}} Team</p>
</div>
</body></html>`))
