package receipt

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"finportal/internal/models"
)

var receiptTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"amount": FormatAmount,
	"title":  Title,
	"upper":  strings.ToUpper,
}).Parse(`<table role="presentation" style="width:100%;max-width:560px;border:1px solid #e5e7eb;border-radius:8px;margin-top:24px;font-family:Arial,sans-serif;font-size:14px">
  <tr><td colspan="2" style="padding:16px;background:#f9fafb;font-weight:bold">{{title .R.TransactionType}} &middot; {{.Company}}</td></tr>
  <tr><td style="padding:8px 16px;color:#6b7280">Receipt No.</td><td style="padding:8px 16px">{{.R.ReceiptNumber}}</td></tr>
  <tr><td style="padding:8px 16px;color:#6b7280">Date</td><td style="padding:8px 16px">{{.R.Date.Format "Jan 2, 2006 15:04 MST"}}</td></tr>
  <tr><td style="padding:8px 16px;color:#6b7280">Customer</td><td style="padding:8px 16px">{{.R.CustomerName}}{{with .R.CustomerEmail}} &lt;{{.}}&gt;{{end}}</td></tr>
  <tr><td style="padding:8px 16px;color:#6b7280">Amount</td><td style="padding:8px 16px;font-weight:bold">{{amount .R.Amount}} {{.R.Currency}}</td></tr>
  {{- with .R.Method}}
  <tr><td style="padding:8px 16px;color:#6b7280">Method</td><td style="padding:8px 16px">{{.}}</td></tr>
  {{- end}}
  <tr><td style="padding:8px 16px;color:#6b7280">Status</td><td style="padding:8px 16px">{{upper .R.Status}}</td></tr>
  {{- with .R.Reference}}
  <tr><td style="padding:8px 16px;color:#6b7280">Reference</td><td style="padding:8px 16px">{{.}}</td></tr>
  {{- end}}
  {{- with .R.Description}}
  <tr><td colspan="2" style="padding:8px 16px;color:#374151">{{.}}</td></tr>
  {{- end}}
</table>`))

// RenderHTML renders a normalized receipt as an HTML fragment for an email body.
func RenderHTML(company string, r models.ReceiptData) (string, error) {
	var buf bytes.Buffer
	err := receiptTmpl.Execute(&buf, struct {
		Company string
		R       models.ReceiptData
	}{company, r})
	if err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return buf.String(), nil
}
