package render

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
)

const (
	mailTemplateGlob        = "templates/*.tmpl"
	defaultPaymentInfoFile  = "templates/precashPaymentInfo.html"
	paymentInfoTemplateName = "paymentInfo"
	extraKeyOrderID         = "orderId"
	extraKeyPaymentInfo     = "paymentInfo"
)

//go:embed templates/*.tmpl templates/*.html
var templatesFS embed.FS

// mailData — контекст шаблонов писем.
type mailData struct {
	Cart        domain.Cart
	OrderID     string
	Shipping    float64
	Total       float64
	PaymentInfo string
	Extra       map[string]any
}

// Renderer рендерит письма из встроенных text-шаблонов и HTML-фрагмент
// с инструкциями по оплате.
type Renderer struct {
	mail        map[string]*template.Template
	paymentInfo *htmltemplate.Template
}

// New разбирает встроенные шаблоны. Пустой paymentInfoTemplate означает
// встроенный шаблон предоплаты.
func New(paymentInfoTemplate string) (*Renderer, error) {
	mail, err := parseMailTemplates(templatesFS)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(paymentInfoTemplate) == "" {
		raw, err := fs.ReadFile(templatesFS, defaultPaymentInfoFile)
		if err != nil {
			return nil, fmt.Errorf("read payment info template: %w", err)
		}
		paymentInfoTemplate = string(raw)
	}

	paymentInfo, err := htmltemplate.New(paymentInfoTemplateName).
		Funcs(htmltemplate.FuncMap(funcs())).
		Parse(paymentInfoTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse payment info template: %w", err)
	}

	return &Renderer{mail: mail, paymentInfo: paymentInfo}, nil
}

func parseMailTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	files, err := fs.Glob(fsys, mailTemplateGlob)
	if err != nil {
		return nil, fmt.Errorf("list mail templates: %w", err)
	}

	result := make(map[string]*template.Template, len(files))
	for _, file := range files {
		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read mail template %s: %w", file, err)
		}
		name := strings.TrimSuffix(path.Base(file), path.Ext(file))
		tmpl, err := template.New(name).Funcs(funcs()).Parse(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse mail template %s: %w", file, err)
		}
		result[name] = tmpl
	}
	return result, nil
}

// Render рендерит письмо по имени шаблона (без расширения).
func (r *Renderer) Render(name string, cart domain.Cart, extra map[string]any) (string, error) {
	tmpl, ok := r.mail[strings.TrimSuffix(name, path.Ext(name))]
	if !ok {
		return "", fmt.Errorf("mail template %q not found", name)
	}

	data := newMailData(cart, "")
	data.Extra = extra
	if v, ok := extra[extraKeyOrderID].(string); ok {
		data.OrderID = v
	}
	if v, ok := extra[extraKeyPaymentInfo].(string); ok {
		data.PaymentInfo = strings.TrimSpace(v)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute mail template %q: %w", name, err)
	}
	return buf.String(), nil
}

// RenderPaymentInfo рендерит HTML-инструкции по оплате заказа.
func (r *Renderer) RenderPaymentInfo(cart domain.Cart, orderID string) (string, error) {
	var buf bytes.Buffer
	if err := r.paymentInfo.Execute(&buf, newMailData(cart, orderID)); err != nil {
		return "", fmt.Errorf("execute payment info template: %w", err)
	}
	return buf.String(), nil
}

func newMailData(cart domain.Cart, orderID string) mailData {
	return mailData{
		Cart:     cart,
		OrderID:  orderID,
		Shipping: cart.ShippingCostsToPay(),
		Total:    cart.TotalPrice(),
	}
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"price": formatPrice,
	}
}

// formatPrice форматирует сумму в немецкой записи: 1234.5 -> "1.234,50".
func formatPrice(v float64) string {
	raw := fmt.Sprintf("%.2f", v)
	negative := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	intPart, frac, _ := strings.Cut(raw, ".")
	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(digit)
	}

	out := grouped.String() + "," + frac
	if negative {
		out = "-" + out
	}
	return out
}

var _ domain.Renderer = (*Renderer)(nil)
