package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
)

const defaultShopName = "microcart"

var (
	// ErrAPIKeyRequired возвращается, если ключ SendGrid не задан.
	ErrAPIKeyRequired = errors.New("sendgrid api key is required")
	// ErrShopAddressRequired возвращается, если не задан адрес магазина для "self".
	ErrShopAddressRequired = errors.New("shop mail address is required")
)

// sendClient — часть API клиента SendGrid, которой пользуется Notifier.
type sendClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// Config описывает отправку писем через SendGrid.
type Config struct {
	APIKey      string
	ShopAddress string
	ShopName    string
}

// Notifier отправляет письма через SendGrid. Адрес domain.AddressSelf
// подменяется адресом магазина, отправителем всегда выступает магазин.
type Notifier struct {
	client sendClient
	shop   *sgmail.Email
	logger *log.Entry
}

// NewSendGridNotifier создаёт Notifier поверх официального клиента SendGrid.
func NewSendGridNotifier(cfg Config, logger *log.Entry) (*Notifier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrAPIKeyRequired
	}
	return newNotifier(sendgrid.NewSendClient(cfg.APIKey), cfg, logger)
}

func newNotifier(client sendClient, cfg Config, logger *log.Entry) (*Notifier, error) {
	if strings.TrimSpace(cfg.ShopAddress) == "" {
		return nil, ErrShopAddressRequired
	}
	name := cfg.ShopName
	if name == "" {
		name = defaultShopName
	}
	if logger == nil {
		logger = log.WithField("component", "sendgrid-notifier")
	}
	return &Notifier{
		client: client,
		shop:   sgmail.NewEmail(name, cfg.ShopAddress),
		logger: logger,
	}, nil
}

// SendPlainText отправляет письмо с текстовым телом.
func (n *Notifier) SendPlainText(ctx context.Context, m domain.Mail) error {
	if m.To == "" {
		return domain.ErrRecipientRequired
	}

	// SendGrid принимает только подтверждённого отправителя, поэтому письмо
	// всегда уходит от магазина, а чужой From становится адресом для ответа.
	message := sgmail.NewSingleEmail(
		n.shop,
		m.Subject,
		n.resolve(m.To),
		m.Body,
		"",
	)
	if replyTo := n.resolve(m.From); replyTo != n.shop {
		message.SetReplyTo(replyTo)
	}

	response, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		n.logger.WithError(err).WithField("to", m.To).Error("sendgrid request failed")
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		n.logger.WithFields(log.Fields{
			"status": response.StatusCode,
			"to":     m.To,
		}).Error("sendgrid rejected mail")
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", response.StatusCode, response.Body)
	}

	n.logger.WithFields(log.Fields{
		"status":  response.StatusCode,
		"to":      m.To,
		"subject": m.Subject,
	}).Debug("mail sent")
	return nil
}

func (n *Notifier) resolve(address string) *sgmail.Email {
	if address == "" || address == domain.AddressSelf {
		return n.shop
	}
	return sgmail.NewEmail("", address)
}

var _ domain.Notifier = (*Notifier)(nil)
