package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
)

// Mailbox — Notifier, который складывает письма в память вместо отправки.
type Mailbox struct {
	mu   sync.RWMutex
	sent []domain.Mail
}

// NewMailbox создаёт пустой почтовый ящик.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// SendPlainText сохраняет письмо.
func (m *Mailbox) SendPlainText(_ context.Context, mail domain.Mail) error {
	if mail.To == "" {
		return domain.ErrRecipientRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail)
	return nil
}

// Sent возвращает копию отправленных писем в порядке отправки.
func (m *Mailbox) Sent() []domain.Mail {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Mail(nil), m.sent...)
}

var _ domain.Notifier = (*Mailbox)(nil)
