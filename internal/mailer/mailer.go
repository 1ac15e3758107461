package mailer

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/desmond009/Twin-up/internal/config"
	"github.com/desmond009/Twin-up/internal/metrics"
	"github.com/desmond009/Twin-up/internal/models"
)

// Message - готовое к отправке письмо
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender доставляет письма
type Sender interface {
	Send(msg Message) error
}

// SMTPSender отправляет письма через SMTP
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender создает отправителя по настройкам EMAIL_*
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)
	return s.dialer.DialAndSend(m)
}

// LogSender только пишет письмо в лог, когда SMTP не настроен
type LogSender struct{}

func (LogSender) Send(msg Message) error {
	log.WithFields(log.Fields{"to": msg.To, "subject": msg.Subject}).Info("📧 Почта отключена, письмо не отправлено")
	return nil
}

// Mailer формирует письма платформы и отправляет их в фоне.
// Ошибки доставки логируются и не влияют на вызывающую операцию.
type Mailer struct {
	sender    Sender
	clientURL string
	templates map[string]compiled
	wg        sync.WaitGroup
}

// New создает Mailer
func New(sender Sender, clientURL string) *Mailer {
	return &Mailer{
		sender:    sender,
		clientURL: strings.TrimRight(clientURL, "/"),
		templates: compileTemplates(),
	}
}

// FromConfig выбирает SMTP или лог в зависимости от настроек
func FromConfig(cfg *config.Config) *Mailer {
	var sender Sender = LogSender{}
	if cfg.SMTPConfig.Enabled() {
		sender = NewSMTPSender(cfg.SMTPConfig)
	}
	return New(sender, cfg.ClientURL)
}

// Wait ждет завершения всех фоновых отправок
func (m *Mailer) Wait() {
	m.wg.Wait()
}

func (m *Mailer) render(name string, data templateData) (Message, error) {
	tpl, ok := m.templates[name]
	if !ok {
		return Message{}, fmt.Errorf("шаблон %q не найден", name)
	}

	var html, text bytes.Buffer
	if err := tpl.html.Execute(&html, data); err != nil {
		return Message{}, err
	}
	if err := tpl.text.Execute(&text, data); err != nil {
		return Message{}, err
	}
	return Message{Subject: data.Subject, HTML: html.String(), Text: text.String()}, nil
}

func (m *Mailer) dispatch(name, to string, data templateData) {
	if to == "" {
		return
	}

	msg, err := m.render(name, data)
	if err != nil {
		log.WithError(err).WithField("template", name).Error("❌ Ошибка формирования письма")
		return
	}
	msg.To = to

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		err := m.sender.Send(msg)
		metrics.RecordEmail(name, err)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"template": name, "to": to}).Error("❌ Ошибка отправки письма")
		}
	}()
}

// SendWelcome приветствует нового пользователя
func (m *Mailer) SendWelcome(account *models.Account) {
	m.dispatch("welcome", account.Email, templateData{
		Subject: "Welcome to Skill Swap Platform!",
		Name:    account.Name,
	})
}

// SendPasswordReset отправляет ссылку сброса пароля
func (m *Mailer) SendPasswordReset(account *models.Account, token string) {
	m.dispatch("password_reset", account.Email, templateData{
		Subject: "Password Reset Request",
		Name:    account.Name,
		Link:    m.clientURL + "/reset-password/" + token,
	})
}

// SendSwapRequest сообщает получателю о новом запросе на обмен
func (m *Mailer) SendSwapRequest(to, from *models.Account, swap *models.Swap) {
	m.dispatch("swap_request", to.Email, templateData{
		Subject:         "New Swap Request",
		Name:            to.Name,
		FromName:        from.Name,
		Message:         swap.Message,
		SkillsOffered:   swap.SkillsOffered,
		SkillsRequested: swap.SkillsRequested,
	})
}

// SendFeedback сообщает пользователю о новом отзыве
func (m *Mailer) SendFeedback(to, from *models.Account, fb *models.Feedback) {
	m.dispatch("feedback", to.Email, templateData{
		Subject:  "New Feedback Received",
		Name:     to.Name,
		FromName: from.Name,
		Stars:    fb.Stars,
		Message:  fb.Comment,
	})
}
