package mailer

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desmond009/Twin-up/internal/models"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *recordingSender) Send(msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func TestMailer_PasswordResetLink(t *testing.T) {
	sender := &recordingSender{}
	m := New(sender, "https://skillswap.app/")

	m.SendPasswordReset(&models.Account{Name: "Ann", Email: "ann@example.com"}, "tok123")
	m.Wait()

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "ann@example.com", msg.To)
	assert.Equal(t, "Password Reset Request", msg.Subject)
	assert.Contains(t, msg.Text, "https://skillswap.app/reset-password/tok123")
	assert.Contains(t, msg.HTML, `href="https://skillswap.app/reset-password/tok123"`)
	assert.Contains(t, msg.Text, "Hi Ann,")
}

func TestMailer_SwapRequestEscapesHTML(t *testing.T) {
	sender := &recordingSender{}
	m := New(sender, "http://localhost:3000")

	to := &models.Account{Name: "Bob", Email: "bob@example.com"}
	from := &models.Account{Name: "<Ann>"}
	m.SendSwapRequest(to, from, &models.Swap{
		SkillsOffered:   []string{"Go", "SQL"},
		SkillsRequested: []string{"Guitar"},
		Message:         "Let's swap",
	})
	m.Wait()

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "New Swap Request", msg.Subject)
	assert.Contains(t, msg.Text, "Skills offered: Go, SQL")
	assert.Contains(t, msg.HTML, "&lt;Ann&gt;")
	assert.Contains(t, msg.Text, "<Ann> wants to swap skills with you!")
}

func TestMailer_SkipsAccountsWithoutEmail(t *testing.T) {
	sender := &recordingSender{}
	m := New(sender, "http://localhost:3000")

	m.SendWelcome(&models.Account{Name: "Telegram user"})
	m.Wait()

	assert.Empty(t, sender.sent)
}

func TestMailer_DeliveryErrorIsSwallowed(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	m := New(sender, "http://localhost:3000")

	m.SendFeedback(
		&models.Account{Name: "Bob", Email: "bob@example.com"},
		&models.Account{Name: "Ann"},
		&models.Feedback{Stars: 5, Comment: "Great"},
	)
	m.Wait()

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "Rating: 5 stars")
}
