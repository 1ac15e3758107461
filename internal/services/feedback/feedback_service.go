package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/desmond009/Twin-up/internal/metrics"
	"github.com/desmond009/Twin-up/internal/models"
	"github.com/desmond009/Twin-up/internal/utils"
)

type swapStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Swap, error)
	MarkFeedbackSubmitted(ctx context.Context, id uuid.UUID, d models.FeedbackDirection) error
	ListPendingFeedback(ctx context.Context, userID uuid.UUID, page models.Page) ([]*models.Swap, int, error)
}

type accountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	AddFeedback(ctx context.Context, fb *models.Feedback) error
	GetFeedback(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Feedback, error)
	ReviseFeedback(ctx context.Context, fb *models.Feedback, stars int, comment string, now time.Time) error
	RemoveFeedback(ctx context.Context, fb *models.Feedback, now time.Time) error
	ListFeedback(ctx context.Context, accountID uuid.UUID, page models.Page) ([]models.Feedback, int, error)
	FeedbackBetween(ctx context.Context, accountID, fromID uuid.UUID) ([]models.Feedback, error)
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier создает уведомления как побочный эффект операций
type Notifier interface {
	NotifyQuietly(ctx context.Context, n models.NewNotification)
}

// Mailer отправляет письмо о новом отзыве
type Mailer interface {
	SendFeedback(to, from *models.Account, fb *models.Feedback)
}

// FeedbackService ведет отзывы по завершенным обменам и рейтинг пользователей
type FeedbackService struct {
	swaps      swapStore
	accounts   accountStore
	tx         txRunner
	notifier   Notifier
	mailer     Mailer
	jwtService *utils.JWTService
	now        func() time.Time
}

// NewFeedbackService создает новый экземпляр FeedbackService
func NewFeedbackService(swaps swapStore, accounts accountStore, tx txRunner, notifier Notifier, mailer Mailer, jwtService *utils.JWTService) *FeedbackService {
	return &FeedbackService{
		swaps:      swaps,
		accounts:   accounts,
		tx:         tx,
		notifier:   notifier,
		mailer:     mailer,
		jwtService: jwtService,
		now:        time.Now,
	}
}

// WithNow подменяет часы
func (s *FeedbackService) WithNow(now func() time.Time) *FeedbackService {
	s.now = now
	return s
}

// Submission - результат отправки отзыва
type Submission struct {
	Feedback   *models.Feedback       `json:"feedback"`
	TargetUser *models.AccountSummary `json:"target_user"`
}

// Submit оставляет отзыв второму участнику завершенного обмена.
// Флаг на обмене и запись отзыва фиксируются в одной транзакции.
func (s *FeedbackService) Submit(ctx context.Context, rater, swapID uuid.UUID, stars int, comment string) (*Submission, error) {
	comment = strings.TrimSpace(comment)
	v := &models.ValidationError{}
	models.ValidateFeedback(v, stars, comment)
	if err := v.Err(); err != nil {
		return nil, err
	}

	sw, err := s.swaps.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	direction, ok := sw.DirectionOf(rater)
	if !ok {
		return nil, models.Errorf(models.ErrForbidden, "Not authorized to submit feedback for this swap")
	}
	if sw.Status != models.SwapCompleted {
		return nil, models.Errorf(models.ErrInvalidState, "Feedback can only be submitted for completed swaps")
	}
	if sw.FeedbackSubmitted.Submitted(direction) {
		return nil, models.Errorf(models.ErrInvalidState, "You have already submitted feedback for this swap")
	}

	target := sw.Counterpart(rater)
	fb := &models.Feedback{
		AccountID:  target,
		FromUserID: rater,
		SwapID:     &sw.ID,
		Stars:      stars,
		Comment:    comment,
		CreatedAt:  s.now(),
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// Условное обновление флага отсекает параллельную повторную отправку
		if err := s.swaps.MarkFeedbackSubmitted(ctx, sw.ID, direction); err != nil {
			return err
		}
		return s.accounts.AddFeedback(ctx, fb)
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordFeedback("submitted")

	raterAcc, targetAcc := s.loadParties(ctx, rater, target)
	if raterAcc != nil {
		fb.FromUserName = raterAcc.Name
		fb.FromUserPhoto = raterAcc.ProfilePhoto
	}

	s.notifier.NotifyQuietly(ctx, models.NewNotification{
		UserID:        target,
		Type:          models.NotifyFeedbackReceived,
		Title:         "New Feedback Received",
		Message:       feedbackMessage(fb.FromUserName, stars),
		RelatedUserID: &rater,
		RelatedSwapID: &sw.ID,
	})

	result := &Submission{Feedback: fb}
	if targetAcc != nil {
		fb.ToUserName = targetAcc.Name
		result.TargetUser = targetAcc.Summary()
		if raterAcc != nil {
			s.mailer.SendFeedback(targetAcc, raterAcc, fb)
		}
	}
	return result, nil
}

// loadParties читает аккаунты автора и получателя после фиксации отзыва.
// Ошибки не влияют на уже сохраненный отзыв.
func (s *FeedbackService) loadParties(ctx context.Context, rater, target uuid.UUID) (*models.Account, *models.Account) {
	raterAcc, err := s.accounts.GetByID(ctx, rater)
	if err != nil {
		log.WithError(err).WithField("user", rater).Warn("Не удалось загрузить автора отзыва")
		raterAcc = nil
	}
	targetAcc, err := s.accounts.GetByID(ctx, target)
	if err != nil {
		log.WithError(err).WithField("user", target).Warn("Не удалось загрузить получателя отзыва")
		targetAcc = nil
	}
	return raterAcc, targetAcc
}

func feedbackMessage(name string, stars int) string {
	if name == "" {
		name = "Your swap partner"
	}
	plural := ""
	if stars > 1 {
		plural = "s"
	}
	return fmt.Sprintf("%s left you %d star%s feedback", name, stars, plural)
}

// SwapFeedbackEntry - отзыв по обмену с указанием стороны автора
type SwapFeedbackEntry struct {
	From models.FeedbackDirection `json:"from"`
	models.Feedback
}

// SwapFeedback - отзывы обеих сторон обмена
type SwapFeedback struct {
	Feedback          []SwapFeedbackEntry  `json:"feedback"`
	FeedbackSubmitted models.FeedbackFlags `json:"feedback_submitted"`
}

// ForSwap возвращает отзывы участников обмена друг о друге
func (s *FeedbackService) ForSwap(ctx context.Context, actor, swapID uuid.UUID) (*SwapFeedback, error) {
	sw, err := s.swaps.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if !sw.IsParty(actor) {
		return nil, models.Errorf(models.ErrForbidden, "Not authorized to view feedback for this swap")
	}

	// Отзывы сопоставляются по второму участнику
	aboutFrom, err := s.accounts.FeedbackBetween(ctx, sw.FromUserID, sw.ToUserID)
	if err != nil {
		return nil, err
	}
	aboutTo, err := s.accounts.FeedbackBetween(ctx, sw.ToUserID, sw.FromUserID)
	if err != nil {
		return nil, err
	}

	entries := make([]SwapFeedbackEntry, 0, len(aboutFrom)+len(aboutTo))
	for _, fb := range aboutFrom {
		entries = append(entries, SwapFeedbackEntry{From: models.DirectionToUser, Feedback: fb})
	}
	for _, fb := range aboutTo {
		entries = append(entries, SwapFeedbackEntry{From: models.DirectionFromUser, Feedback: fb})
	}
	return &SwapFeedback{Feedback: entries, FeedbackSubmitted: sw.FeedbackSubmitted}, nil
}

// ForUser возвращает отзывы о пользователе, новые первыми
func (s *FeedbackService) ForUser(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Feedback, models.Pagination, error) {
	if _, err := s.accounts.GetByID(ctx, userID); err != nil {
		return nil, models.Pagination{}, err
	}
	items, total, err := s.accounts.ListFeedback(ctx, userID, page)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return items, page.Paginate(total), nil
}

// Revision - изменение отзыва, nil означает "не менять"
type Revision struct {
	Stars   *int    `json:"stars"`
	Comment *string `json:"comment"`
}

// Update меняет отзыв автора в течение 24 часов после создания
func (s *FeedbackService) Update(ctx context.Context, rater, id uuid.UUID, r Revision) (*models.Feedback, error) {
	if r.Comment != nil {
		trimmed := strings.TrimSpace(*r.Comment)
		r.Comment = &trimmed
	}

	v := &models.ValidationError{}
	if r.Stars != nil && (*r.Stars < 1 || *r.Stars > 5) {
		v.Add("stars", "Rating must be between 1 and 5 stars")
	}
	if r.Comment != nil {
		if l := len([]rune(*r.Comment)); l < 1 || l > models.MaxCommentLength {
			v.Add("comment", "Comment must be between 1 and 500 characters")
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	var fb *models.Feedback
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if fb, err = s.accounts.GetFeedback(ctx, id, true); err != nil {
			return err
		}
		now := s.now()
		if err := fb.CheckEditable(rater, now, "update"); err != nil {
			return err
		}

		stars, comment := fb.Stars, fb.Comment
		if r.Stars != nil {
			stars = *r.Stars
		}
		if r.Comment != nil {
			comment = *r.Comment
		}
		return s.accounts.ReviseFeedback(ctx, fb, stars, comment, now)
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordFeedback("revised")
	return fb, nil
}

// Delete удаляет отзыв автора в течение 24 часов после создания
func (s *FeedbackService) Delete(ctx context.Context, rater, id uuid.UUID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		fb, err := s.accounts.GetFeedback(ctx, id, true)
		if err != nil {
			return err
		}
		now := s.now()
		if err := fb.CheckEditable(rater, now, "delete"); err != nil {
			return err
		}
		return s.accounts.RemoveFeedback(ctx, fb, now)
	})
	if err != nil {
		return err
	}
	metrics.RecordFeedback("removed")
	return nil
}

// Pending возвращает завершенные обмены, по которым пользователь еще не оставил отзыв
func (s *FeedbackService) Pending(ctx context.Context, userID uuid.UUID, page models.Page) ([]*models.Swap, models.Pagination, error) {
	swaps, total, err := s.swaps.ListPendingFeedback(ctx, userID, page)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return swaps, page.Paginate(total), nil
}
