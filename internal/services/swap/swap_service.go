package swap

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/desmond009/Twin-up/internal/metrics"
	"github.com/desmond009/Twin-up/internal/models"
	"github.com/desmond009/Twin-up/internal/utils"
)

type swapStore interface {
	Create(ctx context.Context, n models.NewSwap, now time.Time) (*models.Swap, error)
	HasPending(ctx context.Context, fromID, toID uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Swap, error)
	Transition(ctx context.Context, id uuid.UUID, from, to models.SwapStatus, now time.Time) (*models.Swap, error)
	DeleteOwn(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f models.SwapFilter) ([]*models.Swap, int, error)
	Stats(ctx context.Context, userID *uuid.UUID) (models.SwapStats, error)
}

type accountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// Notifier создает уведомления как побочный эффект операций
type Notifier interface {
	NotifyQuietly(ctx context.Context, n models.NewNotification)
}

// Mailer отправляет письмо о новом запросе
type Mailer interface {
	SendSwapRequest(to, from *models.Account, swap *models.Swap)
}

// SwapService реализует жизненный цикл запросов на обмен навыками
type SwapService struct {
	swaps      swapStore
	accounts   accountStore
	notifier   Notifier
	mailer     Mailer
	jwtService *utils.JWTService
	now        func() time.Time
}

// NewSwapService создает новый экземпляр SwapService
func NewSwapService(swaps swapStore, accounts accountStore, notifier Notifier, mailer Mailer, jwtService *utils.JWTService) *SwapService {
	return &SwapService{
		swaps:      swaps,
		accounts:   accounts,
		notifier:   notifier,
		mailer:     mailer,
		jwtService: jwtService,
		now:        time.Now,
	}
}

// WithNow подменяет часы
func (s *SwapService) WithNow(now func() time.Time) *SwapService {
	s.now = now
	return s
}

// Create отправляет запрос на обмен публичному незаблокированному пользователю
func (s *SwapService) Create(ctx context.Context, n models.NewSwap) (*models.Swap, error) {
	n.SkillsOffered = models.NormalizeSkills(n.SkillsOffered)
	n.SkillsRequested = models.NormalizeSkills(n.SkillsRequested)
	n.Message = strings.TrimSpace(n.Message)
	if err := n.Validate(); err != nil {
		return nil, err
	}

	target, err := s.accounts.GetByID(ctx, n.ToUserID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.Errorf(models.ErrNotFound, "Target user not found")
	}
	if err != nil {
		return nil, err
	}
	if !target.IsPublic {
		return nil, models.Errorf(models.ErrForbidden, "Cannot send swap request to private profile")
	}
	if target.IsBanned {
		return nil, models.Errorf(models.ErrForbidden, "Cannot send swap request to banned user")
	}

	// Проверяется только направление from -> to
	pending, err := s.swaps.HasPending(ctx, n.FromUserID, n.ToUserID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, models.Errorf(models.ErrConflict, "You already have a pending swap request with this user")
	}

	sender, err := s.accounts.GetByID(ctx, n.FromUserID)
	if err != nil {
		return nil, err
	}

	sw, err := s.swaps.Create(ctx, n, s.now())
	if err != nil {
		return nil, err
	}
	sw.FromUser = sender.Summary()
	sw.ToUser = target.Summary()
	metrics.RecordSwapTransition(string(models.SwapPending))

	s.notifier.NotifyQuietly(ctx, models.NewNotification{
		UserID:        target.ID,
		Type:          models.NotifySwapRequest,
		Title:         "New Swap Request",
		Message:       sender.Name + " wants to swap skills with you",
		RelatedUserID: &sender.ID,
		RelatedSwapID: &sw.ID,
	})
	s.mailer.SendSwapRequest(target, sender, sw)

	return sw, nil
}

// Get возвращает обмен одному из его участников
func (s *SwapService) Get(ctx context.Context, actor, id uuid.UUID) (*models.Swap, error) {
	sw, err := s.swaps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sw.IsParty(actor) {
		return nil, models.Errorf(models.ErrForbidden, "Not authorized to view this swap request")
	}
	return sw, nil
}

var transitionNotices = map[models.SwapStatus]models.NotificationType{
	models.SwapAccepted:  models.NotifySwapAccepted,
	models.SwapRejected:  models.NotifySwapRejected,
	models.SwapCancelled: models.NotifySwapCancelled,
	models.SwapCompleted: models.NotifySwapCompleted,
}

// Act выполняет действие участника над обменом: accept, reject, cancel или complete.
// Запись сохраняется только если статус не изменился с момента чтения.
func (s *SwapService) Act(ctx context.Context, actor, id uuid.UUID, action models.SwapAction, reason string) (*models.Swap, error) {
	sw, err := s.swaps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sw.Authorize(action, actor); err != nil {
		return nil, err
	}

	next, err := models.NextSwapStatus(sw.Status, action)
	if err != nil {
		return nil, err
	}

	updated, err := s.swaps.Transition(ctx, id, sw.Status, next, s.now())
	if err != nil {
		return nil, err
	}
	updated.FromUser, updated.ToUser = sw.FromUser, sw.ToUser
	metrics.RecordSwapTransition(string(next))

	reason = strings.TrimSpace(reason)
	notice := models.NewNotification{
		UserID:        sw.Counterpart(actor),
		Type:          transitionNotices[next],
		Message:       transitionMessage(partyName(sw, actor), next, reason),
		RelatedUserID: &actor,
		RelatedSwapID: &sw.ID,
	}
	if reason != "" && (next == models.SwapRejected || next == models.SwapCancelled) {
		notice.Data = map[string]any{"reason": reason}
	}
	s.notifier.NotifyQuietly(ctx, notice)

	return updated, nil
}

// transitionMessage укладывается в лимит уведомления, полная причина уходит в Data
func transitionMessage(actor string, next models.SwapStatus, reason string) string {
	switch next {
	case models.SwapAccepted:
		return actor + " accepted your swap request"
	case models.SwapRejected:
		return models.NoticeWithDetail(actor+" rejected your swap request", ": ", reason)
	case models.SwapCancelled:
		return models.NoticeWithDetail(actor+" cancelled their swap request", ": ", reason)
	default:
		return actor + " marked the swap as completed"
	}
}

func partyName(sw *models.Swap, id uuid.UUID) string {
	party := sw.ToUser
	if id == sw.FromUserID {
		party = sw.FromUser
	}
	if party == nil || party.Name == "" {
		return "Your swap partner"
	}
	return party.Name
}

// Delete удаляет собственный запрос в статусе pending или cancelled
func (s *SwapService) Delete(ctx context.Context, actor, id uuid.UUID) error {
	sw, err := s.swaps.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := sw.CheckDelete(actor); err != nil {
		return err
	}
	return s.swaps.DeleteOwn(ctx, id)
}

// List возвращает обмены пользователя по фильтру
func (s *SwapService) List(ctx context.Context, f models.SwapFilter) ([]*models.Swap, models.Pagination, error) {
	switch f.Type {
	case "", "all", "sent", "received":
	default:
		return nil, models.Pagination{}, models.NewValidationError("type", "Invalid type filter")
	}

	swaps, total, err := s.swaps.List(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return swaps, f.Page.Paginate(total), nil
}

// Stats считает обмены пользователя по статусам
func (s *SwapService) Stats(ctx context.Context, userID uuid.UUID) (models.SwapStats, error) {
	return s.swaps.Stats(ctx, &userID)
}
