package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/desmond009/Twin-up/internal/metrics"
	"github.com/desmond009/Twin-up/internal/models"
	"github.com/desmond009/Twin-up/internal/utils"
)

// notificationStore - операции хранилища, нужные сервису
type notificationStore interface {
	Create(ctx context.Context, n models.NewNotification, now time.Time) (*models.Notification, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, f models.NotificationFilter) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, now time.Time) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountNotOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error)
	DeleteOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error)
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Pusher доставляет события в живые соединения пользователя
type Pusher interface {
	PushNotification(userID uuid.UUID, n *models.Notification, unread int)
	BroadcastUnreadCount(userID uuid.UUID, unread int)
}

// NotificationService управляет уведомлениями пользователей
type NotificationService struct {
	store      notificationStore
	tx         txRunner
	pusher     Pusher
	jwtService *utils.JWTService
	now        func() time.Time
}

// NewNotificationService создает новый экземпляр NotificationService
func NewNotificationService(store notificationStore, tx txRunner, pusher Pusher, jwtService *utils.JWTService) *NotificationService {
	return &NotificationService{
		store:      store,
		tx:         tx,
		pusher:     pusher,
		jwtService: jwtService,
		now:        time.Now,
	}
}

// WithNow подменяет часы
func (s *NotificationService) WithNow(now func() time.Time) *NotificationService {
	s.now = now
	return s
}

// Notify сохраняет уведомление и отправляет его получателю, если он в сети
func (s *NotificationService) Notify(ctx context.Context, in models.NewNotification) (*models.Notification, error) {
	if err := in.Prepare(); err != nil {
		return nil, err
	}

	n, err := s.store.Create(ctx, in, s.now())
	if err != nil {
		return nil, err
	}
	metrics.RecordNotification(string(n.Type), 1)

	s.push(ctx, n)
	return n, nil
}

// NotifyQuietly создает уведомление как побочный эффект: ошибка только логируется
func (s *NotificationService) NotifyQuietly(ctx context.Context, in models.NewNotification) {
	if _, err := s.Notify(ctx, in); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user": in.UserID,
			"type": in.Type,
		}).Warn("⚠️ Не удалось создать уведомление")
	}
}

func (s *NotificationService) push(ctx context.Context, n *models.Notification) {
	if s.pusher == nil {
		return
	}
	unread, err := s.store.CountUnread(ctx, n.UserID)
	if err != nil {
		log.WithError(err).WithField("user", n.UserID).Warn("Не удалось посчитать непрочитанные")
		return
	}
	s.pusher.PushNotification(n.UserID, n, unread)
}

// RefreshUnread отправляет пользователям актуальное количество непрочитанных
func (s *NotificationService) RefreshUnread(ctx context.Context, userIDs ...uuid.UUID) {
	if s.pusher == nil {
		return
	}
	for _, id := range userIDs {
		unread, err := s.store.CountUnread(ctx, id)
		if err != nil {
			log.WithError(err).WithField("user", id).Warn("Не удалось посчитать непрочитанные")
			continue
		}
		s.pusher.BroadcastUnreadCount(id, unread)
	}
}

// NotificationPage - страница уведомлений с количеством непрочитанных
type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
	Pagination    models.Pagination     `json:"pagination"`
}

// List возвращает уведомления пользователя, новые первыми
func (s *NotificationService) List(ctx context.Context, f models.NotificationFilter) (*NotificationPage, error) {
	items, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.CountUnread(ctx, f.UserID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{
		Notifications: items,
		UnreadCount:   unread,
		Pagination:    f.Page.Paginate(total),
	}, nil
}

// UnreadCount возвращает количество непрочитанных уведомлений
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

// MarkRead отмечает уведомления прочитанными, ids == nil - все
func (s *NotificationService) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	n, err := s.store.MarkRead(ctx, userID, ids, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.RefreshUnread(ctx, userID)
	}
	return n, nil
}

// Delete удаляет уведомление владельца
func (s *NotificationService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	n, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return models.Errorf(models.ErrForbidden, "Not authorized to delete this notification")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if !n.Read {
		s.RefreshUnread(ctx, userID)
	}
	return nil
}

// DeleteMany удаляет набор уведомлений целиком или не удаляет ни одного
func (s *NotificationService) DeleteMany(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, models.NewValidationError("notification_ids", "Notification IDs are required")
	}

	refused := models.Errorf(models.ErrForbidden, "Some notifications are not authorized for deletion")

	var deleted int
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		foreign, err := s.store.CountNotOwned(ctx, userID, ids)
		if err != nil {
			return err
		}
		if foreign > 0 {
			return refused
		}

		deleted, err = s.store.DeleteOwned(ctx, userID, ids)
		if err != nil {
			return err
		}
		// Несуществующие ID тоже отклоняют всю операцию
		if deleted != len(ids) {
			return refused
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.RefreshUnread(ctx, userID)
	return deleted, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
