// Package scheduler запускает фоновые задачи по расписанию
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/desmond009/Twin-up/internal/metrics"
)

// NotificationSweeper удаляет прочитанные уведомления старше cutoff
type NotificationSweeper interface {
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retention периодически очищает прочитанные уведомления
type Retention struct {
	store     NotificationSweeper
	retention time.Duration
	timeout   time.Duration
	now       func() time.Time
	cron      *cron.Cron
}

// NewRetention создает задачу хранения уведомлений на retentionDays дней
func NewRetention(store NotificationSweeper, retentionDays int) *Retention {
	return &Retention{
		store:     store,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		timeout:   time.Minute,
		now:       time.Now,
		cron:      cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
	}
}

// WithNow подменяет часы
func (r *Retention) WithNow(now func() time.Time) *Retention {
	r.now = now
	return r
}

// Sweep выполняет одну очистку и возвращает число удаленных записей
func (r *Retention) Sweep(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cutoff := r.now().Add(-r.retention)
	n, err := r.store.DeleteReadOlderThan(ctx, cutoff)
	if err != nil {
		log.WithError(err).Error("❌ Ошибка очистки уведомлений")
		return 0, err
	}

	metrics.RecordSweep(n)
	log.WithFields(log.Fields{"deleted": n, "cutoff": cutoff.Format(time.RFC3339)}).Info("🧹 Старые уведомления удалены")
	return n, nil
}

// Start регистрирует задачу по cron-выражению spec и запускает планировщик
func (r *Retention) Start(spec string) error {
	if _, err := r.cron.AddFunc(spec, func() {
		_, _ = r.Sweep(context.Background())
	}); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop останавливает планировщик и ждет текущую задачу
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
}
