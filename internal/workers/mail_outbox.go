package workers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/jobsphere/internal/mail"
	"github.com/yoockh/jobsphere/internal/metrics"
)

const (
	DefaultMailStream = "mail:outbox"
	payloadField      = "payload"
)

// MailOutbox hands messages off without making the caller wait on SMTP.
// Messages go to a Redis stream drained by MailWorkerPool; when Redis is absent
// or unreachable they are sent directly in a detached goroutine.
type MailOutbox struct {
	Redis  *redis.Client
	Sender mail.Sender
	Logger *logrus.Logger

	Stream         string
	EnqueueTimeout time.Duration
	SendTimeout    time.Duration

	wg sync.WaitGroup
}

func (o *MailOutbox) stream() string {
	if o.Stream == "" {
		return DefaultMailStream
	}
	return o.Stream
}

func (o *MailOutbox) logger() *logrus.Logger {
	if o.Logger == nil {
		return logrus.StandardLogger()
	}
	return o.Logger
}

// Dispatch never fails the caller; delivery problems are logged.
func (o *MailOutbox) Dispatch(ctx context.Context, msg mail.Message) {
	log := o.logger().WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject})

	if o.Redis != nil {
		err := o.enqueue(ctx, msg)
		metrics.RecordMail("queued", err)
		if err == nil {
			return
		}
		log.WithError(err).Warn("mail enqueue failed, sending directly")
	}

	if o.Sender == nil {
		log.Error("mail dropped: no sender configured")
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.Background(), durationOr(o.SendTimeout, 15*time.Second))
		defer cancel()

		err := o.Sender.Send(sendCtx, msg)
		metrics.RecordMail("direct", err)
		if err != nil {
			log.WithError(err).Error("mail send failed")
		}
	}()
}

func (o *MailOutbox) enqueue(ctx context.Context, msg mail.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	// detached from request cancellation, bounded by the enqueue timeout
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), durationOr(o.EnqueueTimeout, 2*time.Second))
	defer cancel()

	return o.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: o.stream(),
		Values: map[string]any{payloadField: string(b)},
	}).Err()
}

// Wait blocks until every direct send started by Dispatch has finished.
func (o *MailOutbox) Wait() { o.wg.Wait() }

func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
