package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/jobsphere/internal/mail"
	"github.com/yoockh/jobsphere/internal/metrics"
)

type MailWorkerPool struct {
	Redis      *redis.Client
	Sender     mail.Sender
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
	SendTimeout    time.Duration
	Block          time.Duration

	wg sync.WaitGroup
}

func (p *MailWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Sender == nil {
		return errors.New("MailWorkerPool missing dependency: Redis/Sender must be set")
	}
	if p.Stream == "" {
		p.Stream = DefaultMailStream
	}
	if p.Group == "" {
		p.Group = "mail-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Block <= 0 {
		p.Block = 5 * time.Second
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.runConsumer(ctx, consumer)
		}()
	}
	return nil
}

// Wait blocks until every consumer has returned after ctx is cancelled.
func (p *MailWorkerPool) Wait() { p.wg.Wait() }

func (p *MailWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    p.Block,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("mail stream read failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(context.WithoutCancel(ctx), p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *MailWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	log := p.Logger.WithField("redis_id", msg.ID)

	raw, _ := msg.Values[payloadField].(string)
	var m mail.Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		log.WithError(err).Warn("mail payload decode failed, dropping")
		return
	}
	log = log.WithFields(logrus.Fields{"to": m.To, "subject": m.Subject})

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), durationOr(p.SendTimeout, 15*time.Second))
	defer cancel()

	err := p.Sender.Send(sendCtx, m)
	metrics.RecordMail("worker", err)
	if err != nil {
		log.WithError(err).Error("mail send failed")
		return
	}
	log.Debug("mail sent")
}
