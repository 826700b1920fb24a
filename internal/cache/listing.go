package cache

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/jobsphere/internal/metrics"
	"github.com/yoockh/jobsphere/internal/models"
)

const (
	JobsPrefix = "jobs:"
	allToken   = "ALL"

	DefaultListingTTL = 60 * time.Second
	DefaultScanBatch  = 100
)

// JobsKey derives the listing cache key for f. Inputs differing only in case or
// surrounding whitespace map to the same key.
func JobsKey(f models.JobFilter) string {
	return JobsPrefix + keyPart(f.Type) + ":" + keyPart(f.Location) + ":" + keyPart(f.Search)
}

func keyPart(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return allToken
	}
	// percent-encode so ':' in user input cannot shift key segments
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// JobListings is the read-through cache in front of the public job search.
// Cache failures are logged and counted, never returned.
type JobListings struct {
	cache Cache
	ttl   time.Duration
	batch int64
	log   *logrus.Logger
}

func NewJobListings(c Cache, ttl time.Duration, scanBatch int64, log *logrus.Logger) *JobListings {
	if c == nil {
		c = Nop{}
	}
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	if scanBatch <= 0 {
		scanBatch = DefaultScanBatch
	}
	if log == nil {
		log = logrus.New()
	}
	return &JobListings{cache: c, ttl: ttl, batch: scanBatch, log: log}
}

// Fetch returns the cached listing for f, or calls load and caches its result.
// Only an error from load is returned.
func (l *JobListings) Fetch(ctx context.Context, f models.JobFilter, load func(context.Context) ([]models.Job, error)) ([]models.Job, error) {
	key := JobsKey(f)

	var jobs []models.Job
	hit, err := l.cache.GetJSON(ctx, key, &jobs)
	switch {
	case err != nil:
		metrics.RecordCache(metrics.CacheError)
		l.log.WithError(err).WithField("key", key).Warn("listing cache read failed")
	case hit:
		metrics.RecordCache(metrics.CacheHit)
		return jobs, nil
	default:
		metrics.RecordCache(metrics.CacheMiss)
	}

	jobs, err = load(ctx)
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []models.Job{}
	}

	if err := l.cache.SetJSON(ctx, key, jobs, l.ttl); err != nil {
		metrics.RecordCache(metrics.CacheError)
		l.log.WithError(err).WithField("key", key).Warn("listing cache write failed")
	}
	return jobs, nil
}

// Invalidate drops every listing entry. It reports how many keys were removed.
func (l *JobListings) Invalidate(ctx context.Context) int {
	metrics.RecordCache(metrics.CacheInvalidate)

	keys, err := l.cache.Keys(ctx, JobsPrefix+"*", l.batch)
	if err != nil {
		metrics.RecordCache(metrics.CacheError)
		l.log.WithError(err).Warn("listing cache scan failed")
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	if err := l.cache.Del(ctx, keys...); err != nil {
		metrics.RecordCache(metrics.CacheError)
		l.log.WithError(err).WithField("keys", len(keys)).Warn("listing cache invalidation failed")
		return 0
	}
	metrics.RecordInvalidatedKeys(len(keys))
	l.log.WithField("keys", len(keys)).Debug("listing cache invalidated")
	return len(keys)
}
