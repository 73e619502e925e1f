package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"stagecast/internal/app"
	"stagecast/internal/domain"
)

// ActivityCache is a read-through cache in front of an ActivityStore. The
// live activity of an event is read on every participant action, so single
// reads go through Redis with singleflight collapsing concurrent misses.
// Writes pass through to the inner store and invalidate the cached record.
type ActivityCache struct {
	client *redis.Client
	inner  app.ActivityStore
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewActivityCache(client *redis.Client, inner app.ActivityStore, ttl time.Duration) *ActivityCache {
	return &ActivityCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ActivityCache) key(activityID string) string {
	return "activity:" + activityID
}

func (c *ActivityCache) FindActivityByID(ctx context.Context, activityID string) (domain.Activity, error) {
	data, err := c.client.Get(ctx, c.key(activityID)).Result()
	if err == nil {
		var activity domain.Activity
		if err := json.Unmarshal([]byte(data), &activity); err == nil {
			return activity, nil
		}
	}

	result, err, _ := c.sf.Do(activityID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		data, err := c.client.Get(ctx, c.key(activityID)).Result()
		if err == nil {
			var activity domain.Activity
			if err := json.Unmarshal([]byte(data), &activity); err == nil {
				return activity, nil
			}
		}

		activity, err := c.inner.FindActivityByID(ctx, activityID)
		if err != nil {
			return domain.Activity{}, err
		}
		if encoded, err := json.Marshal(activity); err == nil {
			_ = c.client.Set(ctx, c.key(activityID), encoded, c.ttlWithJitter()).Err()
		}
		return activity, nil
	})
	if err != nil {
		return domain.Activity{}, err
	}
	return result.(domain.Activity), nil
}

// FindActivitiesByEvent is a list read; it always hits the inner store.
func (c *ActivityCache) FindActivitiesByEvent(ctx context.Context, eventID string) ([]domain.Activity, error) {
	return c.inner.FindActivitiesByEvent(ctx, eventID)
}

func (c *ActivityCache) CreateActivity(ctx context.Context, activity domain.Activity) error {
	if err := c.inner.CreateActivity(ctx, activity); err != nil {
		return err
	}
	return c.invalidate(ctx, activity.ID)
}

func (c *ActivityCache) UpdateActivity(ctx context.Context, activity domain.Activity) error {
	if err := c.inner.UpdateActivity(ctx, activity); err != nil {
		return err
	}
	return c.invalidate(ctx, activity.ID)
}

func (c *ActivityCache) SetActivityStatus(ctx context.Context, activityID string, status domain.ActivityStatus) error {
	if err := c.inner.SetActivityStatus(ctx, activityID, status); err != nil {
		return err
	}
	return c.invalidate(ctx, activityID)
}

func (c *ActivityCache) DeleteActivity(ctx context.Context, activityID string) error {
	if err := c.inner.DeleteActivity(ctx, activityID); err != nil {
		return err
	}
	return c.invalidate(ctx, activityID)
}

func (c *ActivityCache) invalidate(ctx context.Context, activityID string) error {
	if err := c.client.Del(ctx, c.key(activityID)).Err(); err != nil {
		return domain.Transientf(err, "redis: invalidate activity %s", activityID)
	}
	return nil
}

func (c *ActivityCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

var _ app.ActivityStore = (*ActivityCache)(nil)
