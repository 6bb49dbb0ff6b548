package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"
	"topper-backend/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BundleCache is a read-through cache of reveal bundles. A nil client turns
// every method into a no-op.
//
// Each story has an invalidation counter next to its bundle. Readers take the
// counter before loading rows and Set only writes when it has not moved, so a
// bundle built before a write cannot land after that write's Invalidate.
type BundleCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBundleCache(client *redis.Client, ttl time.Duration) *BundleCache {
	return &BundleCache{client: client, ttl: ttl}
}

var errStaleBundle = errors.New("bundle invalidated while building")

func bundleKey(storyID uuid.UUID) string {
	return "story_bundle:" + storyID.String()
}

func versionKey(storyID uuid.UUID) string {
	return "story_bundle_version:" + storyID.String()
}

func (c *BundleCache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

func (c *BundleCache) Get(ctx context.Context, storyID uuid.UUID) (*models.StoryBundle, bool) {
	if !c.enabled() {
		return nil, false
	}

	raw, err := c.client.Get(ctx, bundleKey(storyID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("⚠️  Bundle cache read failed for %s: %v", storyID, err)
		}
		return nil, false
	}

	var bundle models.StoryBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		log.Printf("⚠️  Dropping unreadable cached bundle for %s: %v", storyID, err)
		c.Invalidate(ctx, storyID)
		return nil, false
	}
	return &bundle, true
}

// Version returns the story's invalidation counter, or -1 when it cannot be
// read (which makes the following Set a no-op).
func (c *BundleCache) Version(ctx context.Context, storyID uuid.UUID) int64 {
	if !c.enabled() {
		return -1
	}
	v, err := c.client.Get(ctx, versionKey(storyID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		log.Printf("⚠️  Bundle cache version read failed for %s: %v", storyID, err)
		return -1
	}
	return v
}

// Set stores the bundle if the story has not been invalidated since version
// was read.
func (c *BundleCache) Set(ctx context.Context, bundle *models.StoryBundle, version int64) {
	if !c.enabled() || bundle == nil || version < 0 {
		return
	}

	raw, err := json.Marshal(bundle)
	if err != nil {
		log.Printf("⚠️  Bundle cache encode failed for %s: %v", bundle.Story.ID, err)
		return
	}

	storyID := bundle.Story.ID
	vk := versionKey(storyID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleBundle
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, bundleKey(storyID), raw, c.ttl)
			return nil
		})
		return err
	}, vk)
	switch {
	case err == nil:
	case errors.Is(err, errStaleBundle), errors.Is(err, redis.TxFailedErr):
		log.Printf("⚠️  Skipping cache write for %s, invalidated while building", storyID)
	default:
		log.Printf("⚠️  Bundle cache write failed for %s: %v", storyID, err)
	}
}

func (c *BundleCache) Invalidate(ctx context.Context, storyID uuid.UUID) {
	if !c.enabled() {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, bundleKey(storyID))
		pipe.Incr(ctx, versionKey(storyID))
		return nil
	})
	if err != nil {
		log.Printf("⚠️  Bundle cache invalidate failed for %s: %v", storyID, err)
	}
}
