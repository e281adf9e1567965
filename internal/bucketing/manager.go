package bucketing

import (
	"hash"
	"sync"
	"time"

	"election-service/internal/config"

	"github.com/spaolacci/murmur3"
)

// BucketingManager spreads voters across Scylla partitions and events across Kafka keys.
type BucketingManager struct {
	voterBuckets int
	eventBuckets int
	hasherPool   sync.Pool
}

func NewBucketingManager(cfg *config.Config) *BucketingManager {
	bm := &BucketingManager{
		voterBuckets: positive(cfg.Bucketing.VoterBuckets, 16),
		eventBuckets: positive(cfg.Bucketing.EventBuckets, 64),
	}

	// pooled to avoid allocating a hasher per lookup
	bm.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return bm
}

// VoterBucket returns the partition bucket for a voter id (0 to VoterBuckets-1).
func (bm *BucketingManager) VoterBucket(voterID string) int {
	return bm.getBucket(voterID, bm.voterBuckets)
}

// UsernameBucket partitions the username lookup table.
func (bm *BucketingManager) UsernameBucket(username string) int {
	return bm.getBucket("username:"+username, bm.voterBuckets)
}

// EventBucket returns the bucket used as the event partition key.
func (bm *BucketingManager) EventBucket(identifier string) int {
	return bm.getBucket(identifier, bm.eventBuckets)
}

// DateBucket returns the UTC day used to partition audit and analytics rows.
func (bm *BucketingManager) DateBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// VoterBuckets returns every voter bucket, for scatter reads.
func (bm *BucketingManager) VoterBuckets() []int {
	buckets := make([]int, bm.voterBuckets)
	for i := range buckets {
		buckets[i] = i
	}
	return buckets
}

func (bm *BucketingManager) getBucket(key string, numBuckets int) int {
	return int(bm.getHash(key) % uint64(numBuckets))
}

func (bm *BucketingManager) getHash(key string) uint64 {
	hasher := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	return hasher.Sum64()
}

func positive(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
