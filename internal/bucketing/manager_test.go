package bucketing

import (
	"fmt"
	"testing"
	"time"

	"election-service/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestVoterBucketIsStableAndInRange(t *testing.T) {
	cfg := &config.Config{}
	cfg.Bucketing.VoterBuckets = 8
	bm := NewBucketingManager(cfg)

	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("voter-%d", i)
		b := bm.VoterBucket(id)
		assert.GreaterOrEqual(t, b, 0)
		assert.Less(t, b, 8)
		assert.Equal(t, b, bm.VoterBucket(id))
		seen[b] = true
	}
	assert.Len(t, seen, 8, "500 ids should touch every bucket")
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, bm.VoterBuckets())
}

func TestDefaultsWhenUnset(t *testing.T) {
	bm := NewBucketingManager(&config.Config{})
	assert.Len(t, bm.VoterBuckets(), 16)
	assert.Less(t, bm.EventBucket("x"), 64)
}

func TestDateBucketUsesUTC(t *testing.T) {
	bm := NewBucketingManager(&config.Config{})
	loc := time.FixedZone("UTC+5", 5*3600)
	ts := time.Date(2024, 11, 5, 2, 0, 0, 0, loc)
	assert.Equal(t, "2024-11-04", bm.DateBucket(ts))
}
