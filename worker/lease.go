package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const leaseKeyPrefix = "campaign_lease:"

// CampaignLease is a short-TTL advisory lock per campaign, backed by redis
// SETNX. It narrows the tick-overlap window; the scheduler stays correct
// without it because due counts are re-derived from the ledger every tick.
type CampaignLease struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCampaignLease(client *redis.Client, ttl time.Duration) *CampaignLease {
	return &CampaignLease{client: client, ttl: ttl}
}

// Acquire attempts to take the lease. false means another tick holds it.
func (cl *CampaignLease) Acquire(ctx context.Context, campaignID uint) (bool, error) {
	return cl.client.SetNX(ctx, leaseKey(campaignID), 1, cl.ttl).Result()
}

// Release frees the lease early instead of waiting for the TTL. Best-effort:
// if the delete fails the TTL still bounds the hold time.
func (cl *CampaignLease) Release(ctx context.Context, campaignID uint) {
	cl.client.Del(ctx, leaseKey(campaignID))
}

func leaseKey(campaignID uint) string {
	return fmt.Sprintf("%s%d", leaseKeyPrefix, campaignID)
}
