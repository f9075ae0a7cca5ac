package poller

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"oms/mpsync/internal/domains/common/job"
	"oms/mpsync/internal/entity"
	"oms/mpsync/internal/marketplace"
	"oms/mpsync/pkg/config"
	"oms/mpsync/pkg/errorutil"
	"oms/mpsync/pkg/logger"
)

type fakeMarketplace struct {
	pages map[string][]*marketplace.OrderPage // campaignID -> pages
}

func (f *fakeMarketplace) ListOrders(ctx context.Context, campaignID string, filter marketplace.ListFilter) (*marketplace.OrderPage, error) {
	pages, ok := f.pages[campaignID]
	if !ok || filter.Page > len(pages) {
		return &marketplace.OrderPage{}, nil
	}
	return pages[filter.Page-1], nil
}

func (f *fakeMarketplace) GetOrder(ctx context.Context, campaignID string, orderID int64) (*marketplace.RawOrder, error) {
	return nil, errorutil.NotFound("not used")
}

func (f *fakeMarketplace) PushStatus(ctx context.Context, campaignID string, orderID int64, status, substatus string) error {
	return nil
}

type fakeProfiles struct {
	profiles []entity.Profile
}

func (f *fakeProfiles) ListProfiles(ctx context.Context) ([]entity.Profile, error) {
	return f.profiles, nil
}

type fakeCompleted struct {
	orders map[int64][]entity.Order
}

func (f *fakeCompleted) ListCompletedSince(ctx context.Context, profileID int64, since time.Time) ([]entity.Order, error) {
	return f.orders[profileID], nil
}

type published struct {
	queue string
	data  *job.JobPayloadData
}

type fakePublisher struct {
	jobs []published
}

func (f *fakePublisher) Publish(queue string, data []byte, ttl, delay uint32) error {
	var envelope job.Job
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	f.jobs = append(f.jobs, published{queue: queue, data: envelope.Payload.Data})
	return nil
}

func rawOrder(id int64) marketplace.RawOrder {
	return marketplace.RawOrder{
		ID:     id,
		Status: "PROCESSING",
		Items: []marketplace.RawItem{
			{OfferID: "SKU-1", PriceBeforeDiscount: decimal.NewFromInt(100), Count: 1},
		},
	}
}

func pollerConfig() *config.PollerConfig {
	return &config.PollerConfig{
		Interval:          time.Minute,
		PageSize:          50,
		SyncQueuePrefix:   "mp_order_sync",
		CancelCheckWindow: 24 * time.Hour,
	}
}

func TestRunOnceEnqueuesSyncJobs(t *testing.T) {
	mp := &fakeMarketplace{pages: map[string][]*marketplace.OrderPage{
		"111": {
			{
				Orders:  []marketplace.RawOrder{rawOrder(1), rawOrder(2)},
				HasNext: true,
			},
			{
				Orders: []marketplace.RawOrder{rawOrder(3)},
			},
		},
	}}
	pub := &fakePublisher{}
	p := NewPoller(pollerConfig(), "MP", mp,
		&fakeProfiles{profiles: []entity.Profile{{ID: 7, CampaignID: "111"}}},
		&fakeCompleted{}, pub, logger.NewNopLogger())

	require.NoError(t, p.RunOnce(context.Background()))

	require.Len(t, pub.jobs, 3)
	for _, j := range pub.jobs {
		assert.Equal(t, "mp_order_sync_p7", j.queue)
		assert.Equal(t, job.ActionOrderSync, j.data.ActionType)
		assert.Equal(t, int64(7), j.data.ProfileID)
		assert.NotEmpty(t, j.data.RequestID)
	}
	assert.Equal(t, "MP-1", pub.jobs[0].data.ID)
	assert.Equal(t, "MP-3", pub.jobs[2].data.ID)
}

func TestRunOnceWalksAllCampaigns(t *testing.T) {
	extras, _ := json.Marshal([]string{"222"})
	mp := &fakeMarketplace{pages: map[string][]*marketplace.OrderPage{
		"111": {{Orders: []marketplace.RawOrder{rawOrder(1)}}},
		"222": {{Orders: []marketplace.RawOrder{rawOrder(2)}}},
	}}
	pub := &fakePublisher{}
	p := NewPoller(pollerConfig(), "MP", mp,
		&fakeProfiles{profiles: []entity.Profile{
			{ID: 7, CampaignID: "111", ExtraCampaignIDs: datatypes.JSON(extras)},
		}},
		&fakeCompleted{}, pub, logger.NewNopLogger())

	require.NoError(t, p.RunOnce(context.Background()))
	assert.Len(t, pub.jobs, 2)
}

func TestRunOnceEnqueuesCancelChecks(t *testing.T) {
	pub := &fakePublisher{}
	completed := &fakeCompleted{orders: map[int64][]entity.Order{
		7: {
			{Number: "MP-9001", ExternalID: 9001, CampaignID: "111", Status: entity.OrderStatusCompleted},
		},
	}}
	p := NewPoller(pollerConfig(), "MP", &fakeMarketplace{},
		&fakeProfiles{profiles: []entity.Profile{{ID: 7, CampaignID: "111"}}},
		completed, pub, logger.NewNopLogger())

	require.NoError(t, p.RunOnce(context.Background()))

	require.Len(t, pub.jobs, 1)
	assert.Equal(t, job.ActionOrderCancelCheck, pub.jobs[0].data.ActionType)
	assert.Equal(t, "MP-9001", pub.jobs[0].data.ID)

	// payload carries the originating campaign for a direct lookup
	payload, err := json.Marshal(pub.jobs[0].data.Data)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"campaign_id":"111"`)
	assert.Contains(t, string(payload), `"external_order_id":9001`)
}

func TestRunOnceAdvancesCursorOnlyOnSuccess(t *testing.T) {
	pub := &fakePublisher{}
	p := NewPoller(pollerConfig(), "MP", &fakeMarketplace{},
		&fakeProfiles{profiles: nil}, &fakeCompleted{}, pub, logger.NewNopLogger())

	assert.True(t, p.lastRun.IsZero())
	require.NoError(t, p.RunOnce(context.Background()))
	assert.False(t, p.lastRun.IsZero())
}
