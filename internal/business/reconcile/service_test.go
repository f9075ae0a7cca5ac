package reconcile

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oms/mpsync/internal/business/snapshot"
	"oms/mpsync/internal/entity"
	"oms/mpsync/internal/marketplace"
	"oms/mpsync/pkg/errorutil"
	"oms/mpsync/pkg/logger"
)

type fakeCatalog struct {
	refs map[string]*CatalogRef
}

func (f *fakeCatalog) ResolveByArticle(ctx context.Context, article string) (*CatalogRef, error) {
	if ref, ok := f.refs[article]; ok {
		return ref, nil
	}
	return nil, errorutil.NotFound(fmt.Sprintf("article %q not found", article))
}

type fakeAccounts struct {
	accounts map[int64]int64
}

func (f *fakeAccounts) AccountForProfile(ctx context.Context, profileID int64) (int64, error) {
	if id, ok := f.accounts[profileID]; ok {
		return id, nil
	}
	return 0, errorutil.NotFound(fmt.Sprintf("no account for profile %d", profileID))
}

type fakeStore struct {
	orders      map[string]*entity.Order
	creates     int
	transitions int
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[string]*entity.Order)}
}

func (f *fakeStore) GetByNumber(ctx context.Context, number string) (*entity.Order, error) {
	order, ok := f.orders[number]
	if !ok {
		return nil, errorutil.NotFound(fmt.Sprintf("order %s not found", number))
	}
	copied := *order
	return &copied, nil
}

func (f *fakeStore) Create(ctx context.Context, order *entity.Order) error {
	f.creates++
	f.orders[order.Number] = order
	return nil
}

func (f *fakeStore) ApplyTransition(ctx context.Context, number string, version int64, updates map[string]interface{}) error {
	order, ok := f.orders[number]
	if !ok || order.Version != version {
		return errorutil.Conflict(fmt.Sprintf("order %s version mismatch", number))
	}

	f.transitions++
	order.Version++
	if status, ok := updates["status"].(string); ok {
		order.Status = status
	}
	if reason, ok := updates["cancel_reason"].(string); ok {
		order.CancelReason = reason
	}
	if pin, ok := updates["pinned_account_id"]; ok && pin == nil {
		order.PinnedAccountID = nil
	}
	return nil
}

type fakeDedup struct {
	seen     map[string]bool
	commits  int
	checkErr error
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{seen: make(map[string]bool)}
}

func (f *fakeDedup) key(namespace string, parts []string) string {
	return namespace + ":" + strings.Join(parts, ":")
}

func (f *fakeDedup) Check(ctx context.Context, namespace string, parts ...string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return !f.seen[f.key(namespace, parts)], nil
}

func (f *fakeDedup) Commit(ctx context.Context, namespace string, ttl time.Duration, parts ...string) error {
	f.commits++
	f.seen[f.key(namespace, parts)] = true
	return nil
}

type inlineLocker struct{}

func (inlineLocker) WithLock(ctx context.Context, orderNo string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeMarketplace struct {
	pushed  []string
	pushErr error
}

func (f *fakeMarketplace) ListOrders(ctx context.Context, campaignID string, filter marketplace.ListFilter) (*marketplace.OrderPage, error) {
	return &marketplace.OrderPage{}, nil
}

func (f *fakeMarketplace) GetOrder(ctx context.Context, campaignID string, orderID int64) (*marketplace.RawOrder, error) {
	return nil, errorutil.NotFound("no orders in fake")
}

func (f *fakeMarketplace) PushStatus(ctx context.Context, campaignID string, orderID int64, status, substatus string) error {
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushed = append(f.pushed, fmt.Sprintf("%s/%d/%s", campaignID, orderID, status))
	return nil
}

type serviceEnv struct {
	svc     *Service
	store   *fakeStore
	dedup   *fakeDedup
	mp      *fakeMarketplace
	catalog *fakeCatalog
}

func newServiceEnv() *serviceEnv {
	catalog := &fakeCatalog{refs: map[string]*CatalogRef{
		"SKU-1": {CatalogEventID: 100},
		"SKU-2": {CatalogEventID: 200},
	}}
	accounts := &fakeAccounts{accounts: map[int64]int64{7: 700}}
	store := newFakeStore()
	dedup := newFakeDedup()
	mp := &fakeMarketplace{}

	svc := NewService(catalog, accounts, store, dedup, inlineLocker{}, mp,
		time.Hour, logger.NewNopLogger())

	return &serviceEnv{svc: svc, store: store, dedup: dedup, mp: mp, catalog: catalog}
}

func testSnapshot(status snapshot.Status, substatus string) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		ExternalID:        4001,
		Number:            "MP-4001",
		ProfileID:         7,
		CampaignID:        "111",
		ExternalSubstatus: substatus,
		DerivedStatus:     status,
		Lines: []snapshot.Line{
			{Article: "SKU-1", Currency: "RUR", Quantity: 1},
		},
	}
}

func TestReconcileCreatesUnpaidOrderWithPin(t *testing.T) {
	env := newServiceEnv()

	err := env.svc.Reconcile(context.Background(), testSnapshot(snapshot.StatusUnpaid, ""))
	require.NoError(t, err)

	order := env.store.orders["MP-4001"]
	require.NotNil(t, order)
	assert.Equal(t, entity.OrderStatusUnpaid, order.Status)
	require.NotNil(t, order.PinnedAccountID)
	assert.Equal(t, int64(700), *order.PinnedAccountID)
	assert.Equal(t, "111", order.CampaignID)
	assert.Equal(t, 1, env.dedup.commits)
}

func TestReconcileCreatesNewOrderWithoutPin(t *testing.T) {
	env := newServiceEnv()

	err := env.svc.Reconcile(context.Background(), testSnapshot(snapshot.StatusNew, ""))
	require.NoError(t, err)

	order := env.store.orders["MP-4001"]
	require.NotNil(t, order)
	assert.Equal(t, entity.OrderStatusNew, order.Status)
	assert.Nil(t, order.PinnedAccountID)
}

func TestReconcilePaymentClearsPin(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()

	require.NoError(t, env.svc.Reconcile(ctx, testSnapshot(snapshot.StatusUnpaid, "")))
	require.NoError(t, env.svc.Reconcile(ctx, testSnapshot(snapshot.StatusNew, "")))

	order := env.store.orders["MP-4001"]
	assert.Equal(t, entity.OrderStatusNew, order.Status)
	assert.Nil(t, order.PinnedAccountID)
	assert.Equal(t, 1, env.store.transitions)
}

func TestReconcileReplayIsIdempotent(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()

	require.NoError(t, env.svc.Reconcile(ctx, testSnapshot(snapshot.StatusNew, "")))
	require.NoError(t, env.svc.Reconcile(ctx, testSnapshot(snapshot.StatusNew, "")))
	require.NoError(t, env.svc.Reconcile(ctx, testSnapshot(snapshot.StatusNew, "")))

	assert.Equal(t, 1, env.store.creates)
	assert.Equal(t, 0, env.store.transitions)
	// replays are short-circuited by the guard, only the first pass commits
	assert.Equal(t, 1, env.dedup.commits)
}

func TestReconcileMidFlightSnapshotWithoutOrder(t *testing.T) {
	env := newServiceEnv()

	err := env.svc.Reconcile(context.Background(), testSnapshot(snapshot.StatusDelivery, ""))
	require.NoError(t, err)

	assert.Empty(t, env.store.orders)
	assert.Equal(t, 0, env.store.creates)
}

func TestReconcileUnresolvedProductBlocksCreation(t *testing.T) {
	env := newServiceEnv()
	snap := testSnapshot(snapshot.StatusNew, "")
	snap.Lines = []snapshot.Line{{Article: "GHOST-SKU", Currency: "RUR", Quantity: 1}}

	err := env.svc.Reconcile(context.Background(), snap)
	require.Error(t, err)
	assert.True(t, errorutil.IsKind(err, errorutil.KindUnresolvedProduct))
	assert.Empty(t, env.store.orders)
	// failed effect must not be marked as processed
	assert.Equal(t, 0, env.dedup.commits)
}

func TestReconcileNoAccountBlocksCreation(t *testing.T) {
	env := newServiceEnv()
	snap := testSnapshot(snapshot.StatusNew, "")
	snap.ProfileID = 999

	err := env.svc.Reconcile(context.Background(), snap)
	require.Error(t, err)
	assert.True(t, errorutil.IsKind(err, errorutil.KindNoAccountForProfile))
	assert.Empty(t, env.store.orders)
}

func TestReconcileCancellationWritesReason(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()

	require.NoError(t, env.svc.Reconcile(ctx, testSnapshot(snapshot.StatusNew, "")))
	require.NoError(t, env.svc.Reconcile(ctx, testSnapshot(snapshot.StatusCanceled, "USER_NOT_PAID")))

	order := env.store.orders["MP-4001"]
	assert.Equal(t, entity.OrderStatusCanceled, order.Status)
	assert.Equal(t, "order was not paid in time", order.CancelReason)
}

func TestReconcileDedupCheckFailureIsRetryable(t *testing.T) {
	env := newServiceEnv()
	env.dedup.checkErr = fmt.Errorf("redis: connection refused")

	err := env.svc.Reconcile(context.Background(), testSnapshot(snapshot.StatusNew, ""))
	require.Error(t, err)
	assert.True(t, errorutil.IsKind(err, errorutil.KindTransientNetwork))
	assert.True(t, errorutil.IsRetryable(err))
}

func TestReversalCancelsCompletedOrderOnce(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()
	env.store.orders["MP-4001"] = &entity.Order{
		Number: "MP-4001", Status: entity.OrderStatusCompleted, Version: 3,
	}

	snap := testSnapshot(snapshot.StatusCanceled, "USER_REFUSED_PRODUCT")

	require.NoError(t, env.svc.ReconcileReversal(ctx, snap))
	require.NoError(t, env.svc.ReconcileReversal(ctx, snap))

	order := env.store.orders["MP-4001"]
	assert.Equal(t, entity.OrderStatusCanceled, order.Status)
	assert.Equal(t, "buyer refused the product", order.CancelReason)
	assert.Equal(t, 1, env.store.transitions)
	assert.Equal(t, 1, env.dedup.commits)
}

func TestReversalIgnoresActiveMarketplaceOrder(t *testing.T) {
	env := newServiceEnv()
	env.store.orders["MP-4001"] = &entity.Order{
		Number: "MP-4001", Status: entity.OrderStatusCompleted, Version: 3,
	}

	err := env.svc.ReconcileReversal(context.Background(), testSnapshot(snapshot.StatusCompleted, ""))
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCompleted, env.store.orders["MP-4001"].Status)
	assert.Equal(t, 0, env.store.transitions)
}

func TestReversalMissingInternalOrderIsNoop(t *testing.T) {
	env := newServiceEnv()

	err := env.svc.ReconcileReversal(context.Background(), testSnapshot(snapshot.StatusCanceled, ""))
	require.NoError(t, err)
}

func TestPushExternalStatusDeduplicated(t *testing.T) {
	env := newServiceEnv()
	ctx := context.Background()

	require.NoError(t, env.svc.PushExternalStatus(ctx, "111", "MP-4001", 4001, "PROCESSING", "READY_TO_SHIP"))
	require.NoError(t, env.svc.PushExternalStatus(ctx, "111", "MP-4001", 4001, "PROCESSING", "READY_TO_SHIP"))

	assert.Len(t, env.mp.pushed, 1)
	assert.Equal(t, "111/4001/PROCESSING", env.mp.pushed[0])
}

func TestPushExternalStatusFailureNotCommitted(t *testing.T) {
	env := newServiceEnv()
	env.mp.pushErr = errorutil.TransientNetwork("marketplace unavailable")
	ctx := context.Background()

	err := env.svc.PushExternalStatus(ctx, "111", "MP-4001", 4001, "PROCESSING", "")
	require.Error(t, err)
	assert.Equal(t, 0, env.dedup.commits)

	// retry after recovery goes through
	env.mp.pushErr = nil
	require.NoError(t, env.svc.PushExternalStatus(ctx, "111", "MP-4001", 4001, "PROCESSING", ""))
	assert.Len(t, env.mp.pushed, 1)
}

func TestReconcileVersionConflictIsRetryable(t *testing.T) {
	env := newServiceEnv()
	env.store.orders["MP-4001"] = &entity.Order{
		Number: "MP-4001", Status: entity.OrderStatusNew, Version: 5,
	}
	// sabotage the stored version after the read by wrapping the store
	snap := testSnapshot(snapshot.StatusDelivery, "")

	// simulate a concurrent writer bumping the version between read and write
	env.store.orders["MP-4001"].Version = 5
	readThenBump := &bumpingStore{fakeStore: env.store, bumpOn: "MP-4001"}
	svc := NewService(env.catalog, &fakeAccounts{accounts: map[int64]int64{7: 700}},
		readThenBump, env.dedup, inlineLocker{}, env.mp, time.Hour, logger.NewNopLogger())

	err := svc.Reconcile(context.Background(), snap)
	require.Error(t, err)
	assert.True(t, errorutil.IsKind(err, errorutil.KindConflict))
	assert.True(t, errorutil.IsRetryable(err))
}

// bumpingStore bumps the stored version right after every read,
// so the optimistic check always fails.
type bumpingStore struct {
	*fakeStore
	bumpOn string
}

func (b *bumpingStore) GetByNumber(ctx context.Context, number string) (*entity.Order, error) {
	order, err := b.fakeStore.GetByNumber(ctx, number)
	if err == nil && number == b.bumpOn {
		b.fakeStore.orders[number].Version++
	}
	return order, err
}
