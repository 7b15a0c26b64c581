package payments

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lubrihub/storefront-backend/pkg/db"
	"github.com/lubrihub/storefront-backend/pkg/db/dbtest"
)

type fakeGateway struct {
	mu          sync.Mutex
	initiateErr error
	initiate    *GatewayTransaction
	status      *GatewayTransaction
	statusErrs  []error
	refund      *GatewayRefund
	refundErr   error

	initiateCalls []InitiateCommand
	statusCalls   int
	refundCalls   []RefundCommand
}

func (f *fakeGateway) Initiate(_ context.Context, cmd InitiateCommand) (*GatewayTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initiateCalls = append(f.initiateCalls, cmd)
	if f.initiateErr != nil {
		return nil, f.initiateErr
	}
	out := *f.initiate
	return &out, nil
}

func (f *fakeGateway) Status(_ context.Context, _ string) (*GatewayTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if len(f.statusErrs) > 0 {
		err := f.statusErrs[0]
		f.statusErrs = f.statusErrs[1:]
		return nil, err
	}
	out := *f.status
	return &out, nil
}

func (f *fakeGateway) Refund(_ context.Context, _ string, cmd RefundCommand) (*GatewayRefund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refundCalls = append(f.refundCalls, cmd)
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	out := *f.refund
	out.RefundID = fmt.Sprintf("%s_%d", out.RefundID, len(f.refundCalls))
	return &out, nil
}

type memoryEventStore struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newMemoryEventStore() *memoryEventStore {
	return &memoryEventStore{keys: map[string]struct{}{}}
}

func (m *memoryEventStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = struct{}{}
	return true, nil
}

func (m *memoryEventStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func (m *memoryEventStore) WebhookEventKey(provider, eventID string) string {
	return "lh:webhook:" + provider + ":" + eventID
}

const testWebhookSecret = "whsec_test"

type serviceFixture struct {
	svc     *Service
	repo    Repository
	gateway *fakeGateway
	now     time.Time
}

func newServiceFixture(t *testing.T, gw *fakeGateway) *serviceFixture {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	guard, err := NewWebhookGuard(newMemoryEventStore(), time.Hour, "gateway")
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{
		Repo:          repo,
		TxRunner:      db.FromGorm(conn),
		Gateways:      &Router{Default: gw},
		Guard:         guard,
		WebhookSecret: testWebhookSecret,
		CallbackURL:   "https://shop.example.test/api/v1/webhooks/payments",
		PollRetries:   2,
		PollBackoff:   time.Millisecond,
		Now:           func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &serviceFixture{svc: svc, repo: repo, gateway: gw, now: now}
}

func pendingGateway(id string) *fakeGateway {
	return &fakeGateway{
		initiate: &GatewayTransaction{TransactionID: id, Status: "pending", ProviderReference: "MPX" + id},
		status:   &GatewayTransaction{TransactionID: id, Status: "pending"},
		refund:   &GatewayRefund{RefundID: "rf_" + id, Status: "pending"},
	}
}
