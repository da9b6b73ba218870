package approval

import (
	"context"
	"fmt"
	"sync"
	"testing"

	common_models "go-approvals/internal/common/models"
	"go-approvals/internal/config"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const tenant = "tenant-1"

type MockDirectory struct {
	Roles    map[string][]string
	Managers map[string]string
	Calls    int
	mu       sync.Mutex
}

func (m *MockDirectory) MembersWithRole(ctx context.Context, tenantID, role string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if tenantID != tenant {
		return nil, nil
	}
	return append([]string(nil), m.Roles[role]...), nil
}

func (m *MockDirectory) ManagerOf(ctx context.Context, tenantID, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if tenantID != tenant {
		return "", nil
	}
	return m.Managers[userID], nil
}

type MockRecords struct {
	Records map[string]map[string]any
}

func (m *MockRecords) Snapshot(ctx context.Context, tenantID, objectType, recordID string) (map[string]any, error) {
	rec, ok := m.Records[objectType+"/"+recordID]
	if !ok || tenantID != tenant {
		return nil, fmt.Errorf("record %s: %w", recordID, ErrNotFound)
	}
	return rec, nil
}

type MockPublisher struct {
	mu     sync.Mutex
	Events []common_models.ApprovalEvent
}

func (m *MockPublisher) Publish(ctx context.Context, event common_models.ApprovalEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

func (m *MockPublisher) Types() []common_models.ApprovalEventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]common_models.ApprovalEventType, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Type
	}
	return out
}

// ConflictingRequests fails the first Failures commits with a version conflict.
type ConflictingRequests struct {
	RequestRepository
	Failures int
	Commits  int
	mu       sync.Mutex
}

func (r *ConflictingRequests) Commit(ctx context.Context, req *ApprovalRequest, expectedVersion int64, action *common_models.ApprovalAction) error {
	r.mu.Lock()
	r.Commits++
	fail := r.Commits <= r.Failures
	r.mu.Unlock()
	if fail {
		return errVersionConflict
	}
	return r.RequestRepository.Commit(ctx, req, expectedVersion, action)
}

// put stores a projection as-is to simulate a lost projection write.
func (r *MemoryRequestRepository) put(req ApprovalRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[req.ID] = req
}

type testEnv struct {
	storage   Storage
	directory *MockDirectory
	records   *MockRecords
	publisher *MockPublisher
	lifecycle *LifecycleManagerImpl
	registry  ProcessRegistry
	checker   *ConsistencyChecker
	cfg       *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		AllowSelfApproval:   true,
		CASMaxAttempts:      3,
		CASBackoffMinMs:     1,
		CASBackoffMaxMs:     5,
		InboxConcurrency:    4,
		ConsistencySchedule: "",
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, testConfig(), nil)
}

// newTestEnvWith builds the engine on memory storage. wrap, when given, may
// decorate the request repository the lifecycle manager writes through.
func newTestEnvWith(t *testing.T, cfg *config.Config, wrap func(RequestRepository) RequestRepository) *testEnv {
	t.Helper()
	storage := NewMemoryStorage()
	directory := &MockDirectory{
		Roles: map[string][]string{
			"ADMIN":   {"ada", "abe"},
			"FINANCE": {"fin"},
		},
		Managers: map[string]string{
			"sam": "mia",
			"ada": "mia",
		},
	}
	records := &MockRecords{Records: map[string]map[string]any{
		"deal/big":   {"amount": 150000, "stage": "Negotiation", "discount": 10},
		"deal/small": {"amount": 5000, "stage": "Prospecting"},
		"deal/bare":  {"stage": "Prospecting"},
		"deal/other": {"amount": 250000},
	}}
	publisher := &MockPublisher{}
	logger := zap.NewNop()

	requests := storage.Requests
	if wrap != nil {
		requests = wrap(requests)
	}
	resolver := NewApproverResolver(directory, cfg)
	lifecycle := NewLifecycleManager(storage.Processes, requests, resolver, records, publisher, logger, cfg).(*LifecycleManagerImpl)
	registry := NewProcessRegistry(storage.Processes, storage.Requests, lifecycle, logger)
	checker := NewConsistencyChecker(storage.Processes, storage.Requests, storage.Actions, lifecycle, logger, cfg)

	return &testEnv{
		storage:   storage,
		directory: directory,
		records:   records,
		publisher: publisher,
		lifecycle: lifecycle,
		registry:  registry,
		checker:   checker,
		cfg:       cfg,
	}
}

// activeProcess creates and activates a process over deals.
func (e *testEnv) activeProcess(t *testing.T, criteria string, steps ...ApprovalStep) *ApprovalProcess {
	t.Helper()
	ctx := context.Background()
	p, err := e.registry.Create(ctx, tenant, "admin", ProcessInput{
		Name:          "Deal approval",
		ObjectType:    "deal",
		EntryCriteria: criteria,
		Steps:         steps,
	})
	require.NoError(t, err)
	p, err = e.registry.SetStatus(ctx, tenant, p.ID, ProcessActive)
	require.NoError(t, err)
	return p
}

func roleStep(n int, role string) ApprovalStep {
	return ApprovalStep{StepNumber: n, Name: fmt.Sprintf("Step %d", n), ApproverType: ApproverRole, ApproverRole: role}
}

func managerStep(n int) ApprovalStep {
	return ApprovalStep{StepNumber: n, Name: fmt.Sprintf("Step %d", n), ApproverType: ApproverManager}
}

func userStep(n int, user string) ApprovalStep {
	return ApprovalStep{StepNumber: n, Name: fmt.Sprintf("Step %d", n), ApproverType: ApproverSpecificUser, ApproverUser: user}
}

func (e *testEnv) submit(t *testing.T, processID, recordID, submitter string) *ApprovalRequest {
	t.Helper()
	req, err := e.lifecycle.Submit(context.Background(), SubmitInput{
		TenantID:    tenant,
		ProcessID:   processID,
		RecordID:    recordID,
		SubmitterID: submitter,
	})
	require.NoError(t, err)
	return req
}
