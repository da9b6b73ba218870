package approval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const seedYAML = `
tenant_id: tenant-1
processes:
  - name: Large deal discount
    object_type: deal
    entry_criteria: "amount > 100000 AND stage = 'Negotiation'"
    status: ACTIVE
    steps:
      - step_number: 2
        name: Manager sign-off
        approver_type: MANAGER
      - step_number: 1
        name: Admin review
        approver_type: ROLE
        approver_role: ADMIN
  - name: Retired flow
    object_type: deal
    status: INACTIVE
    steps:
      - step_number: 1
        approver_type: SPECIFIC_USER
        approver_user: fin
  - name: Draft flow
    object_type: quote
`

func TestSeed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	file, err := ParseSeed([]byte(seedYAML))
	require.NoError(t, err)
	assert.Equal(t, "seed", file.CreatedBy)

	created, err := Seed(ctx, env.registry, file, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	byName := map[string]ApprovalProcess{}
	all, err := env.registry.List(ctx, tenant, ProcessFilter{})
	require.NoError(t, err)
	for _, p := range all {
		byName[p.Name] = p
	}
	assert.Equal(t, ProcessActive, byName["Large deal discount"].Status)
	assert.Equal(t, []int{1, 2}, stepNumbers(byName["Large deal discount"].Steps))
	assert.Equal(t, ProcessInactive, byName["Retired flow"].Status)
	assert.Equal(t, ProcessDraft, byName["Draft flow"].Status)

	req := env.submit(t, byName["Large deal discount"].ID, "big", "sam")
	assert.Equal(t, 2, req.TotalSteps)

	created, err = Seed(ctx, env.registry, file, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, created, "seeding twice creates nothing")
}

func TestParseSeedRejectsBadFiles(t *testing.T) {
	_, err := ParseSeed([]byte("processes: []"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseSeed([]byte("tenant_id: [unclosed"))
	assert.Error(t, err)
}

func TestSeedStopsOnInvalidProcess(t *testing.T) {
	env := newTestEnv(t)
	file, err := ParseSeed([]byte(`
tenant_id: tenant-1
processes:
  - name: Broken
    object_type: deal
    entry_criteria: "amount >"
`))
	require.NoError(t, err)

	created, err := Seed(context.Background(), env.registry, file, zap.NewNop())
	assert.ErrorIs(t, err, ErrCriteriaSyntax)
	assert.Zero(t, created)
}
