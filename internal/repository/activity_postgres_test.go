package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/internal/repository/testutil"
)

func TestActivityRepository(t *testing.T) {
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	t.Run("create", func(t *testing.T) {
		event := &domain.ActivityEvent{
			TenantID:    "tenant1",
			ContactID:   "c1",
			Type:        domain.ActivityBillingStatusChanged,
			Description: "Billing status changed to active",
			Metadata:    domain.MapOfAny{"status": "active"},
		}

		mock.ExpectExec(`INSERT INTO activity_events`).
			WithArgs(sqlmock.AnyArg(), "tenant1", "c1", domain.ActivityBillingStatusChanged, event.Description, []byte(`{"status":"active"}`), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, repo.CreateActivity(context.Background(), event))
		assert.NotEmpty(t, event.ID)
	})

	t.Run("list newest first", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery(`FROM activity_events\s+WHERE tenant_id = \$1 AND contact_id = \$2\s+ORDER BY created_at DESC\s+LIMIT \$3`).
			WithArgs("tenant1", "c1", 50).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "contact_id", "type", "description", "metadata", "created_at"}).
				AddRow("e2", "tenant1", "c1", "lead_created", "Lead created", []byte(`{"source":"form"}`), now).
				AddRow("e1", "tenant1", "c1", "automation_enrolled", "Enrolled", []byte(`{}`), now.Add(-time.Minute)))

		events, err := repo.ListContactActivity(context.Background(), "tenant1", "c1", 0)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, domain.ActivityLeadCreated, events[0].Type)
		assert.Equal(t, "form", events[0].Metadata["source"])
	})

	testutil.ExpectationsMet(t, mock)
}
