package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/internal/repository/testutil"
)

func contactRows() *sqlmock.Rows {
	return sqlmock.NewRows(contactColumns)
}

func TestContactRepository_CreateContact(t *testing.T) {
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()
	repo := NewContactRepository(db)

	t.Run("generates id and normalizes tags", func(t *testing.T) {
		contact := &domain.Contact{
			TenantID: "tenant1",
			Name:     "Ada",
			Email:    "ada@example.com",
			Tags:     []string{" vip ", "vip", "new"},
		}

		mock.ExpectExec(`INSERT INTO contacts`).
			WithArgs(sqlmock.AnyArg(), "tenant1", "Ada", "ada@example.com", "", sqlmock.AnyArg(), false, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.CreateContact(context.Background(), contact)
		require.NoError(t, err)
		assert.NotEmpty(t, contact.ID)
		assert.Equal(t, []string{"vip", "new"}, contact.Tags)
		assert.False(t, contact.CreatedAt.IsZero())
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO contacts`).WillReturnError(errors.New("boom"))

		err := repo.CreateContact(context.Background(), &domain.Contact{TenantID: "tenant1", Phone: "+15550001"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create contact")
	})

	testutil.ExpectationsMet(t, mock)
}

func TestContactRepository_UpdateContactTags(t *testing.T) {
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()
	repo := NewContactRepository(db)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE contacts SET tags = \$3, updated_at = \$4 WHERE tenant_id = \$1 AND id = \$2`).
			WithArgs("tenant1", "c1", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateContactTags(context.Background(), "tenant1", "c1", []string{"active_subscriber"})
		require.NoError(t, err)
	})

	t.Run("missing contact", func(t *testing.T) {
		mock.ExpectExec(`UPDATE contacts SET tags`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateContactTags(context.Background(), "tenant1", "missing", nil)
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
	})

	testutil.ExpectationsMet(t, mock)
}

func TestContactRepository_FindContact(t *testing.T) {
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()
	repo := NewContactRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, tenant_id, name, email, phone, tags, unsubscribed, created_at, updated_at FROM contacts WHERE id = \$1 AND tenant_id = \$2 ORDER BY created_at ASC LIMIT 1`).
			WithArgs("c1", "tenant1").
			WillReturnRows(contactRows().AddRow("c1", "tenant1", "Ada", "ada@example.com", "", "{vip,new}", false, now, now))

		contact, err := repo.FindContact(context.Background(), "tenant1", "c1")
		require.NoError(t, err)
		require.NotNil(t, contact)
		assert.Equal(t, "c1", contact.ID)
		assert.Equal(t, []string{"vip", "new"}, contact.Tags)
		assert.Equal(t, now, contact.CreatedAt)
	})

	t.Run("not found returns nil", func(t *testing.T) {
		mock.ExpectQuery(`FROM contacts WHERE id = \$1 AND tenant_id = \$2`).
			WithArgs("missing", "tenant1").
			WillReturnRows(contactRows())

		contact, err := repo.FindContact(context.Background(), "tenant1", "missing")
		require.NoError(t, err)
		assert.Nil(t, contact)
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery(`FROM contacts`).WillReturnError(errors.New("boom"))

		contact, err := repo.FindContact(context.Background(), "tenant1", "c1")
		require.Error(t, err)
		assert.Nil(t, contact)
		assert.Contains(t, err.Error(), "failed to get contact")
	})

	testutil.ExpectationsMet(t, mock)
}

func TestContactRepository_FindContactByEmail(t *testing.T) {
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()
	repo := NewContactRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM contacts WHERE \(tenant_id = \$1 AND lower\(email\) = lower\(\$2\)\)`).
		WithArgs("tenant1", "Owner@Example.com").
		WillReturnRows(contactRows().AddRow("c9", "tenant1", "Owner", "owner@example.com", "", "{}", false, now, now))

	contact, err := repo.FindContactByEmail(context.Background(), "tenant1", "Owner@Example.com")
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, "c9", contact.ID)
	assert.Empty(t, contact.Tags)
	testutil.ExpectationsMet(t, mock)
}

func TestContactRepository_ListContacts(t *testing.T) {
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()
	repo := NewContactRepository(db)
	now := time.Now().UTC()

	t.Run("applies audience filter", func(t *testing.T) {
		mock.ExpectQuery(`FROM contacts WHERE tenant_id = \$1 AND unsubscribed = \$2 AND btrim\(email\) <> '' AND tags && \$3 ORDER BY created_at ASC, id ASC LIMIT 10`).
			WithArgs("tenant1", false, sqlmock.AnyArg()).
			WillReturnRows(contactRows().
				AddRow("c1", "tenant1", "A", "a@example.com", "", "{vip}", false, now, now).
				AddRow("c2", "tenant1", "B", "b@example.com", "", "{vip,new}", false, now, now))

		contacts, err := repo.ListContacts(context.Background(), domain.ContactFilter{
			TenantID:            "tenant1",
			Channel:             domain.ChannelEmail,
			Tags:                []string{"vip"},
			ExcludeUnsubscribed: true,
			Limit:               10,
		})
		require.NoError(t, err)
		require.Len(t, contacts, 2)
		assert.Equal(t, "c2", contacts[1].ID)
	})

	t.Run("sms channel without tags", func(t *testing.T) {
		mock.ExpectQuery(`FROM contacts WHERE tenant_id = \$1 AND btrim\(phone\) <> '' ORDER BY`).
			WithArgs("tenant1").
			WillReturnRows(contactRows())

		contacts, err := repo.ListContacts(context.Background(), domain.ContactFilter{TenantID: "tenant1", Channel: domain.ChannelSMS})
		require.NoError(t, err)
		assert.Empty(t, contacts)
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery(`FROM contacts`).WillReturnError(errors.New("boom"))

		_, err := repo.ListContacts(context.Background(), domain.ContactFilter{TenantID: "tenant1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list contacts")
	})

	testutil.ExpectationsMet(t, mock)
}

func TestContactRepository_CountContacts(t *testing.T) {
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()
	repo := NewContactRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contacts WHERE tenant_id = \$1 AND unsubscribed = \$2`).
		WithArgs("tenant1", false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.CountContacts(context.Background(), domain.ContactFilter{TenantID: "tenant1", ExcludeUnsubscribed: true})
	require.NoError(t, err)
	assert.Equal(t, 42, count)
	testutil.ExpectationsMet(t, mock)
}
