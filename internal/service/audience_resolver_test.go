package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/internal/domain/mocks"
	"github.com/localboost/localboost/internal/repository/memstore"
	"github.com/localboost/localboost/pkg/logger"
)

func seedContacts(t *testing.T, store *memstore.ContactStore, contacts ...*domain.Contact) {
	t.Helper()
	for _, c := range contacts {
		require.NoError(t, store.CreateContact(context.Background(), c))
	}
}

func contactIDs(contacts []*domain.Contact) []string {
	ids := make([]string, len(contacts))
	for i, c := range contacts {
		ids[i] = c.ID
	}
	return ids
}

func TestAudienceResolver_ResolveAudience(t *testing.T) {
	ctx := context.Background()

	t.Run("vip audience excludes unsubscribed and untagged contacts", func(t *testing.T) {
		store := memstore.NewContactStore()
		seedContacts(t, store,
			&domain.Contact{ID: "c1", TenantID: "T", Email: "c1@example.com", Tags: []string{"vip"}},
			&domain.Contact{ID: "c2", TenantID: "T", Email: "c2@example.com", Tags: []string{}},
			&domain.Contact{ID: "c3", TenantID: "T", Email: "c3@example.com", Tags: []string{"vip"}, Unsubscribed: true},
		)
		resolver := NewAudienceResolver(store, logger.NewTestLogger(t))

		audience, err := resolver.ResolveAudience(ctx, "T", domain.ChannelEmail, []string{"vip"})
		require.NoError(t, err)
		assert.Equal(t, []string{"c1"}, contactIDs(audience))
	})

	t.Run("tags match with OR semantics", func(t *testing.T) {
		store := memstore.NewContactStore()
		seedContacts(t, store,
			&domain.Contact{ID: "a", TenantID: "T", Email: "a@example.com", Tags: []string{"A"}},
			&domain.Contact{ID: "b", TenantID: "T", Email: "b@example.com", Tags: []string{"B", "C"}},
			&domain.Contact{ID: "none", TenantID: "T", Email: "none@example.com", Tags: []string{"C"}},
			&domain.Contact{ID: "no-email", TenantID: "T", Phone: "+15550001", Tags: []string{"A"}},
		)
		resolver := NewAudienceResolver(store, logger.NewTestLogger(t))

		audience, err := resolver.ResolveAudience(ctx, "T", domain.ChannelEmail, []string{"A", "B"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b"}, contactIDs(audience))

		sms, err := resolver.ResolveAudience(ctx, "T", domain.ChannelSMS, []string{"A", "B"})
		require.NoError(t, err)
		assert.Equal(t, []string{"no-email"}, contactIDs(sms))
	})

	t.Run("empty tags select every reachable contact", func(t *testing.T) {
		store := memstore.NewContactStore()
		seedContacts(t, store,
			&domain.Contact{ID: "x", TenantID: "T", Email: "x@example.com"},
			&domain.Contact{ID: "y", TenantID: "T", Email: "y@example.com", Tags: []string{"vip"}},
			&domain.Contact{ID: "z", TenantID: "other", Email: "z@example.com"},
		)
		resolver := NewAudienceResolver(store, logger.NewTestLogger(t))

		audience, err := resolver.ResolveAudience(ctx, "T", domain.ChannelEmail, nil)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"x", "y"}, contactIDs(audience))

		count, err := resolver.CountAudience(ctx, "T", domain.ChannelEmail, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("invalid channel", func(t *testing.T) {
		resolver := NewAudienceResolver(memstore.NewContactStore(), logger.NewTestLogger(t))
		_, err := resolver.ResolveAudience(ctx, "T", domain.Channel("fax"), nil)
		assert.True(t, domain.IsValidationError(err))
	})

	t.Run("repository error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := mocks.NewMockContactRepository(ctrl)
		repo.EXPECT().ListContacts(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

		resolver := NewAudienceResolver(repo, logger.NewTestLogger(t))
		_, err := resolver.ResolveAudience(ctx, "T", domain.ChannelEmail, []string{"vip"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list contacts")
	})
}
