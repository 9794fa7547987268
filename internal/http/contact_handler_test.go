package http_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localboost/localboost/internal/domain"
	http_handler "github.com/localboost/localboost/internal/http"
	"github.com/localboost/localboost/internal/repository/memstore"
	"github.com/localboost/localboost/internal/service"
	"github.com/localboost/localboost/pkg/logger"
)

type contactFixture struct {
	mux      http.Handler
	contacts *memstore.ContactStore
	commands *memstore.ActionCommandStore
}

func newContactFixture(t *testing.T) *contactFixture {
	log := logger.NewTestLogger(t)
	contacts := memstore.NewContactStore()
	commands := memstore.NewActionCommandStore()
	svc := service.NewContactService(
		contacts,
		memstore.NewActivityStore(),
		service.NewAudienceResolver(contacts, log),
		service.NewActionCommandService(commands, 0, 0, log),
		log,
	)
	return &contactFixture{
		mux:      newMux(http_handler.NewContactHandler(svc, nil, log)),
		contacts: contacts,
		commands: commands,
	}
}

func TestContactHandler_Create(t *testing.T) {
	f := newContactFixture(t)
	ctx := context.Background()

	lead := map[string]interface{}{
		"name":   "Ana Lima",
		"email":  "ana@example.com",
		"tags":   []string{"walk-in"},
		"source": "website",
	}

	w := call(t, f.mux, http.MethodPost, "/api/contacts.create", "tenant-1", lead)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, true, body["created"])
	contactID := body["contact"].(map[string]interface{})["id"].(string)

	pending, err := f.commands.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.CommandNewLeadAdded, pending[0].Type)
	assert.Equal(t, contactID, pending[0].Payload[domain.PayloadContactID])

	t.Run("same email merges", func(t *testing.T) {
		w := call(t, f.mux, http.MethodPost, "/api/contacts.create", "tenant-1", map[string]interface{}{
			"email": "ANA@example.com",
			"phone": "+15550100",
			"tags":  []string{"vip"},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decodeBody(t, w)
		assert.Equal(t, false, body["created"])
		assert.Equal(t, contactID, body["contact"].(map[string]interface{})["id"])

		stored, err := f.contacts.FindContact(ctx, "tenant-1", contactID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"walk-in", "vip"}, stored.Tags)

		pending, err := f.commands.ClaimPending(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("other tenant gets its own contact", func(t *testing.T) {
		w := call(t, f.mux, http.MethodPost, "/api/contacts.create", "tenant-2", lead)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("invalid", func(t *testing.T) {
		w := call(t, f.mux, http.MethodPost, "/api/contacts.create", "tenant-1", map[string]interface{}{"name": "Nobody"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = call(t, f.mux, http.MethodPost, "/api/contacts.create", "tenant-1", map[string]interface{}{"email": "not-an-email"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = call(t, f.mux, http.MethodPost, "/api/contacts.create", "", lead)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestContactHandler_GetAudienceActivity(t *testing.T) {
	f := newContactFixture(t)
	ctx := context.Background()

	for _, c := range []*domain.Contact{
		{ID: "c1", TenantID: "tenant-1", Email: "a@example.com", Phone: "+15550101", Tags: []string{"vip"}},
		{ID: "c2", TenantID: "tenant-1", Email: "b@example.com", Tags: []string{"vip", "regulars"}},
		{ID: "c3", TenantID: "tenant-1", Phone: "+15550103", Tags: []string{"regulars"}},
		{ID: "c4", TenantID: "tenant-1", Email: "d@example.com", Tags: []string{"vip"}, Unsubscribed: true},
	} {
		require.NoError(t, f.contacts.CreateContact(ctx, c))
	}

	w := call(t, f.mux, http.MethodGet, "/api/contacts.get?id=c1", "tenant-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@example.com", decodeBody(t, w)["contact"].(map[string]interface{})["email"])

	w = call(t, f.mux, http.MethodGet, "/api/contacts.get?id=c1", "tenant-2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	audience := []struct {
		query string
		want  float64
	}{
		{"channel=email", 2},
		{"channel=email&tags=vip", 2},
		{"channel=sms", 2},
		{"channel=sms&tags=regulars", 1},
		{"channel=email&tags=vip,regulars", 2},
	}
	for _, tt := range audience {
		t.Run(tt.query, func(t *testing.T) {
			w := call(t, f.mux, http.MethodGet, "/api/contacts.audience?"+tt.query, "tenant-1", nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.want, decodeBody(t, w)["count"])
		})
	}

	w = call(t, f.mux, http.MethodGet, "/api/contacts.audience?channel=fax", "tenant-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, f.mux, http.MethodPost, "/api/contacts.create", "tenant-1", map[string]interface{}{"email": "new@example.com", "source": "qr"})
	require.Equal(t, http.StatusCreated, w.Code)
	newID := decodeBody(t, w)["contact"].(map[string]interface{})["id"].(string)

	w = call(t, f.mux, http.MethodGet, "/api/contacts.activity?contact_id="+newID, "tenant-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	events := decodeBody(t, w)["events"].([]interface{})
	require.Len(t, events, 1)
	assert.Equal(t, string(domain.ActivityLeadCreated), events[0].(map[string]interface{})["type"])

	w = call(t, f.mux, http.MethodGet, "/api/contacts.activity", "tenant-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
