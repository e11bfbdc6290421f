package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"turapay/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *LipilaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewLipilaClient(config.LipilaConfig{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		CallbackURL: "https://turapay.test/api/webhooks/lipila",
		Timeout:     5 * time.Second,
	})
}

func TestLipilaClient_CollectMobileMoney(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, pathMobileCollection, r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var body MobileCollectionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ref-1", body.ReferenceID)
		assert.Equal(t, 50.0, body.Amount)
		assert.Equal(t, "0977123456", body.AccountNumber)
		assert.Equal(t, "https://turapay.test/api/webhooks/lipila", body.CallbackURL)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"Pending","identifier":"LP-1"}`))
	})

	out, err := client.CollectMobileMoney(context.Background(), MobileCollectionRequest{
		ReferenceID:   "ref-1",
		Amount:        50,
		Currency:      "ZMW",
		AccountNumber: "0977123456",
	})
	require.NoError(t, err)
	assert.Equal(t, "Pending", out.String("status"))
	assert.Equal(t, "LP-1", out.String("identifier"))
}

func TestLipilaClient_StatusPassesReference(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, pathDisbursementStatus, r.URL.Path)
		assert.Equal(t, "ref-9", r.URL.Query().Get("referenceId"))
		_, _ = w.Write([]byte(`{"status":"Successful","message":"done"}`))
	})

	out, err := client.DisbursementStatus(context.Background(), "ref-9")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccessful, out.String("status"))
}

func TestLipilaClient_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantDetails interface{}
	}{
		{
			name:        "json details",
			body:        `{"message":"insufficient float"}`,
			wantDetails: map[string]interface{}{"message": "insufficient float"},
		},
		{
			name:        "text details",
			body:        `upstream exploded`,
			wantDetails: "upstream exploded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.DisburseMobileMoney(context.Background(), DisbursementRequest{ReferenceID: "r", Amount: 1})
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
			assert.Equal(t, tt.wantDetails, apiErr.Details)
		})
	}
}

func TestLipilaClient_NotConfigured(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	client := NewLipilaClient(config.LipilaConfig{BaseURL: srv.URL, Timeout: time.Second})
	assert.False(t, client.Configured())

	_, err := client.CollectCard(context.Background(), CardCollectionRequest{ReferenceID: "r"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = client.CollectionStatus(context.Background(), "r")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Zero(t, calls)
}

func TestSplitCardExpiry(t *testing.T) {
	tests := []struct {
		in        string
		wantMonth string
		wantYear  string
		wantErr   bool
	}{
		{"12/29", "12", "2029", false},
		{"1/2031", "01", "2031", false},
		{" 07 / 28 ", "07", "2028", false},
		{"1229", "", "", true},
		{"12/299", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			month, year, err := SplitCardExpiry(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMonth, month)
			assert.Equal(t, tt.wantYear, year)
		})
	}
}
