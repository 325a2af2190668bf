package subscription

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionAPI(t *testing.T) {
	var m, err = NewManager(nil, nil)
	require.NoError(t, err)

	var router = mux.NewRouter()
	RegisterAPIs(router, m)
	var srv = httptest.NewServer(router)
	defer srv.Close()

	// Add a subscription, reading back its assigned ID.
	resp, err := http.Post(srv.URL+"/subscription", "application/json", strings.NewReader(`
	{
		"name": "Oslo-Lillestrom",
		"pushAddress": "http://push.example/cb",
		"fromStopPoints": ["NSR:StopPlace:337"],
		"toStopPoints": ["NSR:StopPlace:451"]
	}
	`))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("content-type"))

	var added Subscription
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&added))
	require.NotEmpty(t, added.ID)
	require.Equal(t, "Oslo-Lillestrom", added.Name)

	// An invalid subscription is refused.
	resp, err = http.Post(srv.URL+"/subscription", "application/json",
		strings.NewReader(`{"name": "no-push-address"}`))
	require.NoError(t, err)
	require.Equal(t, 400, resp.StatusCode)
	var body, _ = io.ReadAll(resp.Body)
	require.Equal(t, "subscription requires a pushAddress\n", string(body))

	// So is a malformed one.
	resp, err = http.Post(srv.URL+"/subscription", "application/json",
		strings.NewReader(`{"name": `))
	require.NoError(t, err)
	require.Equal(t, 400, resp.StatusCode)

	// List holds the single registration.
	resp, err = http.Get(srv.URL + "/subscription")
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	var listed []Subscription
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed, 1)
	require.Equal(t, added.ID, listed[0].ID)

	// Delete it, then deleting again is a 404.
	req, _ := http.NewRequest("DELETE", srv.URL+"/subscription/"+added.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, 404, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/subscription")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Empty(t, listed)
}
