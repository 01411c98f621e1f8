package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/acetvpair/tvlink-go/internal/errors"
	"github.com/acetvpair/tvlink-go/internal/model"
)

var testAuth = model.AuthSession{UID: "uid-1", Sig: "sig-1"}

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, srv.Client()), srv
}

func TestAnonSession(t *testing.T) {
	t.Run("decodes a full session", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/auth/anon", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]string{"uid": "u", "sig": "s"})
		})
		defer srv.Close()

		s, err := client.AnonSession(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "u", s.UID)
		assert.Equal(t, "s", s.Sig)
	})

	t.Run("rejects a partial session", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"uid": "u"})
		})
		defer srv.Close()

		_, err := client.AnonSession(context.Background())
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNetwork))
	})
}

func TestSearch(t *testing.T) {
	t.Run("sends term and no-store header", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/acestream", r.URL.Path)
			assert.Equal(t, "real madrid", r.URL.Query().Get("term"))
			assert.Equal(t, "no-store", r.Header.Get("Cache-Control"))
			json.NewEncoder(w).Encode([]model.SearchSource{{Source: "siteA"}})
		})
		defer srv.Close()

		sources, err := client.Search(context.Background(), "real madrid")
		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.Equal(t, "siteA", sources[0].Source)
	})

	t.Run("aborted context surfaces as canceled, not network", func(t *testing.T) {
		started := make(chan struct{})
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			<-r.Context().Done()
		})
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-started
			cancel()
		}()

		_, err := client.Search(ctx, "x")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCanceled))
	})

	t.Run("timeout surfaces as network error", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := client.Search(ctx, "x")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNetwork))
	})
}

func TestPair(t *testing.T) {
	t.Run("sends auth headers and code, returns device id", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/tv/pair", r.URL.Path)
			assert.Equal(t, "uid-1", r.Header.Get(HeaderAuthUID))
			assert.Equal(t, "sig-1", r.Header.Get(HeaderAuthSig))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "482913", body["pairCode"])
			assert.Equal(t, "web-abc", body["userId"])

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"deviceId": "tv-9"})
		})
		defer srv.Close()

		deviceID, err := client.Pair(context.Background(), testAuth, "482913", "web-abc")
		require.NoError(t, err)
		assert.Equal(t, "tv-9", deviceID)
	})

	t.Run("non-2xx carries the server detail", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Code expired"})
		})
		defer srv.Close()

		_, err := client.Pair(context.Background(), testAuth, "000000", "web-abc")
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeInvalidCode, appErr.Code)
		assert.Equal(t, "Code expired", appErr.Message)
	})
}

func TestStatus(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		wantCode apperrors.ErrorCode
	}{
		{"2xx means still paired", http.StatusOK, ""},
		{"403 means revoked", http.StatusForbidden, apperrors.ErrCodePairingRevoked},
		{"404 means revoked", http.StatusNotFound, apperrors.ErrCodePairingRevoked},
		{"5xx is transient", http.StatusBadGateway, apperrors.ErrCodeNetwork},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "tv-9", r.URL.Query().Get("deviceId"))
				w.WriteHeader(tc.status)
			})
			defer srv.Close()

			err := client.Status(context.Background(), testAuth, "tv-9")
			if tc.wantCode == "" {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperrors.IsCode(err, tc.wantCode))
			}
		})
	}

	t.Run("403 with a non-JSON body is still revoked", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("<html>Forbidden</html>"))
		})
		defer srv.Close()

		err := client.Status(context.Background(), testAuth, "tv-9")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePairingRevoked))
	})
}

func TestSend(t *testing.T) {
	env := model.CommandEnvelope{DeviceID: "tv-9", Action: model.ActionAcestream, CID: "abc"}

	t.Run("200 is delivered", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			var got model.CommandEnvelope
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, env, got)
			w.WriteHeader(http.StatusOK)
		})
		defer srv.Close()

		res, err := client.Send(context.Background(), testAuth, env)
		require.NoError(t, err)
		assert.Equal(t, model.DeliveryDelivered, res.Outcome)
	})

	t.Run("202 is unreachable with the relay reason", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"status": "offline"})
		})
		defer srv.Close()

		res, err := client.Send(context.Background(), testAuth, env)
		require.NoError(t, err)
		assert.Equal(t, model.DeliveryUnreachable, res.Outcome)
		assert.Equal(t, "offline", res.Reason)
	})

	t.Run("403 and 404 are unauthorized", func(t *testing.T) {
		for _, status := range []int{http.StatusForbidden, http.StatusNotFound} {
			client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			})

			res, err := client.Send(context.Background(), testAuth, env)
			srv.Close()
			require.NoError(t, err)
			assert.Equal(t, model.DeliveryUnauthorized, res.Outcome)
		}
	})

	t.Run("5xx is a failed outcome, not a transport error", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		defer srv.Close()

		res, err := client.Send(context.Background(), testAuth, env)
		require.NoError(t, err)
		assert.Equal(t, model.DeliveryFailed, res.Outcome)
	})
}

func TestUnlink(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   UnlinkOutcome
	}{
		{"200 unlinks", http.StatusOK, UnlinkOK},
		{"404 treated as already unlinked", http.StatusNotFound, UnlinkNotFound},
		{"403 treated as revoked", http.StatusForbidden, UnlinkForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "tv-9", body["deviceId"])
				w.WriteHeader(tc.status)
			})
			defer srv.Close()

			outcome, err := client.Unlink(context.Background(), testAuth, "tv-9")
			require.NoError(t, err)
			assert.Equal(t, tc.want, outcome)
		})
	}

	t.Run("5xx is an error and keeps local state", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		defer srv.Close()

		_, err := client.Unlink(context.Background(), testAuth, "tv-9")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDeliveryFailed))
	})
}
