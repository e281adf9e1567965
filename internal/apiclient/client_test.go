package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"election-service/internal/auth"
	"election-service/internal/config"
	"election-service/internal/handler"
	"election-service/internal/hashing"
	"election-service/internal/models"
	"election-service/internal/repository/memory"
	"election-service/internal/service"
)

func writeJSON(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, body)
}

func TestSetVerificationReturnsServerCopy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/admin/voters/3/verify/", r.URL.Path)
		assert.Equal(t, "Bearer admin-token", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"is_verified": true}, body)

		writeJSON(w, http.StatusOK, `{"id":"3","username":"carol","email":"carol@example.com","age":30,"is_verified":true}`)
	}))
	defer srv.Close()

	voter, err := New(srv.URL, srv.Client()).SetVerification(context.Background(), "3", true, "admin-token")
	require.NoError(t, err)
	assert.Equal(t, "3", voter.ID)
	assert.Equal(t, models.StatusVerified, voter.Status)
}

func TestSetVerificationRejectsReplyWithoutVoter(t *testing.T) {
	for _, body := range []string{`{"message":"Voter verified successfully."}`, `null`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, body)
		}))

		voter, err := New(srv.URL, srv.Client()).SetVerification(context.Background(), "3", true, "admin-token")
		assert.ErrorIs(t, err, ErrMalformedResponse, body)
		assert.Nil(t, voter)
		srv.Close()
	}
}

func TestListVotersRejectsNullRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"id":"1","username":"alice","is_verified":null},null]`)
	}))
	defer srv.Close()

	voters, err := New(srv.URL, srv.Client()).ListVoters(context.Background(), "admin-token")
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Nil(t, voters)
}

func TestRegisterSendsNullAgeAndSurfacesFieldErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		age, present := body["age"]
		assert.True(t, present)
		assert.Nil(t, age)

		writeJSON(w, http.StatusBadRequest, `{"age":["This field is required."]}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Register(context.Background(), RegistrationForm{
		Username: "dave", Email: "dave@example.com", Password: "secret", Age: "abc",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string][]string{"age": {"This field is required."}}, verr.Fields)
}

func TestRegistrationFormAge(t *testing.T) {
	b := RegistrationForm{Age: " 42 "}.body()
	require.NotNil(t, b.Age)
	assert.Equal(t, 42, *b.Age)

	assert.Nil(t, RegistrationForm{Age: ""}.body().Age)
	assert.Nil(t, RegistrationForm{Age: "forty"}.body().Age)
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		body   string
		assert func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"token expired","message":"Authentication required"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrUnauthorized)
		}},
		{"forbidden", http.StatusForbidden, `{"error":"forbidden"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrUnauthorized)
		}},
		{"conflict", http.StatusConflict, `{"error":"verification already decided","message":"Voter has already been verified"}`, func(t *testing.T, err error) {
			assert.True(t, IsStatus(err, http.StatusConflict))
			assert.Contains(t, err.Error(), "already been verified")
		}},
		{"envelope on 400", http.StatusBadRequest, `{"error":"bad","message":"invalid action"}`, func(t *testing.T, err error) {
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "invalid action", apiErr.Message)
		}},
		{"plain text 500", http.StatusInternalServerError, `oops`, func(t *testing.T, err error) {
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "Internal Server Error", apiErr.Message)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.code, tt.body)
			}))
			defer srv.Close()

			_, err := New(srv.URL, nil).ListVoters(context.Background(), "token")
			require.Error(t, err)
			tt.assert(t, err)
		})
	}
}

func TestMissingTokenSendsNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	ctx := context.Background()

	_, err := c.ListVoters(ctx, "")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = c.SetVerification(ctx, "1", true, "")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = c.VoterStatus(ctx, "")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.ErrorIs(t, c.Logout(ctx, "", ""), ErrNotLoggedIn)
	assert.Zero(t, hits.Load())
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, nil).ListVoters(context.Background(), "token")
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

// TestAgainstServer drives the real router backed by the in-memory store.
func TestAgainstServer(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "apiclient-test-secret-apiclient-test"
	cfg.JWT.Issuer = "election-service"
	cfg.JWT.AccessTTL = time.Minute
	cfg.JWT.RefreshTTL = time.Hour
	cfg.Hashing.Argon2MemoryCost = 1024
	cfg.Hashing.Argon2TimeCost = 1
	cfg.Hashing.Argon2Parallelism = 1

	logger := zap.NewNop()
	svc := service.NewVoterService(service.Dependencies{
		Voters:  memory.NewVoterRepository(),
		Hasher:  hashing.NewHasher(cfg),
		Tokens:  auth.NewTokenManager(cfg),
		Revoker: memory.NewTokenRevocations(),
		Limiter: memory.NewLoginAttempts(5, time.Minute, time.Minute),
		Logger:  logger,
	})
	ctx := context.Background()
	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "admin-pass", "admin@example.com"))

	srv := httptest.NewServer(handler.NewRouter(
		handler.NewVoterHandler(svc, logger),
		handler.NewAdminHandler(svc, logger),
		handler.RouterOptions{},
		logger,
	))
	defer srv.Close()

	c := New(srv.URL, srv.Client())

	result, err := c.Register(ctx, RegistrationForm{
		Username: "ada", Email: "ada@example.com", Password: "s3cret-pass", Age: "36", Region: "North",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, result.Voter.Status)

	_, err = c.Register(ctx, RegistrationForm{Username: "bob", Email: "bob@example.com", Password: "pw", Age: ""})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"This field is required."}, verr.Fields["age"])

	_, err = c.Login(ctx, "ada", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	voterPair, err := c.Login(ctx, "ada", "s3cret-pass")
	require.NoError(t, err)
	status, err := c.VoterStatus(ctx, voterPair.Access)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, status)

	_, err = c.ListVoters(ctx, voterPair.Access)
	assert.ErrorIs(t, err, ErrUnauthorized)

	adminPair, err := c.Login(ctx, "admin", "admin-pass")
	require.NoError(t, err)
	voters, err := c.ListVoters(ctx, adminPair.Access)
	require.NoError(t, err)
	require.Len(t, voters, 1)

	updated, err := c.SetVerification(ctx, voters[0].ID, true, adminPair.Access)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, updated.Status)

	_, err = c.SetVerification(ctx, voters[0].ID, false, adminPair.Access)
	assert.True(t, IsStatus(err, http.StatusConflict))

	status, err = c.VoterStatus(ctx, voterPair.Access)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, status)

	refreshed, err := c.Refresh(ctx, voterPair.Refresh)
	require.NoError(t, err)
	require.NoError(t, c.Logout(ctx, refreshed.Access, voterPair.Refresh))
	_, err = c.VoterStatus(ctx, refreshed.Access)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
