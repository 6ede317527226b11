package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v8"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lumapay/ledger-service/internal/config"
	"github.com/lumapay/ledger-service/internal/idgen"
	"github.com/lumapay/ledger-service/internal/logger"
	"github.com/lumapay/ledger-service/internal/model"
	"github.com/lumapay/ledger-service/internal/repo"
	"github.com/lumapay/ledger-service/internal/service"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&model.Wallet{}, &model.Transaction{}, &model.LedgerEntry{}, &model.OutboxEvent{},
	))

	rdb, _ := redismock.NewClientMock()
	log, err := logger.NewLogger()
	require.NoError(t, err)
	repository := repo.NewRepository(db, rdb, &kafka.Writer{}, log)
	svc := service.NewWalletService(repository, idgen.NewUUIDv7(), log)

	cfg := &config.Config{
		RateLimit:  config.RateLimitConfig{RPS: 1000, Burst: 1000},
		Pagination: config.PaginationConfig{MaxLimit: 200},
	}
	return NewRouter(svc, cfg, log)
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func mintWallet(t *testing.T, r *gin.Engine, email, amount string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/v1/wallets", gin.H{"email": email, "amount": amount})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.ID
}

func TestCreateWalletEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/wallets", gin.H{"email": "a@example.com", "amount": "100"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		ID            string          `json:"id"`
		TransactionID string          `json:"transaction_id"`
		Balance       json.RawMessage `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.NotEmpty(t, out.ID)
	assert.NotEmpty(t, out.TransactionID)

	// invalid email rejected by binding
	w = doJSON(t, r, http.MethodPost, "/v1/wallets", gin.H{"email": "not-an-email", "amount": "100"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// duplicate email is a conflict
	w = doJSON(t, r, http.MethodPost, "/v1/wallets", gin.H{"email": "a@example.com", "amount": "100"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTransferEndpoint(t *testing.T) {
	r := newTestRouter(t)

	from := mintWallet(t, r, "from@example.com", "100")
	to := mintWallet(t, r, "to@example.com", "1")

	w := doJSON(t, r, http.MethodPost, "/v1/transfers", gin.H{
		"from_id": from, "to_id": to, "amount": "50",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		TransactionID string `json:"transaction_id"`
		NewBalance    string `json:"new_balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.NotEmpty(t, out.TransactionID)
	assert.Equal(t, "50", out.NewBalance)

	w = doJSON(t, r, http.MethodGet, "/v1/wallets/"+to+"/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var bal struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bal))
	assert.Equal(t, "51", bal.Balance)
}

func TestTransferEndpointErrors(t *testing.T) {
	r := newTestRouter(t)

	from := mintWallet(t, r, "from@example.com", "100")
	to := mintWallet(t, r, "to@example.com", "1")

	// insufficient funds -> conflict
	w := doJSON(t, r, http.MethodPost, "/v1/transfers", gin.H{
		"from_id": from, "to_id": to, "amount": "500",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// same wallet -> bad request
	w = doJSON(t, r, http.MethodPost, "/v1/transfers", gin.H{
		"from_id": from, "to_id": from, "amount": "1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown wallet -> not found
	w = doJSON(t, r, http.MethodPost, "/v1/transfers", gin.H{
		"from_id": from, "to_id": uuid.New().String(), "amount": "1",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// malformed amount -> bad request
	w = doJSON(t, r, http.MethodPost, "/v1/transfers", gin.H{
		"from_id": from, "to_id": to, "amount": "abc",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// non-positive amount -> bad request
	w = doJSON(t, r, http.MethodPost, "/v1/transfers", gin.H{
		"from_id": from, "to_id": to, "amount": "0",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	r := newTestRouter(t)

	from := mintWallet(t, r, "from@example.com", "100")
	to := mintWallet(t, r, "to@example.com", "1")
	w := doJSON(t, r, http.MethodPost, "/v1/transfers", gin.H{
		"from_id": from, "to_id": to, "amount": "50",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/v1/transactions/"+to+"?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var views []model.TransactionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	assert.Len(t, views, 2) // mint + transfer

	w = doJSON(t, r, http.MethodGet, "/v1/wallets/"+to+"/ledger", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []model.LedgerEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)

	w = doJSON(t, r, http.MethodGet, "/v1/wallets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var wallets []model.Wallet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wallets))
	assert.Len(t, wallets, 2)

	// balance for an unknown wallet is not found
	w = doJSON(t, r, http.MethodGet, "/v1/wallets/"+uuid.New().String()+"/balance", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
