package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"turapay/internal/config"
	"turapay/internal/gateway"
	"turapay/internal/gateway/gatewaytest"
	"turapay/internal/models"
	"turapay/internal/repositories"
	"turapay/internal/services/admin"
	"turapay/internal/services/auth"
	"turapay/internal/services/kyc"
	"turapay/internal/services/notification"
	"turapay/internal/services/payment"
	"turapay/internal/services/rates"
	"turapay/internal/services/settings"
	"turapay/internal/services/transfer"
	"turapay/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const callbackSecret = "cb-secret"

type testServer struct {
	app *fiber.App
	db  *gorm.DB
	gw  *gatewaytest.MockClient
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testutil.NewDB(t)
	cfg := &config.Config{
		Env:               "test",
		JWTSecret:         "access-secret",
		RefreshSecret:     "refresh-secret",
		ExposeInternalErr: false,
		Lipila:            config.LipilaConfig{CallbackSecret: callbackSecret},
		CORSAllowOrigins:  "*",
	}

	userRepo := repositories.NewUserRepository(db)
	txRepo := repositories.NewTransactionRepository(db)
	settingRepo := repositories.NewSettingRepository(db)
	entries := repositories.NewReconciliationRepository(db)

	gw := new(gatewaytest.MockClient)
	ratesSvc := rates.NewService(config.RatesConfig{DefaultRate: 27.5, LocalCurrency: "ZMW"},
		repositories.NewExchangeRateRepository(db), nil)
	transfers := transfer.NewService(db, txRepo, userRepo, settingRepo, ratesSvc, "ZMW")

	app := fiber.New()
	SetupRoutes(app, cfg, Services{
		DB:        db,
		Auth:      auth.NewServiceWithCost(userRepo, cfg.JWTSecret, cfg.RefreshSecret, bcrypt.MinCost),
		Transfers: transfers,
		Payments:  payment.NewService(gw, transfers, entries, 10),
		Callbacks: payment.NewCallbackProcessor(txRepo, transfers),
		Admin:     admin.NewService(transfers, userRepo, notification.NewServiceWithMailer(nil, "")),
		Settings:  settings.NewService(settingRepo, testutil.NewMemoryCache()),
		Rates:     ratesSvc,
		KYC:       kyc.NewService(db, repositories.NewKYCRepository(db), userRepo),
		Entries:   entries,
	})

	return &testServer{app: app, db: db, gw: gw}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, headers ...string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/login", "", fiber.Map{"email": email, "password": "Passw0rd!"})
	require.Equal(t, http.StatusOK, status, body)
	return body["access_token"].(string)
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	user := testutil.CreateUser(t, s.db, "admin@turapay.test", true)
	require.NoError(t, s.db.Model(user).Update("role", models.RoleAdmin).Error)
	return s.login(t, user.Email)
}

func TestRegisterLoginProfile(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/register", "", fiber.Map{
		"email":    "Jane@Example.com",
		"phone":    "+15550001111",
		"name":     "Jane Sender",
		"country":  "US",
		"password": "Sup3r$ecret",
	})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = s.do(t, http.MethodPost, "/api/register", "", fiber.Map{
		"email": "jane@example.com", "phone": "+15550001111", "name": "Again", "password": "Sup3r$ecret",
	})
	assert.Equal(t, http.StatusConflict, status, body)

	status, _ = s.do(t, http.MethodPost, "/api/login", "", fiber.Map{"email": "jane@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = s.do(t, http.MethodPost, "/api/login", "", fiber.Map{"email": "jane@example.com", "password": "Sup3r$ecret"})
	require.Equal(t, http.StatusOK, status, body)
	token := body["access_token"].(string)

	status, body = s.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "jane@example.com", body["email"])
	assert.Equal(t, false, body["verified"])

	status, _ = s.do(t, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized", body["error"])
}

func TestTransferLimitsAndQuote(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "sender@turapay.test", false)
	token := s.login(t, "sender@turapay.test")

	status, body := s.do(t, http.MethodGet, "/api/transfers/quote?amount=100", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, 2.0, body["fee"])
	assert.Equal(t, 102.0, body["total_amount"])
	assert.Equal(t, 27.5, body["exchange_rate"])
	assert.Equal(t, 2750.0, body["payout_amount"])
	assert.Equal(t, "ZMW", body["payout_currency"])

	status, body = s.do(t, http.MethodPost, "/api/transfers", token, fiber.Map{
		"receiver_name": "Mwila", "receiver_phone": "0977000000", "amount": 50,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "Unverified accounts can send up to 20.00")

	status, body = s.do(t, http.MethodPost, "/api/transfers", token, fiber.Map{
		"receiver_name": "Mwila", "receiver_phone": "0977000000", "amount": 0,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid amount", body["error"])

	status, body = s.do(t, http.MethodPost, "/api/transfers", token, fiber.Map{
		"receiver_name": "Mwila", "receiver_phone": "0977000000", "amount": 15,
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "pending", body["status"])
	assert.InDelta(t, 15.3, body["total_amount"], 1e-9)
	id := body["id"].(string)

	status, body = s.do(t, http.MethodGet, "/api/transfers?recent=true", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, _ = s.do(t, http.MethodPost, "/api/transfers/"+id+"/proof", token, fiber.Map{"payment_proof_url": "https://files.turapay.test/p.png"})
	assert.Equal(t, http.StatusOK, status)
}

func TestAdminReviewIsGuarded(t *testing.T) {
	s := newTestServer(t)
	sender := testutil.CreateUser(t, s.db, "sender@turapay.test", true)
	testutil.CreateTransaction(t, s.db, "tx-review", sender.ID, models.StatusPending)
	userToken := s.login(t, sender.Email)
	token := s.adminToken(t)

	status, _ := s.do(t, http.MethodGet, "/api/admin/transactions", userToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := s.do(t, http.MethodGet, "/api/admin/transactions?status=pending", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	approve := fiber.Map{"tid": "TID-1", "sender_name": "Jane"}
	status, body = s.do(t, http.MethodPost, "/api/admin/transactions/tx-review/approve", token, approve)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "deposited", body["status"])

	status, body = s.do(t, http.MethodPost, "/api/admin/transactions/tx-review/approve", token, approve)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "transaction status changed", body["error"])

	status, _ = s.do(t, http.MethodPost, "/api/admin/transactions/tx-review/reject", token, fiber.Map{"reason": "late"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = s.do(t, http.MethodPost, "/api/admin/transactions/tx-review/reject", token, fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdminSettingsAndRates(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "sender@turapay.test", true)
	userToken := s.login(t, "sender@turapay.test")
	token := s.adminToken(t)

	status, body := s.do(t, http.MethodPut, "/api/admin/settings/transfer_fee_percentage", token, fiber.Map{"value": "-1"})
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, _ = s.do(t, http.MethodPut, "/api/admin/settings/transfer_fee_percentage", token, fiber.Map{"value": "3"})
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodGet, "/api/settings", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "3", body["transfer_fee_percentage"])

	status, _ = s.do(t, http.MethodPut, "/api/admin/rates/zmw", token, fiber.Map{"rate": 0})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPut, "/api/admin/rates/zmw", token, fiber.Map{"rate": 26})
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodGet, "/api/transfers/quote?amount=10", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 26.0, body["exchange_rate"])
	assert.InDelta(t, 0.3, body["fee"], 1e-9)

	status, _ = s.do(t, http.MethodDelete, "/api/admin/rates/ZMW", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodDelete, "/api/admin/rates/ZMW", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestKYCReviewVerifiesSender(t *testing.T) {
	s := newTestServer(t)
	sender := testutil.CreateUser(t, s.db, "kyc@turapay.test", false)
	userToken := s.login(t, sender.Email)
	token := s.adminToken(t)

	status, body := s.do(t, http.MethodPost, "/api/kyc", userToken, fiber.Map{
		"document_type": "passport", "document_url": "https://files.turapay.test/passport.jpg",
	})
	require.Equal(t, http.StatusCreated, status, body)
	id := body["ID"].(float64)

	status, body = s.do(t, http.MethodGet, "/api/admin/kyc?status=pending", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	path := "/api/admin/kyc/" + jsonNumber(id) + "/approve"
	status, _ = s.do(t, http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodPost, path, token, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, body = s.do(t, http.MethodGet, "/api/profile", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["verified"])
}

func TestCollectionEndpoint(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "payer@turapay.test", true)
	token := s.login(t, "payer@turapay.test")

	status, body := s.do(t, http.MethodPost, "/functions/v1/lipila-deposit", "", fiber.Map{"amount": 10})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized", body["error"])

	status, body = s.do(t, http.MethodPost, "/functions/v1/lipila-deposit", token, fiber.Map{"amount": 0, "accountNumber": "0977"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid amount", body["error"])

	status, body = s.do(t, http.MethodPost, "/api/payments/collections", token, fiber.Map{"amount": 10})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Card details are required", body["error"])

	s.gw.On("Configured").Return(true)
	s.gw.On("CollectMobileMoney", mock.Anything, mock.Anything).
		Return(nil, &gateway.APIError{StatusCode: http.StatusUnprocessableEntity, Details: map[string]interface{}{"message": "bad msisdn"}}).Once()

	status, body = s.do(t, http.MethodPost, "/functions/v1/lipila-deposit", token, fiber.Map{"amount": 10, "accountNumber": "0977"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "Failed to create payment request", body["error"])
	assert.Equal(t, map[string]interface{}{"message": "bad msisdn"}, body["details"])

	s.gw.On("CollectMobileMoney", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: timeout")).Once()
	status, body = s.do(t, http.MethodPost, "/functions/v1/lipila-deposit", token, fiber.Map{"amount": 10, "accountNumber": "0977"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", body["error"])
}

func TestDisbursementThenWebhookCompletes(t *testing.T) {
	s := newTestServer(t)
	sender := testutil.CreateUser(t, s.db, "sender@turapay.test", true)
	testutil.CreateTransaction(t, s.db, "tx-payout", sender.ID, models.StatusPending)
	token := s.login(t, sender.Email)

	s.gw.On("Configured").Return(true)
	s.gw.On("DisburseMobileMoney", mock.Anything, mock.Anything).Return(models.JSON{"status": "Pending"}, nil).Once()

	status, body := s.do(t, http.MethodPost, "/functions/v1/lipila-disbursement", token, fiber.Map{
		"amount": 2750, "accountNumber": "0977000000", "transactionId": "tx-payout",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["success"])
	ref := body["referenceId"].(string)

	var tx models.Transaction
	require.NoError(t, s.db.First(&tx, "id = ?", "tx-payout").Error)
	assert.Equal(t, models.StatusProcessing, tx.Status)
	assert.Equal(t, ref, tx.PaymentReference)

	event := fiber.Map{"referenceId": ref, "status": "Successful"}
	status, _ = s.do(t, http.MethodPost, "/api/webhooks/lipila", "", event, "X-Callback-Secret", "wrong")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = s.do(t, http.MethodPost, "/api/webhooks/lipila", "", event, "X-Callback-Secret", callbackSecret)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, payment.OutcomeCompleted, body["outcome"])

	// Redelivery is acknowledged without another write.
	status, body = s.do(t, http.MethodPost, "/api/webhooks/lipila", "", event, "X-Callback-Secret", callbackSecret)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, payment.OutcomeAlreadyFinal, body["outcome"])

	require.NoError(t, s.db.First(&tx, "id = ?", "tx-payout").Error)
	assert.Equal(t, models.StatusCompleted, tx.Status)
	assert.NotNil(t, tx.PaymentDate)
}

func TestDisbursementRequiresAccountNumber(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "sender@turapay.test", true)
	token := s.login(t, "sender@turapay.test")

	status, body := s.do(t, http.MethodPost, "/api/payments/disbursements", token, fiber.Map{"amount": 10})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Account number is required", body["error"])

	s.gw.On("Configured").Return(false)
	status, body = s.do(t, http.MethodPost, "/api/payments/disbursements", token, fiber.Map{"amount": 10, "accountNumber": "0977"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Payment gateway not configured", body["error"])
	s.gw.AssertNotCalled(t, "DisburseMobileMoney", mock.Anything, mock.Anything)
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

func TestHealthReportsDisabledCache(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	services := body["services"].(map[string]interface{})
	assert.Equal(t, "connected", services["database"])
	assert.Equal(t, "disabled", services["redis"])
}

func TestCORSPreflightAndErrorHeaders(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/lipila-deposit", nil)
	req.Header.Set("Origin", "https://app.turapay.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization, content-type")

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", resp.Header.Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodPost, "/functions/v1/lipila-deposit", bytes.NewReader([]byte(`{"amount":10}`)))
	req.Header.Set("Origin", "https://app.turapay.test")
	req.Header.Set("Content-Type", "application/json")

	resp, err = s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestDisbursementStatusCannotCompleteAnotherSendersTransfer(t *testing.T) {
	s := newTestServer(t)
	victim := testutil.CreateUser(t, s.db, "victim@turapay.test", true)
	testutil.CreateUser(t, s.db, "other@turapay.test", true)
	testutil.CreateTransaction(t, s.db, "tx-victim", victim.ID, models.StatusPending)
	token := s.login(t, "other@turapay.test")

	s.gw.On("Configured").Return(true)
	s.gw.On("DisbursementStatus", mock.Anything, "unrelated-ref").Return(models.JSON{"status": "Successful"}, nil).Once()

	status, body := s.do(t, http.MethodPost, "/functions/v1/lipila-disbursement", token, fiber.Map{
		"amount": 10, "referenceId": "unrelated-ref", "transactionId": "tx-victim",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Successful", body["status"])

	var tx models.Transaction
	require.NoError(t, s.db.First(&tx, "id = ?", "tx-victim").Error)
	assert.Equal(t, models.StatusPending, tx.Status)
	assert.Empty(t, tx.PaymentReference)
}
