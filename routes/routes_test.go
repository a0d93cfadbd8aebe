package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/HSouheill/vendor_settlement/controllers"
	"github.com/HSouheill/vendor_settlement/middleware"
	"github.com/HSouheill/vendor_settlement/models"
	"github.com/HSouheill/vendor_settlement/repositories/memory"
	"github.com/HSouheill/vendor_settlement/services"
	"github.com/HSouheill/vendor_settlement/utils"
	"github.com/HSouheill/vendor_settlement/websocket"
	"github.com/juju/clock/testclock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type apiServer struct {
	e     *echo.Echo
	store *memory.Store
	admin string
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	store := memory.New()
	stores := services.Stores{
		Tx:          store,
		Vendors:     store.Vendors(),
		Plans:       store.Plans(),
		Recharges:   store.Recharges(),
		Invites:     store.Invites(),
		Ledger:      store.Ledger(),
		Withdrawals: store.Withdrawals(),
		Audit:       store.CronLogs(),
	}
	opts := services.Options{Clock: testclock.NewClock(time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC))}

	e := echo.New()
	e.Validator = utils.NewValidator()
	SetupRoutes(e, Controllers{
		Recharges: controllers.NewRechargeController(
			services.NewRechargeService(stores, opts),
			services.NewSettlementService(stores, opts),
		),
		Referrals:   controllers.NewReferralController(services.NewReferralService(stores, opts)),
		Withdrawals: controllers.NewWithdrawalController(services.NewWithdrawalService(stores, opts)),
		CronLogs:    controllers.NewCronLogController(stores.Audit),
	}, websocket.NewHub(nil), testSecret, nil)

	return &apiServer{e: e, store: store, admin: token(t, primitive.NewObjectID().Hex(), middleware.UserTypeAdmin)}
}

func token(t *testing.T, id, userType string) string {
	t.Helper()
	tok, err := middleware.GenerateJWT(testSecret, id, id+"@example.com", userType, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *apiServer) do(t *testing.T, method, path, bearer string, body interface{}) (int, envelope) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec.Code, env
}

func decode(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out), string(env.Data))
}

func (s *apiServer) register(t *testing.T, name, email, phone, code string) models.Vendor {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/vendors", s.admin, models.RegisterVendorRequest{
		FullName:     name,
		Email:        email,
		Phone:        phone,
		ReferralCode: code,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var vendor models.Vendor
	decode(t, env, &vendor)
	return vendor
}

func TestRechargeLifecycleOverHTTP(t *testing.T) {
	s := newAPIServer(t)
	parent := s.register(t, "Parent Vendor", "parent@example.com", "0700000001", "")
	child := s.register(t, "Child Vendor", "child@example.com", "0700000002", parent.ReferralCode)
	require.NotNil(t, child.ParentReferralID)
	require.Equal(t, parent.ID, *child.ParentReferralID)

	plan := models.MembershipPlan{Name: "Monthly", Price: 100, Validity: 1, Unit: models.ValidityUnitMonth, Level: 2, IsActive: true}
	require.NoError(t, s.store.Plans().Create(context.Background(), &plan))

	childToken := token(t, child.ID.Hex(), middleware.UserTypeVendor)

	status, env := s.do(t, http.MethodPost, "/api/recharges", childToken, models.CreateRechargeRequest{
		VendorID: parent.ID.Hex(),
		PlanID:   plan.ID.Hex(),
	})
	require.Equal(t, http.StatusForbidden, status, "vendors cannot buy for someone else")

	status, env = s.do(t, http.MethodPost, "/api/recharges", childToken, models.CreateRechargeRequest{
		VendorID: child.ID.Hex(),
		PlanID:   plan.ID.Hex(),
		TrnNo:    "TRN-1",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var recharge models.Recharge
	decode(t, env, &recharge)
	approvePath := "/api/admin/recharges/" + recharge.ID.Hex() + "/approve"

	status, _ = s.do(t, http.MethodPost, approvePath, "", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, approvePath, childToken, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, env = s.do(t, http.MethodPost, approvePath, s.admin, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	var result models.ApproveRechargeResponse
	decode(t, env, &result)
	require.True(t, result.Recharge.PaymentApproved)
	require.NotNil(t, result.CreditedReferrer)
	require.Equal(t, parent.ID, result.CreditedReferrer.VendorID)
	require.InDelta(t, 7.0, result.CreditedReferrer.Amount, 1e-9)

	status, env = s.do(t, http.MethodPost, approvePath, s.admin, nil)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, services.ErrAlreadyApproved.Code, env.Code)

	status, env = s.do(t, http.MethodPost, "/api/admin/recharges/"+recharge.ID.Hex()+"/cancel", s.admin,
		models.CancelRechargeRequest{Reason: "too late"})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, services.ErrAlreadyApproved.Code, env.Code)

	status, env = s.do(t, http.MethodGet, "/api/vendors/"+child.ID.Hex()+"/recharges", s.admin, nil)
	require.Equal(t, http.StatusOK, status)
	var listed []models.Recharge
	decode(t, env, &listed)
	require.Len(t, listed, 1)
}

func TestErrorMapping(t *testing.T) {
	s := newAPIServer(t)

	status, env := s.do(t, http.MethodPost, "/api/admin/recharges/not-an-id/approve", s.admin, nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, services.ErrInvalidInput.Code, env.Code)

	status, env = s.do(t, http.MethodPost, "/api/admin/recharges/"+primitive.NewObjectID().Hex()+"/approve", s.admin, nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, services.ErrRechargeNotFound.Code, env.Code)

	status, env = s.do(t, http.MethodPost, "/api/vendors", s.admin, map[string]string{"fullName": "X"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, services.ErrInvalidInput.Code, env.Code)

	status, env = s.do(t, http.MethodPost, "/api/vendors", s.admin, models.RegisterVendorRequest{
		FullName:     "Orphan",
		Email:        "orphan@example.com",
		Phone:        "0700000009",
		ReferralCode: "VEN-NOPE00",
	})
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, services.ErrReferralCodeUnknown.Code, env.Code)

	status, _ = s.do(t, http.MethodGet, "/api/admin/cron-logs?limit=0", s.admin, nil)
	require.Equal(t, http.StatusBadRequest, status)

	status, env = s.do(t, http.MethodGet, "/api/admin/cron-logs", s.admin, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestWithdrawalOverHTTP(t *testing.T) {
	s := newAPIServer(t)
	vendor := s.register(t, "Wallet Owner", "owner@example.com", "0700000003", "")
	require.NoError(t, s.store.Vendors().CreditWallet(context.Background(), vendor.ID, 50, time.Now()))
	vendorToken := token(t, vendor.ID.Hex(), middleware.UserTypeVendor)

	status, env := s.do(t, http.MethodPost, "/api/withdrawals", vendorToken, models.WithdrawalRequest{
		VendorID: vendor.ID.Hex(),
		Amount:   80,
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, services.ErrInsufficientBalance.Code, env.Code)

	status, env = s.do(t, http.MethodPost, "/api/withdrawals", vendorToken, models.WithdrawalRequest{
		VendorID: vendor.ID.Hex(),
		Amount:   20,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var withdrawal models.Withdrawal
	decode(t, env, &withdrawal)

	status, env = s.do(t, http.MethodPost, "/api/admin/withdrawals/"+withdrawal.ID.Hex()+"/reject", s.admin,
		models.WithdrawalDecisionRequest{Note: "missing bank details"})
	require.Equal(t, http.StatusOK, status, env.Message)
	decode(t, env, &withdrawal)
	require.Equal(t, models.WithdrawalStatusRejected, withdrawal.Status)

	status, env = s.do(t, http.MethodPost, "/api/withdrawals/"+withdrawal.ID.Hex()+"/cancel", vendorToken, nil)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, services.ErrWithdrawalProcessed.Code, env.Code)

	got, err := s.store.Vendors().FindByID(context.Background(), vendor.ID)
	require.NoError(t, err)
	require.InDelta(t, 50.0, got.Wallet, 1e-9)
}

func TestHealthIsPublic(t *testing.T) {
	s := newAPIServer(t)
	status, _ := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
}
