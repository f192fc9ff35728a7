package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"miscompras/internal/config"
	"miscompras/internal/dto"
	"miscompras/internal/infra"
	"miscompras/internal/model"
	"miscompras/internal/router"
	"miscompras/internal/service"
	"miscompras/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testPassword = "secreto123"

var (
	hashOnce sync.Once
	pwHash   string
)

// passwordHash is computed once; bcrypt at cost 12 is slow.
func passwordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		h, err := service.HashPassword(testPassword)
		require.NoError(t, err)
		pwHash = h
	})
	return pwHash
}

type api struct {
	t      *testing.T
	engine *gin.Engine
	db     *gorm.DB
	fx     testutil.Fixture
	tokens map[string]string // role -> access token
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	storage, err := infra.NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                "test",
		AppURL:             "http://localhost:3000",
		JWTSecret:          "test_jwt_secret_32_chars_minimum!",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		PublicUploadPrefix: "/uploads",
		MaxUploadMB:        5,
	}

	a := &api{t: t, engine: router.New(cfg, db, rdb, storage), db: db, tokens: map[string]string{}}
	var admin model.User
	for _, role := range []string{model.RoleAdmin, model.RoleDirector, model.RoleUser} {
		u := model.User{
			Email:        strings.ToLower(role) + "@museo.test",
			Name:         "Usuario " + role,
			PasswordHash: passwordHash(t),
			Role:         role,
			Active:       true,
		}
		require.NoError(t, db.Create(&u).Error)
		if role == model.RoleAdmin {
			admin = u
		}
		a.tokens[role] = a.login(u.Email)
	}
	a.fx = testutil.Seed(t, db, admin.ID, 1_000_000)
	return a
}

func (a *api) login(email string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/v1/auth/login", dto.LoginRequest{Email: email, Password: testPassword}, "")
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[dto.LoginResponse](a.t, w)
	require.NotEmpty(a.t, resp.AccessToken)
	return resp.AccessToken
}

func (a *api) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	return a.send(req, token)
}

func (a *api) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *api) createRequirement(role string, total int) model.Requirement {
	a.t.Helper()
	w := a.do(http.MethodPost, "/v1/requirements", map[string]any{
		"title":       "Compra de vitrinas",
		"projectId":   a.fx.Project.ID,
		"areaId":      a.fx.Area.ID,
		"totalAmount": total,
	}, a.tokens[role])
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.Requirement](a.t, w)
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "connected", body["db"])
	assert.Equal(t, "connected", body["redis"])
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/v1/requirements", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh_IssuesNewPair(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodPost, "/v1/auth/login", dto.LoginRequest{Email: "USER@museo.test", Password: testPassword}, "")
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[dto.LoginResponse](t, w)

	w = a.do(http.MethodPost, "/v1/auth/refresh", dto.RefreshRequest{RefreshToken: login.RefreshToken}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodPost, "/v1/auth/refresh", dto.RefreshRequest{RefreshToken: login.AccessToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateRequirement_ValidationAndNotifications(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodPost, "/v1/requirements", map[string]any{"projectId": a.fx.Project.ID}, a.tokens[model.RoleUser])
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/requirements", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, a.send(req, a.tokens[model.RoleUser]).Code)

	r := a.createRequirement(model.RoleUser, 1000)
	assert.Equal(t, model.StatusPendingApproval, r.Status)
	assert.Equal(t, model.ProcurementPendiente, r.ProcurementStatus)

	// ADMIN and DIRECTOR are notified, USER is not a recipient role.
	w = a.do(http.MethodGet, "/v1/notifications", nil, a.tokens[model.RoleDirector])
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Notification](t, w), 1)
	w = a.do(http.MethodGet, "/v1/notifications", nil, a.tokens[model.RoleUser])
	assert.Empty(t, decode[[]model.Notification](t, w))
}

func TestCreateRequirement_MultipartWithAttachment(t *testing.T) {
	a := newAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Restauracion de marcos"))
	require.NoError(t, mw.WriteField("projectId", a.fx.Project.ID.String()))
	require.NoError(t, mw.WriteField("areaId", a.fx.Area.ID.String()))
	require.NoError(t, mw.WriteField("totalAmount", "2500.50"))
	require.NoError(t, mw.WriteField("supplierId", "null"))
	fw, err := mw.CreateFormFile("files", "cotizacion.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("cotizacion"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/requirements", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := a.send(req, a.tokens[model.RoleUser])
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	r := decode[model.Requirement](t, w)
	assert.Equal(t, "2500.5", r.TotalAmount.String())
	assert.Nil(t, r.SupplierID)
	require.Len(t, r.Attachments, 1)

	// The stored file is served under the public prefix.
	file := a.send(httptest.NewRequest(http.MethodGet, r.Attachments[0].FileURL, nil), "")
	assert.Equal(t, http.StatusOK, file.Code)
	assert.Equal(t, "cotizacion", file.Body.String())
}

func TestPaymentFlow_ThroughHTTP(t *testing.T) {
	a := newAPI(t)
	admin := a.tokens[model.RoleAdmin]
	r := a.createRequirement(model.RoleUser, 1000)
	base := "/v1/requirements/" + r.ID.String()

	w := a.do(http.MethodPost, base+"/payments", map[string]any{"amount": 400}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, base+"/payments", map[string]any{"amount": 100}, admin)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "MULTIPLE_PAYMENTS_DISABLED", decode[map[string]any](t, w)["code"])

	w = a.do(http.MethodPatch, base+"/multiple-payments", map[string]any{"enabled": true}, admin)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodPost, base+"/payments", map[string]any{"amount": 700}, admin)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "AMOUNT_EXCEEDS_REQUIREMENT", decode[map[string]any](t, w)["code"])

	w = a.do(http.MethodPost, base+"/payments", map[string]any{"amount": 600, "paymentDate": "2025-03-01"}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodGet, base, nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.ProcurementFinalizado, decode[model.Requirement](t, w).ProcurementStatus)

	w = a.do(http.MethodGet, base+"/payments", nil, admin)
	payments := decode[[]model.Payment](t, w)
	require.Len(t, payments, 2)

	w = a.do(http.MethodDelete, "/v1/payments/"+payments[0].ID.String(), nil, a.tokens[model.RoleUser])
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(http.MethodDelete, "/v1/payments/"+payments[0].ID.String(), nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirementRoutes_CapabilityGuards(t *testing.T) {
	a := newAPI(t)
	r := a.createRequirement(model.RoleUser, 1000)
	user := a.tokens[model.RoleUser]

	w := a.do(http.MethodDelete, "/v1/requirements/"+r.ID.String(), nil, user)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPatch, "/v1/requirements/"+r.ID.String()+"/status", map[string]any{"status": "APPROVED"}, user)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPost, "/v1/budgets", map[string]any{"projectId": a.fx.Project.ID, "areaId": a.fx.Area.ID, "amount": 10}, a.tokens[model.RoleAdmin])
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/v1/requirements/not-a-uuid", nil, user)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(http.MethodDelete, "/v1/requirements/"+r.ID.String(), nil, a.tokens[model.RoleDirector])
	require.Equal(t, http.StatusOK, w.Code)
	w = a.do(http.MethodGet, "/v1/requirements/"+r.ID.String(), nil, a.tokens[model.RoleDirector])
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[map[string]any](t, w)["kind"])
}

func TestAsiento_ChargesBudget(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodPost, "/v1/requirements/asiento", map[string]any{
		"title":       "Asiento retroactivo",
		"projectId":   a.fx.Project.ID,
		"areaId":      a.fx.Area.ID,
		"budgetId":    a.fx.Budget.ID,
		"totalAmount": 500000,
	}, a.tokens[model.RoleDirector])
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	r := decode[model.Requirement](t, w)
	assert.True(t, r.IsAsiento)
	assert.Equal(t, model.StatusApproved, r.Status)

	w = a.do(http.MethodGet, "/v1/budgets/"+a.fx.Budget.ID.String(), nil, a.tokens[model.RoleDirector])
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "500000", decode[model.Budget](t, w).Available.String())
}

func TestGroupFlow_MassCreateAndApprove(t *testing.T) {
	a := newAPI(t)
	drafts := []map[string]any{
		{"title": "Pintura", "projectId": a.fx.Project.ID, "areaId": a.fx.Area.ID, "totalAmount": 100},
		{"title": "Pinceles", "projectId": a.fx.Project.ID, "areaId": a.fx.Area.ID, "totalAmount": 50},
	}
	w := a.do(http.MethodPost, "/v1/requirements/mass", map[string]any{"requirements": drafts}, a.tokens[model.RoleUser])
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.MassCreateResponse](t, w)
	require.Len(t, created.Requirements, 2)
	assert.NotEmpty(t, created.PdfURL)

	w = a.do(http.MethodGet, "/v1/groups/pending", nil, a.tokens[model.RoleDirector])
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[[]dto.PendingGroup](t, w)
	require.Len(t, pending, 1)
	assert.Equal(t, created.Group.ID.String(), pending[0].ID)

	w = a.do(http.MethodPost, "/v1/groups/"+created.Group.ID.String()+"/approve", nil, a.tokens[model.RoleUser])
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPost, "/v1/groups/"+created.Group.ID.String()+"/approve", dto.GroupDecisionRequest{Comments: "ok"}, a.tokens[model.RoleDirector])
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[dto.GroupDecisionResponse](t, w).AllApproved)

	w = a.do(http.MethodGet, "/v1/groups/pending", nil, a.tokens[model.RoleDirector])
	assert.Empty(t, decode[[]dto.PendingGroup](t, w))
}

func TestInvoiceFlow_ThroughHTTP(t *testing.T) {
	a := newAPI(t)
	admin := a.tokens[model.RoleAdmin]
	r := a.createRequirement(model.RoleUser, 1000)

	w := a.do(http.MethodPost, "/v1/invoices", map[string]any{"invoiceNumber": "F-001", "amount": 800}, a.tokens[model.RoleUser])
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inv := decode[model.Invoice](t, w)
	path := "/v1/invoices/" + inv.ID.String()

	// The purchase order is still pending approval.
	w = a.do(http.MethodPost, path+"/verify", map[string]any{"requirementId": r.ID}, admin)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "PURCHASE_ORDER_NOT_APPROVED", decode[map[string]any](t, w)["code"])

	w = a.do(http.MethodPatch, "/v1/requirements/"+r.ID.String()+"/status", map[string]any{"status": "APPROVED", "remarks": "ok"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPost, path+"/pay", nil, admin)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode[map[string]any](t, w)["code"])

	for _, step := range []string{"/verify", "/approve", "/pay"} {
		body := any(nil)
		if step == "/verify" {
			body = map[string]any{"requirementId": r.ID}
		}
		w = a.do(http.MethodPost, path+step, body, admin)
		require.Equal(t, http.StatusOK, w.Code, step+": "+w.Body.String())
	}
	assert.Equal(t, model.InvoicePaid, decode[model.Invoice](t, w).Status)

	w = a.do(http.MethodGet, "/v1/requirements/"+r.ID.String()+"/payments", nil, admin)
	payments := decode[[]model.Payment](t, w)
	require.Len(t, payments, 1)
	assert.Equal(t, 1, payments[0].PaymentNumber)

	w = a.do(http.MethodGet, "/v1/invoices", nil, a.tokens[model.RoleUser])
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCatalogAndUsers(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/v1/areas", nil, a.tokens[model.RoleUser])
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Area](t, w), 1)

	w = a.do(http.MethodGet, "/v1/users", nil, a.tokens[model.RoleUser])
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPost, "/v1/users", dto.CreateUserRequest{
		Email: "Nuevo@Museo.test", Name: "Nuevo", Password: "password1", Role: model.RoleLeader,
	}, a.tokens[model.RoleAdmin])
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "nuevo@museo.test", decode[dto.UserResponse](t, w).Email)

	w = a.do(http.MethodGet, "/v1/users", nil, a.tokens[model.RoleAdmin])
	assert.Len(t, decode[[]dto.UserResponse](t, w), 4)
}

func TestEmailDLQ_AdminOnly(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/v1/admin/email-dlq", nil, a.tokens[model.RoleDirector])
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/v1/admin/email-dlq?limit=500", nil, a.tokens[model.RoleAdmin])
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(http.MethodGet, "/v1/admin/email-dlq", nil, a.tokens[model.RoleAdmin])
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]map[string]any](t, w))

	w = a.do(http.MethodPost, "/v1/admin/email-dlq/requeue", nil, a.tokens[model.RoleAdmin])
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode[map[string]any](t, w)["requeued"])
}
