package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"finanote/internal/core"
	applog "finanote/internal/log"
	"finanote/internal/memory"
	"finanote/internal/services"
)

const testSecret = "test-secret-0123456789abcdef0123456789"

type fakeHealth struct{ err error }

func (f fakeHealth) Ping(context.Context) error { return f.err }

type testEnv struct {
	srv   *Server
	store *memory.Store
	alice core.User
	bob   core.User
}

func newTestEnv(t *testing.T, opts ...func(*Options)) *testEnv {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	alice, _ := store.CreateUser(ctx, "Alice", "alice@example.com")
	bob, _ := store.CreateUser(ctx, "Bob", "bob@example.com")

	o := Options{
		Addr:               ":0",
		Expenses:           services.NewExpenseService(store, store, nil),
		Users:              services.NewUserService(store),
		Health:             fakeHealth{},
		JWTSecret:          testSecret,
		RateLimitPerMinute: 100,
		Logger:             applog.New(applog.Config{Level: slog.LevelError, Output: io.Discard}),
		Now:                func() time.Time { return time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC) },
	}
	for _, fn := range opts {
		fn(&o)
	}
	srv := NewServer(o)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store, alice: alice, bob: bob}
}

func token(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func (e *testEnv) do(t *testing.T, user *core.User, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+token(t, strconv.FormatInt(user.ID, 10), time.Now().Add(time.Hour)))
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func expenseBody(desc, amount, category, date string) string {
	return fmt.Sprintf(`{"description":%q,"amount":%s,"category":%q,"expenseDate":%q}`, desc, amount, category, date)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := env.do(t, nil, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	down := newTestEnv(t, func(o *Options) { o.Health = fakeHealth{err: errors.New("db gone")} })
	if rr := down.do(t, nil, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing store status=%d", rr.Code)
	}
}

func TestCategoriesArePublic(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, nil, http.MethodGet, "/api/expenses/categories", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	cats := decode[[]map[string]string](t, rr)
	if len(cats) != len(core.Categories()) || cats[0]["name"] != "FOOD" || cats[0]["displayName"] != "Food & Dining" {
		t.Fatalf("unexpected categories %v", cats)
	}
	if rr.Header().Get("X-Request-ID") == "" || rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing middleware headers: %v", rr.Header())
	}
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage", "Bearer not.a.jwt"},
		{"expired", "Bearer " + token(t, "1", time.Now().Add(-time.Hour))},
		{"non numeric subject", "Bearer " + token(t, "alice", time.Now().Add(time.Hour))},
		{"unsigned", "Bearer " + func() string {
			s, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}).
				SignedString(jwt.UnsafeAllowNoneSignatureType)
			return s
		}()},
		{"wrong secret", "Bearer " + func() string {
			s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}).
				SignedString([]byte("another-secret-another-secret-xx"))
			return s
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			env.srv.Handler.ServeHTTP(rr, req)
			if rr.Code != http.StatusUnauthorized || rr.Header().Get("WWW-Authenticate") == "" {
				t.Fatalf("status=%d headers=%v", rr.Code, rr.Header())
			}
		})
	}
}

func TestExpenseCRUD(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, &env.alice, http.MethodPost, "/api/expenses", expenseBody("Groceries", `"42,50"`, "food", "2024-05-02"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body)
	}
	created := decode[map[string]any](t, rr)
	id := int64(created["id"].(float64))
	if rr.Header().Get("Location") != "/api/expenses/"+strconv.FormatInt(id, 10) {
		t.Fatalf("location = %q", rr.Header().Get("Location"))
	}
	if created["amount"] != 42.5 || created["category"] != "FOOD" || created["categoryDisplayName"] != "Food & Dining" || created["expenseDate"] != "2024-05-02" {
		t.Fatalf("unexpected body %v", created)
	}

	path := "/api/expenses/" + strconv.FormatInt(id, 10)
	if rr := env.do(t, &env.alice, http.MethodGet, path, ""); rr.Code != http.StatusOK {
		t.Fatalf("get status=%d", rr.Code)
	}

	rr = env.do(t, &env.alice, http.MethodPut, path, expenseBody("Groceries and wine", "55.10", "FOOD", "2024-05-03"))
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body)
	}
	if got := decode[map[string]any](t, rr); got["amount"] != 55.1 || got["description"] != "Groceries and wine" {
		t.Fatalf("update body %v", got)
	}

	if rr := env.do(t, &env.alice, http.MethodDelete, path, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := env.do(t, &env.alice, http.MethodDelete, path, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
	if rr := env.do(t, &env.alice, http.MethodGet, "/api/expenses/abc", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("non-numeric id status=%d", rr.Code)
	}
}

func TestOwnershipOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	e, err := env.srv.expenses.Create(context.Background(), env.alice.ID, core.ExpenseFields{
		Description: "Rent", Amount: core.Money{Cents: 90000}, Category: core.Housing, Date: core.NewDate(2024, 5, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	path := "/api/expenses/" + strconv.FormatInt(e.ID, 10)

	for _, tc := range []struct{ method, body string }{
		{http.MethodGet, ""},
		{http.MethodPut, expenseBody("Mine now", "1", "OTHER", "2024-05-01")},
		{http.MethodDelete, ""},
	} {
		if rr := env.do(t, &env.bob, tc.method, path, tc.body); rr.Code != http.StatusForbidden {
			t.Fatalf("%s by non-owner status=%d", tc.method, rr.Code)
		}
	}

	list := decode[[]map[string]any](t, env.do(t, &env.bob, http.MethodGet, "/api/expenses", ""))
	if len(list) != 0 {
		t.Fatalf("bob sees %v", list)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{"malformed json", `{"description":`, http.StatusBadRequest, ""},
		{"empty body", ``, http.StatusBadRequest, ""},
		{"blank description", expenseBody(" ", "1", "FOOD", "2024-05-01"), http.StatusUnprocessableEntity, "description"},
		{"zero amount", expenseBody("x", "0", "FOOD", "2024-05-01"), http.StatusUnprocessableEntity, "amount"},
		{"text amount", expenseBody("x", `"lots"`, "FOOD", "2024-05-01"), http.StatusUnprocessableEntity, "amount"},
		{"overflowing amount", expenseBody("x", "184467440737095516.17", "FOOD", "2024-05-01"), http.StatusUnprocessableEntity, "amount"},
		{"huge exponent", expenseBody("x", "1e30", "FOOD", "2024-05-01"), http.StatusUnprocessableEntity, "amount"},
		{"unknown category", expenseBody("x", "1", "PETS", "2024-05-01"), http.StatusUnprocessableEntity, "category"},
		{"missing category", `{"description":"x","amount":1,"expenseDate":"2024-05-01"}`, http.StatusUnprocessableEntity, "category"},
		{"bad date", expenseBody("x", "1", "FOOD", "01/05/2024"), http.StatusUnprocessableEntity, "expenseDate"},
		{"missing date", `{"description":"x","amount":1,"category":"FOOD"}`, http.StatusUnprocessableEntity, "expenseDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, &env.alice, http.MethodPost, "/api/expenses", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
			}
			if tt.wantField != "" {
				if got := decode[map[string]any](t, rr); got["field"] != tt.wantField {
					t.Fatalf("field = %v, want %s", got["field"], tt.wantField)
				}
			}
		})
	}
}

func TestListByMonthAndRange(t *testing.T) {
	env := newTestEnv(t)
	for _, d := range []string{"2024-04-30", "2024-05-01", "2024-05-20", "2024-06-01"} {
		if rr := env.do(t, &env.alice, http.MethodPost, "/api/expenses", expenseBody("x", "1", "OTHER", d)); rr.Code != http.StatusCreated {
			t.Fatalf("seed %s status=%d", d, rr.Code)
		}
	}

	may := decode[[]map[string]any](t, env.do(t, &env.alice, http.MethodGet, "/api/expenses/month?year=2024&month=5", ""))
	if len(may) != 2 || may[0]["expenseDate"] != "2024-05-20" {
		t.Fatalf("may = %v", may)
	}
	current := decode[[]map[string]any](t, env.do(t, &env.alice, http.MethodGet, "/api/expenses/month", ""))
	if len(current) != 2 {
		t.Fatalf("default month should be May 2024, got %v", current)
	}
	if rr := env.do(t, &env.alice, http.MethodGet, "/api/expenses/month?year=2024&month=13", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("month 13 status=%d", rr.Code)
	}
	if rr := env.do(t, &env.alice, http.MethodGet, "/api/expenses/month?month=may", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("non-numeric month status=%d", rr.Code)
	}

	rng := decode[[]map[string]any](t, env.do(t, &env.alice, http.MethodGet, "/api/expenses/range?start=2024-04-30&end=2024-05-01", ""))
	if len(rng) != 2 {
		t.Fatalf("range = %v", rng)
	}
	if rr := env.do(t, &env.alice, http.MethodGet, "/api/expenses/range?start=2024-05-02&end=2024-05-01", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("inverted range status=%d", rr.Code)
	}
	if rr := env.do(t, &env.alice, http.MethodGet, "/api/expenses/range?start=2024-05-02", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing end status=%d", rr.Code)
	}
}

func TestDashboardJSON(t *testing.T) {
	env := newTestEnv(t)
	for _, body := range []string{
		expenseBody("Bus", "20", "TRANSPORT", "2024-05-10"),
		expenseBody("Lunch", "10", "FOOD", "2024-05-03"),
		expenseBody("Snack", "5", "FOOD", "2024-05-03"),
	} {
		if rr := env.do(t, &env.alice, http.MethodPost, "/api/expenses", body); rr.Code != http.StatusCreated {
			t.Fatalf("seed status=%d", rr.Code)
		}
	}

	rr := env.do(t, &env.alice, http.MethodGet, "/api/expenses/dashboard?year=2024&month=5", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`"totalExpenses":35.00`,
		`"monthlyBudget":500.00`,
		`"remainingBudget":465.00`,
		`"budgetPercentage":7`,
		`"expensesByCategory":{"Food & Dining":15.00,"Transportation":20.00}`,
		`"dailyExpenses":[{"day":3,"amount":15.00},{"day":10,"amount":20.00}]`,
		`"totalTransactions":3`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %s in %s", want, body)
		}
	}

	empty := env.do(t, &env.bob, http.MethodGet, "/api/expenses/dashboard", "").Body.String()
	if !strings.Contains(empty, `"expensesByCategory":{}`) || !strings.Contains(empty, `"dailyExpenses":[]`) || !strings.Contains(empty, `"month":5`) {
		t.Fatalf("empty dashboard = %s", empty)
	}
}

func TestProfileAndBudget(t *testing.T) {
	env := newTestEnv(t)

	profile := decode[map[string]any](t, env.do(t, &env.alice, http.MethodGet, "/api/user/profile", ""))
	if profile["email"] != "alice@example.com" || profile["monthlyBudget"] != 500.0 {
		t.Fatalf("profile = %v", profile)
	}

	rr := env.do(t, &env.alice, http.MethodPut, "/api/user/budget", `{"monthlyBudget": 750.5}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("budget status=%d body=%s", rr.Code, rr.Body)
	}
	if got := decode[map[string]any](t, rr); got["monthlyBudget"] != 750.5 {
		t.Fatalf("budget body = %v", got)
	}
	if rr := env.do(t, &env.alice, http.MethodPut, "/api/user/budget", `{"monthlyBudget": -1}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative budget status=%d", rr.Code)
	}

	rr = env.do(t, &env.alice, http.MethodPut, "/api/user/budget", `{"budget": 600}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("budget key status=%d body=%s", rr.Code, rr.Body)
	}
	if got := decode[map[string]any](t, rr); got["monthlyBudget"] != 600.0 {
		t.Fatalf("budget key body = %v", got)
	}

	for _, body := range []string{`{}`, `{"budget": null}`, `{"monthlyBudget": null}`, `{"limit": 10}`} {
		rr := env.do(t, &env.alice, http.MethodPut, "/api/user/budget", body)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s status=%d", body, rr.Code)
		}
		if got := decode[map[string]any](t, rr); got["field"] != "budget" {
			t.Fatalf("%s field = %v", body, got["field"])
		}
	}
	if rr := env.do(t, &env.alice, http.MethodPut, "/api/user/budget", `{"budget": "99999999999999999999"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("overflowing budget status=%d", rr.Code)
	}
	u, err := env.store.GetUser(context.Background(), env.alice.ID)
	if err != nil || u.MonthlyBudget.Cents != 60000 {
		t.Fatalf("rejected updates must keep the budget, got %+v err=%v", u, err)
	}

	ghost := core.User{ID: 999}
	if rr := env.do(t, &ghost, http.MethodGet, "/api/user/profile", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown user status=%d", rr.Code)
	}
}

func TestWritesAreRateLimitedPerUser(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.RateLimitPerMinute = 2 })
	body := expenseBody("x", "1", "OTHER", "2024-05-01")

	for i := 0; i < 2; i++ {
		if rr := env.do(t, &env.alice, http.MethodPost, "/api/expenses", body); rr.Code != http.StatusCreated {
			t.Fatalf("write %d status=%d", i, rr.Code)
		}
	}
	rr := env.do(t, &env.alice, http.MethodPost, "/api/expenses", body)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("third write status=%d", rr.Code)
	}
	if rr := env.do(t, &env.bob, http.MethodPost, "/api/expenses", body); rr.Code != http.StatusCreated {
		t.Fatalf("other user limited: %d", rr.Code)
	}
	for i := 0; i < 5; i++ {
		if rr := env.do(t, &env.alice, http.MethodGet, "/api/expenses", ""); rr.Code != http.StatusOK {
			t.Fatalf("reads must not be limited: %d", rr.Code)
		}
	}
	if m := env.srv.Metrics(); m.RateLimitHits != 1 || m.RateLimitedClients != 2 || m.TotalRequests != 9 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestOversizedBody(t *testing.T) {
	env := newTestEnv(t)
	big := bytes.Repeat([]byte("a"), maxBodyBytes+1)
	rr := env.do(t, &env.alice, http.MethodPost, "/api/expenses", `{"description":"`+string(big)+`"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestShutdownLogsMetrics(t *testing.T) {
	var buf bytes.Buffer
	env := newTestEnv(t, func(o *Options) {
		o.Logger = applog.New(applog.Config{Level: slog.LevelInfo, JSON: true, Output: &buf})
	})
	env.do(t, nil, http.MethodGet, "/healthz", "")
	env.do(t, nil, http.MethodTrace, "/healthz", "")

	if err := env.srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	var last map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		if json.Unmarshal([]byte(line), &rec) == nil && rec["msg"] == "HTTP server stopped" {
			last = rec
		}
	}
	if last == nil {
		t.Fatalf("no shutdown record in %s", buf.String())
	}
	if last["total_requests"] != 2.0 || last["blocked_requests"] != 1.0 || last["component"] != applog.ComponentHTTP {
		t.Fatalf("shutdown record = %v", last)
	}
}
