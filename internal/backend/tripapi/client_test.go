package tripapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"tripboard/internal/backend/tripapi"
	"tripboard/internal/service"
	"tripboard/internal/session"
	"tripboard/internal/testutil"
)

func signedIn(t *testing.T, api *testutil.FakeAPI) *session.Session {
	t.Helper()
	u := api.AddUser("ana@example.com", "secret1")
	s := session.New()
	s.SignIn(u, api.Tokens(u))
	return s
}

func seedBoard(api *testutil.FakeAPI) service.Board {
	return api.Service.AddBoard(service.Board{
		Title:  "Lisbon",
		Budget: "1200.00",
		Lists: []service.List{
			{Title: "Planning", Position: 0, Cards: []service.Card{
				{Title: "Flights", Position: 0, Budget: "300.00", PeopleNumber: 2},
				{Title: "Hotel", Position: 1, Budget: "90.00", PeopleNumber: 2},
			}},
			{Title: "Booked", Position: 1, Cards: []service.Card{}},
		},
	})
}

func TestListBoards_NoCredentialReturnsEmptyWithoutRequest(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	seedBoard(api)
	c := tripapi.New(context.Background(), api.URL(), session.New())

	boards, err := c.ListBoards(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, boards)
	assert.Empty(t, boards)
	assert.Empty(t, api.Requests())
}

func TestListBoards_NotFoundIsEmpty(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.Fail(http.MethodGet, "/api/boards/", http.StatusNotFound, `{"detail":"Not found."}`)
	c := tripapi.New(context.Background(), api.URL(), signedIn(t, api))

	boards, err := c.ListBoards(context.Background())
	require.NoError(t, err)
	assert.Empty(t, boards)
}

func TestListBoards_DecodesArrayAndEnvelope(t *testing.T) {
	for name, body := range map[string]string{
		"array":    `[{"id":1,"title":"Rome"},{"id":2,"title":"Oslo"}]`,
		"envelope": `{"count":2,"next":null,"previous":null,"results":[{"id":1,"title":"Rome"},{"id":2,"title":"Oslo"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			api := testutil.NewFakeAPI(t)
			api.Fail(http.MethodGet, "/api/boards/", http.StatusOK, body)
			c := tripapi.New(context.Background(), api.URL(), signedIn(t, api))

			boards, err := c.ListBoards(context.Background())
			require.NoError(t, err)
			require.Len(t, boards, 2)
			assert.Equal(t, "Rome", boards[0].Title)
			assert.Equal(t, int64(2), boards[1].ID)
		})
	}
}

func TestRequestHeaders(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	sess := signedIn(t, api)
	b := seedBoard(api)
	c := tripapi.New(context.Background(), api.URL(), sess)

	_, err := c.UpdateBoard(context.Background(), b.ID, service.BoardPatch{Title: service.Ptr("Porto")})
	require.NoError(t, err)

	reqs := api.RequestsTo(http.MethodPatch, "/api/boards/"+itoa(b.ID)+"/")
	require.Len(t, reqs, 1)
	h := reqs[0].Header
	assert.Equal(t, "Bearer "+sess.Token().AccessToken, h.Get("Authorization"))
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Equal(t, "application/json", h.Get("Accept"))
	_, err = uuid.Parse(h.Get(tripapi.RequestIDHeader))
	assert.NoError(t, err, "request id should be a uuid")
	assert.JSONEq(t, `{"title":"Porto"}`, string(reqs[0].Body))
}

func TestGetBoard_NoCredentialFailsBeforeRequest(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	c := tripapi.New(context.Background(), api.URL(), session.New())

	_, err := c.GetBoard(context.Background(), 1)
	assert.ErrorIs(t, err, service.ErrAuthenticationRequired)
	assert.Empty(t, api.Requests())
}

func TestMoveCard_Body(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	b := seedBoard(api)
	c := tripapi.New(context.Background(), api.URL(), signedIn(t, api))
	card := b.Lists[0].Cards[0]
	path := "/api/cards/" + itoa(card.ID) + "/move/"

	_, err := c.MoveCard(context.Background(), b.ID, card.ID, service.MoveCard{NewPosition: 1})
	require.NoError(t, err)
	_, err = c.MoveCard(context.Background(), b.ID, card.ID, service.MoveCard{NewListID: service.Ptr(b.Lists[1].ID), NewPosition: 0})
	require.NoError(t, err)

	reqs := api.RequestsTo(http.MethodPatch, path)
	require.Len(t, reqs, 2)
	assert.JSONEq(t, `{"new_position":1}`, string(reqs[0].Body))
	assert.JSONEq(t, `{"new_list_id":`+itoa(b.Lists[1].ID)+`,"new_position":0}`, string(reqs[1].Body))

	after, ok := api.Service.Board(b.ID)
	require.True(t, ok)
	require.Len(t, after.Lists[1].Cards, 1)
	assert.Equal(t, card.ID, after.Lists[1].Cards[0].ID)
}

func TestErrorMessagePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message wins", 500, `{"message":"boom","detail":"d","error":"e"}`, "boom"},
		{"detail before error", 400, `{"detail":"bad input","error":"e"}`, "bad input"},
		{"error last", 409, `{"error":"conflict"}`, "conflict"},
		{"fallback", 502, ``, "HTTP 502: Bad Gateway"},
		{"non json", 500, `<html>oops</html>`, "HTTP 500: Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := testutil.NewFakeAPI(t)
			b := seedBoard(api)
			api.Fail(http.MethodGet, "/api/boards/"+itoa(b.ID)+"/", tt.status, tt.body)
			c := tripapi.New(context.Background(), api.URL(), signedIn(t, api))

			_, err := c.GetBoard(context.Background(), b.ID)
			var se *service.ServerError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.Status)
			assert.Equal(t, tt.want, se.Message)
		})
	}
}

func TestStatusClassification(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	b := seedBoard(api)
	c := tripapi.New(context.Background(), api.URL(), signedIn(t, api))

	_, err := c.GetBoard(context.Background(), 9999)
	assert.ErrorIs(t, err, service.ErrNotFound)

	api.Fail(http.MethodGet, "/api/boards/"+itoa(b.ID)+"/", http.StatusForbidden, `{"detail":"You do not have permission"}`)
	_, err = c.GetBoard(context.Background(), b.ID)
	assert.ErrorIs(t, err, service.ErrAuthenticationRequired)
	assert.Contains(t, err.Error(), "You do not have permission")
}

func TestExpiredAccessTokenIsRefreshed(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	u := api.AddUser("ana@example.com", "secret1")
	tokens := api.Tokens(u)
	b := seedBoard(api)

	sess := session.New()
	sess.SignIn(u, service.Tokens{
		Access:  testutil.AccessToken("1", time.Now().Add(-time.Minute)),
		Refresh: tokens.Refresh,
	})
	c := tripapi.New(context.Background(), api.URL(), sess)

	got, err := c.GetBoard(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", got.Title)
	assert.Len(t, api.RequestsTo(http.MethodPost, "/api/auth/token/refresh/"), 1)
	assert.False(t, sess.Expired(time.Now()))
	assert.Equal(t, tokens.Refresh, sess.RefreshToken())
	assert.True(t, sess.Dirty())
}

func TestRevokedRefreshTokenRequiresLogin(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	u := api.AddUser("ana@example.com", "secret1")
	sess := session.New()
	sess.SignIn(u, service.Tokens{
		Access:  testutil.AccessToken("1", time.Now().Add(-time.Minute)),
		Refresh: "never-issued",
	})
	c := tripapi.New(context.Background(), api.URL(), sess)

	_, err := c.GetBoard(context.Background(), 1)
	require.ErrorIs(t, err, service.ErrAuthenticationRequired)
	assert.Empty(t, api.RequestsTo(http.MethodGet, "/api/boards/1/"))
}

func TestLoginRegisterMeLogout(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("ana@example.com", "secret1")
	ctx := context.Background()
	sess := session.New()
	c := tripapi.New(ctx, api.URL(), sess)

	_, err := c.Login(ctx, service.Credentials{Email: "ana@example.com", Password: "wrong"})
	require.ErrorIs(t, err, service.ErrAuthenticationRequired)
	assert.Contains(t, err.Error(), "Invalid email or password")

	res, err := c.Login(ctx, service.Credentials{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ana", res.User.Username)
	require.NotEmpty(t, res.Tokens.Access)
	sess.SignIn(res.User, res.Tokens)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", me.Email)

	require.NoError(t, c.Logout(ctx, res.Tokens.Refresh))
	var body map[string]string
	reqs := api.RequestsTo(http.MethodPost, "/api/auth/logout/")
	require.Len(t, reqs, 1)
	require.NoError(t, sonic.ConfigStd.Unmarshal(reqs[0].Body, &body))
	assert.Equal(t, res.Tokens.Refresh, body["refresh"])

	reg, err := c.Register(ctx, service.Registration{
		Username: "bo", Email: "bo@example.com", FullName: "Bo Lind",
		Password: "secret2", PasswordConfirm: "secret2",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bo", reg.User.FirstName)
}

func TestListExpensesQuery(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	b := seedBoard(api)
	api.Service.AddExpense(b.ID, service.Expense{Title: "Taxi", Amount: "20.00", Category: "transport", Date: "2024-05-02"})
	api.Service.AddExpense(b.ID, service.Expense{Title: "Dinner", Amount: "45.50", Category: "food", Date: "2024-05-03"})
	c := tripapi.New(context.Background(), api.URL(), signedIn(t, api))

	out, err := c.ListExpenses(context.Background(), b.ID, service.ExpenseFilter{Category: "food", DateFrom: "2024-05-01"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Dinner", out[0].Title)

	reqs := api.RequestsTo(http.MethodGet, "/api/boards/"+itoa(b.ID)+"/expenses/")
	require.Len(t, reqs, 1)
	assert.Equal(t, "category=food&date_from=2024-05-01", reqs[0].Query)

	sum, err := c.BudgetSummary(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "65.50", sum.ActualSpendTotal)
	assert.Equal(t, "1134.50", sum.Remaining)
}

func TestLocations(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	b := seedBoard(api)
	c := tripapi.New(context.Background(), api.URL(), signedIn(t, api))
	ctx := context.Background()

	loc, err := c.CreateLocation(ctx, b.ID, service.NewLocation{
		CardID: b.Lists[0].Cards[1].ID, Name: "Hotel Avenida", Latitude: "38.7223", Longitude: "-9.1393",
	})
	require.NoError(t, err)

	locs, err := c.ListLocations(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "Hotel Avenida", locs[0].Name)
	assert.Len(t, api.RequestsTo(http.MethodGet, "/api/maps/"), 1)

	require.NoError(t, c.DeleteLocation(ctx, b.ID, loc.ID))
	locs, err = c.ListLocations(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, locs)
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := tripapi.New(context.Background(), url, session.New())
	_, err := c.Login(context.Background(), service.Credentials{Email: "a@b.c", Password: "x"})
	var ne *service.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.True(t, service.IsRetryable(err))
}

func TestCanceledContext(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	c := tripapi.New(context.Background(), api.URL(), signedIn(t, api))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetBoard(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, service.IsRetryable(err))
}

func TestSpansAndLogs(t *testing.T) {
	tp, exporter, restore := setupTestTracer(t)
	defer restore()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	api := testutil.NewFakeAPI(t)
	b := seedBoard(api)
	c := tripapi.New(context.Background(), api.URL(), signedIn(t, api), tripapi.WithLogger(logger))

	_, err := c.GetBoard(context.Background(), b.ID)
	require.NoError(t, err)
	_, err = c.GetBoard(context.Background(), 9999)
	require.Error(t, err)
	require.NoError(t, tp.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "tripapi.GetBoard", spans[0].Name)
	attrs := attributesToMap(spans[0].Attributes)
	assert.Equal(t, "GET", attrs["http.method"])
	assert.Equal(t, "/boards/{id}/", attrs["http.route"])
	assert.Equal(t, int64(200), attrs["http.status_code"])
	assert.Equal(t, codes.Error, spans[1].Status.Code)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "tripapi.request", entries[0].Message)
	assert.Equal(t, 200, entries[0].Data["status"])
	assert.Equal(t, 404, entries[1].Data["status"])
	assert.NotEmpty(t, entries[1].Data["error"])
}

func setupTestTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter, func()) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	cleanup := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown tracer provider: %v", err)
		}
		otel.SetTracerProvider(prev)
	}
	return tp, exporter, cleanup
}

func attributesToMap(attrs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
