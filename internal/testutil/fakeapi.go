package testutil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"tripboard/internal/service"
)

// RecordedRequest is one request received by FakeAPI.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

type failure struct {
	status int
	body   string
}

type account struct {
	user     service.User
	password string
}

// FakeAPI is an HTTP fake of the TripBoard REST API backed by a FakeService.
// Routes live under /api like the real server.
type FakeAPI struct {
	Service *FakeService

	// AccessTTL is the lifetime of access tokens issued by login and refresh.
	AccessTTL time.Duration

	server *httptest.Server

	mu        sync.Mutex
	requests  []RecordedRequest
	failures  map[string]failure
	accounts  map[string]account // email -> account
	refreshes map[string]int64   // refresh token -> user id
	revoked   map[string]bool
	nextUser  int64
}

// NewFakeAPI starts a fake API server that is closed when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		Service:   NewFakeService(),
		AccessTTL: time.Hour,
		failures:  make(map[string]failure),
		accounts:  make(map[string]account),
		refreshes: make(map[string]int64),
		revoked:   make(map[string]bool),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(f.record, f.inject)
	f.register(e)

	f.server = httptest.NewServer(e)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the API base URL, including the /api prefix.
func (f *FakeAPI) URL() string {
	return f.server.URL + "/api"
}

// AddUser registers an account that can log in.
func (f *FakeAPI) AddUser(email, password string) service.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(email, password, "")
}

func (f *FakeAPI) addUserLocked(email, password, fullName string) service.User {
	f.nextUser++
	first, last, _ := strings.Cut(fullName, " ")
	u := service.User{
		ID:        f.nextUser,
		Username:  strings.Split(email, "@")[0],
		Email:     email,
		FirstName: first,
		LastName:  last,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.accounts[email] = account{user: u, password: password}
	return u
}

// Tokens issues a token pair for user, as login would.
func (f *FakeAPI) Tokens(user service.User) service.Tokens {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueLocked(user.ID)
}

func (f *FakeAPI) issueLocked(userID int64) service.Tokens {
	refresh := fmt.Sprintf("refresh-%d-%d", userID, len(f.refreshes)+1)
	f.refreshes[refresh] = userID
	return service.Tokens{
		Access:  AccessToken(strconv.FormatInt(userID, 10), time.Now().Add(f.AccessTTL)),
		Refresh: refresh,
	}
}

// Fail makes every request matching method and path answer with status and
// a JSON body. path is the full request path, e.g. "/api/cards/5/move/".
func (f *FakeAPI) Fail(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = failure{status: status, body: body}
}

// ClearFailures removes every injected failure.
func (f *FakeAPI) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]failure)
}

// Requests returns every request received so far.
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// RequestsTo returns the requests matching method and path.
func (f *FakeAPI) RequestsTo(method, path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (f *FakeAPI) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		var body []byte
		if req.Body != nil {
			body, _ = io.ReadAll(req.Body)
			req.Body = io.NopCloser(strings.NewReader(string(body)))
		}
		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method: req.Method,
			Path:   req.URL.Path,
			Query:  req.URL.RawQuery,
			Header: req.Header.Clone(),
			Body:   body,
		})
		f.mu.Unlock()
		return next(c)
	}
}

func (f *FakeAPI) inject(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		f.mu.Lock()
		fail, ok := f.failures[c.Request().Method+" "+c.Request().URL.Path]
		f.mu.Unlock()
		if ok {
			return c.Blob(fail.status, echo.MIMEApplicationJSON, []byte(fail.body))
		}
		return next(c)
	}
}

// authenticated verifies the bearer token the way the real server does.
func (f *FakeAPI) authenticated(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
		}
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return testSecret, nil })
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
		}
		sub, _ := claims["sub"].(string)
		c.Set("user_id", sub)
		return next(c)
	}
}

func (f *FakeAPI) register(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/auth/login/", f.login)
	api.POST("/auth/register/", f.signup)
	api.POST("/auth/token/refresh/", f.refresh)

	authed := api.Group("", f.authenticated)
	authed.POST("/auth/logout/", f.logout)
	authed.GET("/auth/me/", f.me)

	authed.GET("/boards/", func(c echo.Context) error {
		boards, err := f.Service.ListBoards(c.Request().Context())
		return respond(c, http.StatusOK, boards, err)
	})
	authed.POST("/boards/", func(c echo.Context) error {
		var nb service.NewBoard
		if err := decode(c, &nb); err != nil {
			return err
		}
		b, err := f.Service.CreateBoard(c.Request().Context(), nb)
		return respond(c, http.StatusCreated, b, err)
	})
	authed.GET("/boards/:id/", func(c echo.Context) error {
		b, err := f.Service.GetBoard(c.Request().Context(), idParam(c, "id"))
		return respond(c, http.StatusOK, b, err)
	})
	authed.PATCH("/boards/:id/", func(c echo.Context) error {
		var p service.BoardPatch
		if err := decode(c, &p); err != nil {
			return err
		}
		b, err := f.Service.UpdateBoard(c.Request().Context(), idParam(c, "id"), p)
		return respond(c, http.StatusOK, b, err)
	})
	authed.DELETE("/boards/:id/", func(c echo.Context) error {
		err := f.Service.DeleteBoard(c.Request().Context(), idParam(c, "id"))
		return respond(c, http.StatusNoContent, nil, err)
	})

	authed.POST("/boards/:id/lists/", func(c echo.Context) error {
		var p service.ListPatch
		if err := decode(c, &p); err != nil {
			return err
		}
		l, err := f.Service.CreateList(c.Request().Context(), idParam(c, "id"), p)
		return respond(c, http.StatusCreated, l, err)
	})
	authed.PATCH("/boards/:id/lists/:list/", func(c echo.Context) error {
		var p service.ListPatch
		if err := decode(c, &p); err != nil {
			return err
		}
		l, err := f.Service.UpdateList(c.Request().Context(), idParam(c, "id"), idParam(c, "list"), p)
		return respond(c, http.StatusOK, l, err)
	})
	authed.DELETE("/boards/:id/lists/:list/", func(c echo.Context) error {
		err := f.Service.DeleteList(c.Request().Context(), idParam(c, "id"), idParam(c, "list"))
		return respond(c, http.StatusNoContent, nil, err)
	})

	authed.POST("/boards/:id/lists/:list/cards/", func(c echo.Context) error {
		var p service.CardPatch
		if err := decode(c, &p); err != nil {
			return err
		}
		card, err := f.Service.CreateCard(c.Request().Context(), idParam(c, "id"), idParam(c, "list"), p)
		return respond(c, http.StatusCreated, card, err)
	})
	authed.PATCH("/boards/:id/lists/:list/cards/:card/", func(c echo.Context) error {
		var p service.CardPatch
		if err := decode(c, &p); err != nil {
			return err
		}
		card, err := f.Service.UpdateCard(c.Request().Context(), idParam(c, "id"), idParam(c, "list"), idParam(c, "card"), p)
		return respond(c, http.StatusOK, card, err)
	})
	authed.DELETE("/boards/:id/lists/:list/cards/:card/", func(c echo.Context) error {
		err := f.Service.DeleteCard(c.Request().Context(), idParam(c, "id"), idParam(c, "list"), idParam(c, "card"))
		return respond(c, http.StatusNoContent, nil, err)
	})
	authed.PATCH("/cards/:card/move/", func(c echo.Context) error {
		var m service.MoveCard
		if err := decode(c, &m); err != nil {
			return err
		}
		cardID := idParam(c, "card")
		boardID, _ := f.Service.BoardForCard(cardID)
		card, err := f.Service.MoveCard(c.Request().Context(), boardID, cardID, m)
		return respond(c, http.StatusOK, card, err)
	})

	authed.GET("/boards/:id/budget/summary/", func(c echo.Context) error {
		s, err := f.Service.BudgetSummary(c.Request().Context(), idParam(c, "id"))
		return respond(c, http.StatusOK, s, err)
	})
	authed.GET("/boards/:id/expenses/", func(c echo.Context) error {
		flt := service.ExpenseFilter{
			Category: c.QueryParam("category"),
			DateFrom: c.QueryParam("date_from"),
			DateTo:   c.QueryParam("date_to"),
		}
		out, err := f.Service.ListExpenses(c.Request().Context(), idParam(c, "id"), flt)
		return respond(c, http.StatusOK, out, err)
	})
	authed.POST("/boards/:id/expenses/", func(c echo.Context) error {
		var p service.ExpensePatch
		if err := decode(c, &p); err != nil {
			return err
		}
		out, err := f.Service.CreateExpense(c.Request().Context(), idParam(c, "id"), p)
		return respond(c, http.StatusCreated, out, err)
	})
	authed.PATCH("/expenses/:expense/", func(c echo.Context) error {
		var p service.ExpensePatch
		if err := decode(c, &p); err != nil {
			return err
		}
		out, err := f.Service.UpdateExpense(c.Request().Context(), 0, idParam(c, "expense"), p)
		return respond(c, http.StatusOK, out, err)
	})
	authed.DELETE("/expenses/:expense/", func(c echo.Context) error {
		err := f.Service.DeleteExpense(c.Request().Context(), 0, idParam(c, "expense"))
		return respond(c, http.StatusNoContent, nil, err)
	})

	authed.GET("/maps/", func(c echo.Context) error {
		boardID, _ := strconv.ParseInt(c.QueryParam("board"), 10, 64)
		out, err := f.Service.ListLocations(c.Request().Context(), boardID)
		return respond(c, http.StatusOK, out, err)
	})
	authed.POST("/maps/", func(c echo.Context) error {
		var nl service.NewLocation
		if err := decode(c, &nl); err != nil {
			return err
		}
		boardID, _ := f.Service.BoardForCard(nl.CardID)
		out, err := f.Service.CreateLocation(c.Request().Context(), boardID, nl)
		return respond(c, http.StatusCreated, out, err)
	})
	authed.DELETE("/maps/:location/", func(c echo.Context) error {
		locID := idParam(c, "location")
		boardID, _ := f.Service.BoardForLocation(locID)
		err := f.Service.DeleteLocation(c.Request().Context(), boardID, locID)
		return respond(c, http.StatusNoContent, nil, err)
	})
}

func (f *FakeAPI) login(c echo.Context) error {
	var cr service.Credentials
	if err := decode(c, &cr); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[cr.Email]
	if !ok || acct.password != cr.Password {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
	}
	return c.JSON(http.StatusOK, service.AuthResult{
		Message: "Login successful",
		User:    acct.user,
		Tokens:  f.issueLocked(acct.user.ID),
	})
}

func (f *FakeAPI) signup(c echo.Context) error {
	var r service.Registration
	if err := decode(c, &r); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[r.Email]; exists {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "A user with that email already exists."})
	}
	if r.Password != r.PasswordConfirm {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Passwords do not match"})
	}
	u := f.addUserLocked(r.Email, r.Password, r.FullName)
	return c.JSON(http.StatusCreated, service.AuthResult{
		Message: "Registration successful",
		User:    u,
		Tokens:  f.issueLocked(u.ID),
	})
}

func (f *FakeAPI) refresh(c echo.Context) error {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := decode(c, &body); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.refreshes[body.Refresh]
	if !ok || f.revoked[body.Refresh] {
		return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
	}
	access := AccessToken(strconv.FormatInt(userID, 10), time.Now().Add(f.AccessTTL))
	return c.JSON(http.StatusOK, map[string]string{"access": access})
}

func (f *FakeAPI) logout(c echo.Context) error {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := decode(c, &body); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[body.Refresh] = true
	return c.JSON(http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (f *FakeAPI) me(c echo.Context) error {
	sub, _ := c.Get("user_id").(string)
	id, _ := strconv.ParseInt(sub, 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acct := range f.accounts {
		if acct.user.ID == id {
			return c.JSON(http.StatusOK, map[string]service.User{"user": acct.user})
		}
	}
	return c.JSON(http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func idParam(c echo.Context, name string) int64 {
	id, _ := strconv.ParseInt(c.Param(name), 10, 64)
	return id
}

func decode(c echo.Context, v any) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(data) == 0 {
		return nil
	}
	if err := sonic.ConfigStd.Unmarshal(data, v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	return nil
}

// respond writes v with status, or maps err onto an API error response.
func respond(c echo.Context, status int, v any, err error) error {
	var se *service.ServerError
	switch {
	case err == nil && v == nil:
		return c.NoContent(status)
	case err == nil:
		return c.JSON(status, v)
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "Not found."})
	case errors.Is(err, service.ErrAuthenticationRequired):
		return c.JSON(http.StatusUnauthorized, map[string]string{"detail": err.Error()})
	case errors.As(err, &se):
		return c.JSON(se.Status, map[string]string{"message": se.Message})
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
}
