// Package googletasks copies a TripBoard board into Google Tasks.
//
// Every board list becomes a task list named "<board> / <list>" and every
// card becomes a task in it. Lists that already exist with that title are
// reused, so running an export twice appends to the same lists.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"tripboard/internal/boardview"
	"tripboard/internal/config"
	"tripboard/internal/output"
	"tripboard/internal/service"
)

const (
	// APITimeout is the timeout for a single Google Tasks call.
	APITimeout = 10 * time.Second

	// DefaultRate is the sustained number of calls per second.
	DefaultRate = 5

	// StatusCompleted and StatusNeedsAction are Google Tasks statuses.
	StatusCompleted   = "completed"
	StatusNeedsAction = "needsAction"

	tasksScope = tasks.TasksScope
)

var (
	// ErrNotLinked means no Google token is stored.
	ErrNotLinked = errors.New("google tasks is not linked (run: tripboard gtasks-link)")

	// ErrTokenRevoked means Google rejected the stored token.
	ErrTokenRevoked = errors.New("google tasks token expired or revoked (run: tripboard gtasks-link)")
)

// Result counts what an export created.
type Result struct {
	ListsCreated int `json:"lists_created"`
	ListsReused  int `json:"lists_reused"`
	Tasks        int `json:"tasks"`
}

// Exporter writes boards into Google Tasks.
type Exporter struct {
	svc      *tasks.Service
	limiter  *rate.Limiter
	logger   log.FieldLogger
	currency string
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLimiter paces API calls.
func WithLimiter(l *rate.Limiter) Option {
	return func(e *Exporter) { e.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(l log.FieldLogger) Option {
	return func(e *Exporter) { e.logger = l }
}

// WithCurrency sets the currency used for boards that carry none.
func WithCurrency(c string) Option {
	return func(e *Exporter) { e.currency = c }
}

// New returns an Exporter over svc.
func New(svc *tasks.Service, opts ...Option) *Exporter {
	e := &Exporter{
		svc:      svc,
		limiter:  rate.NewLimiter(rate.Limit(DefaultRate), 1),
		logger:   log.StandardLogger(),
		currency: config.DefaultCurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewService builds a Google Tasks client from oauth_client.json and the
// token stored by the link flow.
func NewService(ctx context.Context, cfg *config.Config) (*tasks.Service, error) {
	oauthConfig, err := LoadOAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	token, err := loadToken(cfg.GoogleTokenPath())
	if err != nil {
		return nil, err
	}
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, token))
	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return svc, nil
}

// NewServiceWithHTTPClient creates a client against endpoint (for testing).
func NewServiceWithHTTPClient(ctx context.Context, hc *http.Client, endpoint string) (*tasks.Service, error) {
	return tasks.NewService(ctx, option.WithHTTPClient(hc), option.WithEndpoint(endpoint))
}

// LoadOAuthConfig reads the Google OAuth client credentials.
func LoadOAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.GoogleClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", config.GoogleClientFile, err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.GoogleClientFile, err)
	}
	return oauthConfig, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotLinked
		}
		return nil, fmt.Errorf("failed to read %s: %w", config.GoogleTokenFile, err)
	}
	var token oauth2.Token
	if err := sonic.ConfigStd.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.GoogleTokenFile, err)
	}
	return &token, nil
}

// SaveToken writes token to path with mode 0600.
func SaveToken(path string, token *oauth2.Token) error {
	data, err := sonic.ConfigStd.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ListTitle is the Google Tasks list name for a board list.
func ListTitle(b service.Board, l service.List) string {
	return strings.TrimSpace(b.Title) + " / " + strings.TrimSpace(l.Title)
}

// Export copies b into Google Tasks. Lists are visited in display order and
// cards in completed lists are inserted as completed tasks.
func (e *Exporter) Export(ctx context.Context, b service.Board) (Result, error) {
	var res Result

	existing, err := e.listsByTitle(ctx)
	if err != nil {
		return res, err
	}

	currency := b.Currency
	if currency == "" {
		currency = e.currency
	}

	for _, l := range boardview.SortedLists(b) {
		title := ListTitle(b, l)
		listID, ok := existing[titleKey(title)]
		if ok {
			res.ListsReused++
		} else {
			listID, err = e.createList(ctx, title)
			if err != nil {
				return res, err
			}
			existing[titleKey(title)] = listID
			res.ListsCreated++
		}

		completed := boardview.IsCompletedList(l)
		for _, c := range boardview.SortedCards(l) {
			if err := e.insertTask(ctx, listID, taskFor(c, completed, currency)); err != nil {
				return res, err
			}
			res.Tasks++
		}
		e.logger.WithFields(log.Fields{
			"board_id": b.ID,
			"list":     title,
			"cards":    len(l.Cards),
		}).Debug("gtasks.list_exported")
	}
	return res, nil
}

func (e *Exporter) listsByTitle(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()
	err := e.svc.Tasklists.List().MaxResults(100).Pages(callCtx, func(resp *tasks.TaskLists) error {
		for _, list := range resp.Items {
			key := titleKey(list.Title)
			if _, dup := out[key]; !dup {
				out[key] = list.Id
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return out, nil
}

func (e *Exporter) createList(ctx context.Context, title string) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()
	list, err := e.svc.Tasklists.Insert(&tasks.TaskList{Title: title}).Context(callCtx).Do()
	if err != nil {
		return "", wrapError(err)
	}
	return list.Id, nil
}

func (e *Exporter) insertTask(ctx context.Context, listID string, t *tasks.Task) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()
	if _, err := e.svc.Tasks.Insert(listID, t).Context(callCtx).Do(); err != nil {
		return wrapError(err)
	}
	return nil
}

func taskFor(c service.Card, completed bool, currency string) *tasks.Task {
	t := &tasks.Task{Title: c.Title, Status: StatusNeedsAction}
	if completed {
		t.Status = StatusCompleted
	}

	var notes []string
	if d := strings.TrimSpace(c.Description); d != "" {
		notes = append(notes, d)
	}
	if cost := boardview.CardCost(c); !cost.IsZero() {
		notes = append(notes, "Budget: "+output.Money(cost, currency))
	}
	t.Notes = strings.Join(notes, "\n")

	// Google Tasks keeps only the date part of due.
	if due, ok := boardview.ParseDate(c.DueDate); ok {
		t.Due = time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	}
	return t
}

func titleKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func wrapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrTokenRevoked
		case http.StatusNotFound:
			return fmt.Errorf("google tasks: %w", service.ErrNotFound)
		}
		return fmt.Errorf("google tasks: %s", gerr.Message)
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return ErrTokenRevoked
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("google tasks: request timed out")
	}
	return err
}
