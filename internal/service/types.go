// Package service defines the backend-agnostic interface for board operations.
package service

import "time"

// Board statuses.
const (
	StatusPlanning  = "planning"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// User is a TripBoard account as returned by the API.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns "First Last", falling back to the username.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// Board is a trip workspace holding ordered lists.
type Board struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Owner       User      `json:"owner"`
	Members     []User    `json:"members"`
	Status      string    `json:"status"`
	Budget      string    `json:"budget"`
	Currency    string    `json:"currency"`
	StartDate   string    `json:"start_date,omitempty"`
	EndDate     string    `json:"end_date,omitempty"`
	IsFavorite  bool      `json:"is_favorite"`
	Tags        []string  `json:"tags"`
	CoverImage  string    `json:"cover_image,omitempty"`
	Lists       []List    `json:"lists"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// List is a named column of cards inside a board.
type List struct {
	ID        int64     `json:"id"`
	BoardID   int64     `json:"board"`
	Title     string    `json:"title"`
	Color     string    `json:"color"`
	Position  int       `json:"position"`
	Cards     []Card    `json:"cards"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subtask is a checklist item on a card.
type Subtask struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Attachment describes a file attached to a card.
type Attachment struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

// GeoPoint is an optional card location.
type GeoPoint struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Card is a single task inside a list.
type Card struct {
	ID              int64        `json:"id"`
	ListID          int64        `json:"list"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	Budget          string       `json:"budget"`
	PeopleNumber    int          `json:"people_number"`
	Tags            []string     `json:"tags"`
	DueDate         string       `json:"due_date,omitempty"`
	AssignedMembers []User       `json:"assigned_members"`
	Subtasks        []Subtask    `json:"subtasks"`
	Attachments     []Attachment `json:"attachments"`
	Location        *GeoPoint    `json:"location,omitempty"`
	Position        int          `json:"position"`
	Category        string       `json:"category,omitempty"`
	ExpenseID       *int64       `json:"expense_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Expense is an actual spend recorded against a board.
type Expense struct {
	ID        int64     `json:"id"`
	BoardID   int64     `json:"board"`
	Title     string    `json:"title"`
	Amount    string    `json:"amount"`
	Category  string    `json:"category"`
	Date      string    `json:"date,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedBy User      `json:"created_by"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategoryTotal is one row of a budget breakdown.
type CategoryTotal struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

// BudgetSummary compares planned budget with actual spend.
type BudgetSummary struct {
	BoardBudget      string          `json:"board_budget"`
	ActualSpendTotal string          `json:"actual_spend_total"`
	Remaining        string          `json:"remaining"`
	ByCategory       []CategoryTotal `json:"by_category"`
}

// Location is a map pin attached to a card.
type Location struct {
	ID          int64     `json:"id"`
	CardID      int64     `json:"card"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Latitude    string    `json:"latitude"`
	Longitude   string    `json:"longitude"`
	Address     string    `json:"address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ExpenseFilter narrows an expense listing. Empty fields are ignored.
type ExpenseFilter struct {
	Category string
	DateFrom string
	DateTo   string
}

// Key returns a stable string form of the filter for cache addressing.
func (f ExpenseFilter) Key() string {
	return "category=" + f.Category + "&date_from=" + f.DateFrom + "&date_to=" + f.DateTo
}

// MoveCard is the body of a card move request.
// NewListID is nil when the card stays in its list.
type MoveCard struct {
	NewListID   *int64 `json:"new_list_id,omitempty"`
	NewPosition int    `json:"new_position"`
}

// BoardPatch is a partial board update. Nil fields are not sent.
type BoardPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *string   `json:"status,omitempty"`
	Budget      *string   `json:"budget,omitempty"`
	Currency    *string   `json:"currency,omitempty"`
	StartDate   *string   `json:"start_date,omitempty"`
	EndDate     *string   `json:"end_date,omitempty"`
	IsFavorite  *bool     `json:"is_favorite,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// NewBoard is the body of a board create request.
type NewBoard struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	Budget      string   `json:"budget,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ListPatch is a partial list update; also used to create lists.
type ListPatch struct {
	Title    *string `json:"title,omitempty"`
	Color    *string `json:"color,omitempty"`
	Position *int    `json:"position,omitempty"`
}

// CardPatch is a partial card update; also used to create cards.
type CardPatch struct {
	Title        *string   `json:"title,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Budget       *string   `json:"budget,omitempty"`
	PeopleNumber *int      `json:"people_number,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
	DueDate      *string   `json:"due_date,omitempty"`
	Category     *string   `json:"category,omitempty"`
}

// ExpensePatch is a partial expense update; also used to create expenses.
type ExpensePatch struct {
	Title    *string `json:"title,omitempty"`
	Amount   *string `json:"amount,omitempty"`
	Category *string `json:"category,omitempty"`
	Date     *string `json:"date,omitempty"`
	Notes    *string `json:"notes,omitempty"`
	Currency *string `json:"currency,omitempty"`
}

// NewLocation is the body of a location create request.
type NewLocation struct {
	CardID      int64  `json:"card"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	Address     string `json:"address,omitempty"`
}

// Credentials are the login form fields.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration are the sign-up form fields as sent to the API.
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FullName        string `json:"full_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// Tokens is a JWT access/refresh pair.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AuthResult is returned by login and register.
type AuthResult struct {
	Message string `json:"message,omitempty"`
	User    User   `json:"user"`
	Tokens  Tokens `json:"tokens"`
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
