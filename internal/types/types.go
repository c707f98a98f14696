package types

import (
	"encoding/json"
	"time"

	"github.com/rafabd1/Paleta/internal/tabs"
)

// Result is the outcome of one executed batch as delivered to a front-end.
// It is either a display payload ({title, items}) or an error ({error}),
// tagged with the submission ID so a front-end can tell it from a stale one.
type Result struct {
	ID    string   `json:"id,omitempty"` // submission that produced it
	Title string   `json:"title"`
	Items []string `json:"items"`
	Error string   `json:"error,omitempty"`
}

// Done returns the sentinel result meaning "completed, nothing to show".
func Done() Result {
	return Result{Items: []string{}}
}

// Failure builds an error-flavoured result.
func Failure(msg string) Result {
	return Result{Error: msg}
}

// IsDone reports whether r is the auto-dismiss sentinel.
func (r Result) IsDone() bool {
	return r.Error == "" && r.Title == "" && len(r.Items) == 0
}

// IsError reports whether r carries an error instead of a display payload.
func (r Result) IsError() bool {
	return r.Error != ""
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			ID    string `json:"id,omitempty"`
			Error string `json:"error"`
		}{r.ID, r.Error})
	}
	items := r.Items
	if items == nil {
		items = []string{}
	}
	return json.Marshal(struct {
		ID    string   `json:"id,omitempty"`
		Title string   `json:"title"`
		Items []string `json:"items"`
	}{r.ID, r.Title, items})
}

// Clarification asks the user to confirm or correct ambiguous input.
type Clarification struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// QA is one answered query, kept as follow-up context for the next one.
type QA struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	At       time.Time `json:"at"`
}

// Snapshot is the desktop context handed to the intent parser.
type Snapshot struct {
	RunningApps   []string       `json:"running_apps"`
	InstalledApps []string       `json:"installed_apps"`
	Tabs          []tabs.Indexed `json:"tabs"`
	Presets       []string       `json:"presets"`
}
