package models

// Article is the unit record of the dashboard. The local cache holds the
// union of everything known (drafts and published work); the remote store
// holds only published articles.
type Article struct {
	ID          ArticleID `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Category    string    `json:"category,omitempty"`
	CategoryID  int       `json:"category_id,omitempty"`
	Slug        string    `json:"slug,omitempty"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`

	// LocalModified marks an edit not yet pushed to the remote store.
	// PushedToLive marks a record with a live remote counterpart.
	LocalModified bool `json:"localModified"`
	PushedToLive  bool `json:"pushedToLive"`

	// Human-readable timestamps shown in the dashboard.
	LastModified string `json:"lastModified,omitempty"`
	LastSyncedAt string `json:"lastSyncedAt,omitempty"`
}

// Article lifecycle states derived from the two flags.
const (
	StateDraft  = "draft"  // freshly created, never saved or pushed
	StateStaged = "staged" // local edits, no live counterpart
	StateLive   = "live"   // has a live counterpart (may still carry edits)
)

// State derives the lifecycle state. A live article keeps its state even
// while carrying unsynced local edits.
func (a Article) State() string {
	switch {
	case a.PushedToLive:
		return StateLive
	case a.LocalModified:
		return StateStaged
	default:
		return StateDraft
	}
}
