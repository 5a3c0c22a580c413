package storage

import (
	"context"
	"time"
)

// Storage defines the catalog query layer.
// Lookups return (value, found, err); a missing row is never an error.
type Storage interface {
	// GetAllCategories returns every category ordered by sort order,
	// each annotated with the live number of scripts it holds.
	GetAllCategories(ctx context.Context) ([]Category, error)

	// GetCategoryBySlug retrieves one category with its script count.
	// Returns:
	//   - category: The category record
	//   - found: True if a category with this slug exists
	//   - err: Any error that occurred during lookup
	GetCategoryBySlug(ctx context.Context, slug string) (Category, bool, error)

	// GetScriptsByCategory returns the scripts of one category ordered by
	// subcategory, then name.
	GetScriptsByCategory(ctx context.Context, categoryID int64) ([]Script, error)

	// GetScriptByID retrieves a script joined with its category name and slug.
	GetScriptByID(ctx context.Context, id int64) (Script, bool, error)

	// GetScriptByName retrieves a script by its unique name.
	GetScriptByName(ctx context.Context, name string) (Script, bool, error)

	// GetParametersForScript returns parameters ordered required-first, then by name.
	GetParametersForScript(ctx context.Context, scriptID int64) ([]Parameter, error)

	// GetTagsForScript returns tags ordered by name.
	GetTagsForScript(ctx context.Context, scriptID int64) ([]Tag, error)

	// GetContributorsForScript returns contributors most recent first.
	GetContributorsForScript(ctx context.Context, scriptID int64) ([]Contributor, error)

	// GetAllDockerComponents returns every docker component ordered by name.
	GetAllDockerComponents(ctx context.Context) ([]DockerComponent, error)

	// SearchScripts runs a full-text search. Every whitespace-delimited term
	// must prefix-match. An empty or whitespace-only query returns an empty
	// slice without consulting the index.
	SearchScripts(ctx context.Context, query string) ([]Script, error)

	// GetAllScripts returns every script ordered by category sort order,
	// subcategory and name.
	GetAllScripts(ctx context.Context) ([]Script, error)

	// GetScriptsByKCSState returns scripts in one lifecycle state ordered by name.
	// Returns ErrInvalidKCSState for an unknown state.
	GetScriptsByKCSState(ctx context.Context, state string) ([]Script, error)

	// GetStats returns aggregate catalog counts.
	GetStats(ctx context.Context) (Stats, error)

	// IncrementViewCount adds one to a script's view counter.
	// An unknown id affects no rows and is not an error.
	IncrementViewCount(ctx context.Context, scriptID int64) error

	// AddContributor records a named person's role on a script's article.
	// Returns ErrInvalidRole or ErrScriptNotFound.
	AddContributor(ctx context.Context, scriptID int64, name, role string) (Contributor, error)

	// TransitionKCSState moves an article through its lifecycle, stamps
	// last_reviewed and records the actor as reviewer or editor.
	// It returns the updated script and the state it was read in, both
	// taken inside the same transaction.
	// Returns *TransitionError for a move the lifecycle does not allow.
	TransitionKCSState(ctx context.Context, scriptID int64, to, actor string) (updated Script, from string, err error)

	// CreateCategory inserts a category and returns its id.
	CreateCategory(ctx context.Context, category Category) (int64, error)

	// CreateScript inserts a script with its parameters, tags, author
	// contributor and search index row.
	CreateScript(ctx context.Context, input ScriptInput) (int64, error)

	// UpdateScript replaces a script's descriptive fields, parameters and
	// tags, and rewrites its search index row.
	UpdateScript(ctx context.Context, scriptID int64, input ScriptInput) error

	// UpdateKnowledge changes the article's environment, resolution, cause
	// or confidence. Nil fields are left unchanged.
	UpdateKnowledge(ctx context.Context, scriptID int64, update KnowledgeUpdate) error

	// DeleteScript removes a script, its dependent rows and its index row.
	DeleteScript(ctx context.Context, scriptID int64) error

	// CreateDockerComponent inserts a docker component and returns its id.
	CreateDockerComponent(ctx context.Context, component DockerComponent) (int64, error)

	// Close closes the database connection and releases resources.
	Close() error
}

// Writer is the seeding surface available inside a transaction.
type Writer interface {
	CreateCategory(ctx context.Context, category Category) (int64, error)
	CreateScript(ctx context.Context, input ScriptInput) (int64, error)
	CreateDockerComponent(ctx context.Context, component DockerComponent) (int64, error)
}

// Category groups scripts. Read-only after seeding.
type Category struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
	ScriptCount int    `json:"script_count"`
}

// Script is one automation unit with its embedded knowledge article.
type Script struct {
	ID             int64      `json:"id"`
	CategoryID     int64      `json:"category_id"`
	CategoryName   string     `json:"category_name"`
	CategorySlug   string     `json:"category_slug"`
	Name           string     `json:"name"`
	FilePath       string     `json:"file_path"`
	Subcategory    string     `json:"subcategory,omitempty"`
	Synopsis       string     `json:"synopsis"`
	Description    string     `json:"description"`
	SupportsWhatIf bool       `json:"supports_whatif"`
	SupportsExport bool       `json:"supports_export"`
	KCSState       string     `json:"kcs_state"`
	Environment    string     `json:"environment"`
	Resolution     string     `json:"resolution"`
	Cause          string     `json:"cause"`
	Confidence     int        `json:"confidence"`
	ViewCount      int64      `json:"view_count"`
	LastReviewed   *time.Time `json:"last_reviewed,omitempty"`
	Author         string     `json:"author"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Parameter describes one named input accepted by a script.
type Parameter struct {
	ID           int64   `json:"id"`
	ScriptID     int64   `json:"script_id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	IsRequired   bool    `json:"is_required"`
	DefaultValue *string `json:"default_value,omitempty"`
}

// Tag is a free-standing label shared between scripts.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Contributor records a person's relationship to a script's article.
type Contributor struct {
	ID            int64     `json:"id"`
	ScriptID      int64     `json:"script_id"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	ContributedAt time.Time `json:"contributed_at"`
}

// DockerComponent describes one piece of the auxiliary monitoring stack.
type DockerComponent struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Port        string `json:"port"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Details     string `json:"details"`
}

// ScriptInput carries everything needed to create or replace a script.
// Parameters and Tags are written in the given order.
type ScriptInput struct {
	CategoryID     int64
	Name           string
	FilePath       string
	Subcategory    string
	Synopsis       string
	Description    string
	SupportsWhatIf bool
	SupportsExport bool
	KCSState       string
	Environment    string
	Resolution     string
	Cause          string
	Confidence     int
	Author         string
	LastReviewed   *time.Time
	Parameters     []Parameter
	Tags           []string
}

// KnowledgeUpdate is a partial update of the article fields.
type KnowledgeUpdate struct {
	Environment *string `json:"environment,omitempty"`
	Resolution  *string `json:"resolution,omitempty"`
	Cause       *string `json:"cause,omitempty"`
	Confidence  *int    `json:"confidence,omitempty"`
}

// ScriptDetail is a script with its parameters, tags and contributors.
type ScriptDetail struct {
	Script
	Parameters   []Parameter   `json:"parameters"`
	Tags         []Tag         `json:"tags"`
	Contributors []Contributor `json:"contributors"`
}

// Stats holds aggregate catalog counts.
type Stats struct {
	ScriptCount          int            `json:"scriptCount"`
	CategoryCount        int            `json:"categoryCount"`
	ParameterCount       int            `json:"parameterCount"`
	DockerComponentCount int            `json:"dockerComponentCount"`
	PublishedCount       int            `json:"publishedCount"`
	StateCounts          map[string]int `json:"stateCounts"`
	TotalViews           int64          `json:"totalViews"`
}

// TagNames flattens tags to their names.
func TagNames(tags []Tag) []string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return names
}

// LoadScriptDetail fetches the parameters, tags and contributors of a script.
func LoadScriptDetail(ctx context.Context, s Storage, script Script) (ScriptDetail, error) {
	params, err := s.GetParametersForScript(ctx, script.ID)
	if err != nil {
		return ScriptDetail{}, err
	}
	tags, err := s.GetTagsForScript(ctx, script.ID)
	if err != nil {
		return ScriptDetail{}, err
	}
	contributors, err := s.GetContributorsForScript(ctx, script.ID)
	if err != nil {
		return ScriptDetail{}, err
	}
	return ScriptDetail{
		Script:       script,
		Parameters:   params,
		Tags:         tags,
		Contributors: contributors,
	}, nil
}
