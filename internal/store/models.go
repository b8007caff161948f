package store

// UserRecord is a stored user account. Password users carry a bcrypt hash;
// Google users carry an empty hash and a "google:" prefixed id.
type UserRecord struct {
	ID            string `gorm:"column:id;primaryKey" json:"id"`
	Email         string `gorm:"column:email;uniqueIndex;not null" json:"email"`
	PasswordHash  string `gorm:"column:password_hash;not null;default:''" json:"-"`
	Role          string `gorm:"column:role;not null" json:"role"`
	Name          string `gorm:"column:name;not null;default:''" json:"name"`
	AvatarURL     string `gorm:"column:avatar_url;not null;default:''" json:"avatar_url"`
	CreatedAtUnix int64  `gorm:"column:created_at_unix;not null" json:"-"`
	UpdatedAtUnix int64  `gorm:"column:updated_at_unix;not null" json:"-"`
}

func (UserRecord) TableName() string { return "users" }

// ProfileRecord is the single site-owner profile row.
type ProfileRecord struct {
	ID            uint   `gorm:"column:id;primaryKey" json:"-"`
	FullName      string `gorm:"column:full_name;not null;default:''" json:"full_name"`
	Headline      string `gorm:"column:headline;not null;default:''" json:"headline"`
	Bio           string `gorm:"column:bio;not null;default:''" json:"bio"`
	Location      string `gorm:"column:location;not null;default:''" json:"location"`
	ContactEmail  string `gorm:"column:contact_email;not null;default:''" json:"contact_email"`
	AvatarURL     string `gorm:"column:avatar_url;not null;default:''" json:"avatar_url"`
	ResumeURL     string `gorm:"column:resume_url;not null;default:''" json:"resume_url"`
	UpdatedAtUnix int64  `gorm:"column:updated_at_unix;not null" json:"-"`
}

func (ProfileRecord) TableName() string { return "profile" }

// ExperienceRecord is one work-experience entry. EndedAtUnix of zero means
// the position is current.
type ExperienceRecord struct {
	ID            uint   `gorm:"column:id;primaryKey" json:"id"`
	Company       string `gorm:"column:company;not null" json:"company"`
	Position      string `gorm:"column:position;not null" json:"position"`
	Summary       string `gorm:"column:summary;not null;default:''" json:"summary"`
	StartedAtUnix int64  `gorm:"column:started_at_unix;not null" json:"started_at_unix"`
	EndedAtUnix   int64  `gorm:"column:ended_at_unix;not null;default:0" json:"ended_at_unix"`
	SortOrder     int    `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
}

func (ExperienceRecord) TableName() string { return "experience" }

// EducationRecord is one education entry.
type EducationRecord struct {
	ID            uint   `gorm:"column:id;primaryKey" json:"id"`
	School        string `gorm:"column:school;not null" json:"school"`
	Degree        string `gorm:"column:degree;not null;default:''" json:"degree"`
	Field         string `gorm:"column:field;not null;default:''" json:"field"`
	StartedAtUnix int64  `gorm:"column:started_at_unix;not null" json:"started_at_unix"`
	EndedAtUnix   int64  `gorm:"column:ended_at_unix;not null;default:0" json:"ended_at_unix"`
	SortOrder     int    `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
}

func (EducationRecord) TableName() string { return "education" }

// ProjectRecord is a portfolio project in one locale.
type ProjectRecord struct {
	ID            uint   `gorm:"column:id;primaryKey" json:"id"`
	Slug          string `gorm:"column:slug;index:idx_projects_slug_locale,unique;not null" json:"slug"`
	Locale        string `gorm:"column:locale;index:idx_projects_slug_locale,unique;not null" json:"locale"`
	Title         string `gorm:"column:title;not null" json:"title"`
	Summary       string `gorm:"column:summary;not null;default:''" json:"summary"`
	Description   string `gorm:"column:description;not null;default:''" json:"description"`
	RepoURL       string `gorm:"column:repo_url;not null;default:''" json:"repo_url"`
	DemoURL       string `gorm:"column:demo_url;not null;default:''" json:"demo_url"`
	CoverURL      string `gorm:"column:cover_url;not null;default:''" json:"cover_url"`
	Featured      bool   `gorm:"column:featured;not null;default:false" json:"featured"`
	SortOrder     int    `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	CreatedAtUnix int64  `gorm:"column:created_at_unix;not null" json:"created_at_unix"`
	UpdatedAtUnix int64  `gorm:"column:updated_at_unix;not null" json:"updated_at_unix"`
}

func (ProjectRecord) TableName() string { return "projects" }

// PostRecord is a blog post in one locale.
type PostRecord struct {
	ID              uint   `gorm:"column:id;primaryKey" json:"id"`
	Slug            string `gorm:"column:slug;index:idx_posts_slug_locale,unique;not null" json:"slug"`
	Locale          string `gorm:"column:locale;index:idx_posts_slug_locale,unique;not null" json:"locale"`
	Title           string `gorm:"column:title;not null" json:"title"`
	Excerpt         string `gorm:"column:excerpt;not null;default:''" json:"excerpt"`
	Body            string `gorm:"column:body;not null;default:''" json:"body"`
	CoverURL        string `gorm:"column:cover_url;not null;default:''" json:"cover_url"`
	Published       bool   `gorm:"column:published;not null;default:false" json:"published"`
	PublishedAtUnix int64  `gorm:"column:published_at_unix;not null;default:0" json:"published_at_unix"`
	CreatedAtUnix   int64  `gorm:"column:created_at_unix;not null" json:"created_at_unix"`
	UpdatedAtUnix   int64  `gorm:"column:updated_at_unix;not null" json:"updated_at_unix"`
}

func (PostRecord) TableName() string { return "posts" }

// ReviewRecord is a testimonial shown on the site.
type ReviewRecord struct {
	ID            uint   `gorm:"column:id;primaryKey" json:"id"`
	Author        string `gorm:"column:author;not null" json:"author"`
	AuthorTitle   string `gorm:"column:author_title;not null;default:''" json:"author_title"`
	Quote         string `gorm:"column:quote;not null" json:"quote"`
	AvatarURL     string `gorm:"column:avatar_url;not null;default:''" json:"avatar_url"`
	SortOrder     int    `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	CreatedAtUnix int64  `gorm:"column:created_at_unix;not null" json:"created_at_unix"`
}

func (ReviewRecord) TableName() string { return "reviews" }

// MessageRecord is a contact-form submission.
type MessageRecord struct {
	ID            uint   `gorm:"column:id;primaryKey" json:"id"`
	Name          string `gorm:"column:name;not null" json:"name"`
	Email         string `gorm:"column:email;not null" json:"email"`
	Subject       string `gorm:"column:subject;not null;default:''" json:"subject"`
	Body          string `gorm:"column:body;not null" json:"body"`
	CreatedAtUnix int64  `gorm:"column:created_at_unix;not null" json:"created_at_unix"`
}

func (MessageRecord) TableName() string { return "messages" }
