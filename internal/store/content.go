package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Content provides CRUD access to the site's data. Reads that take a locale
// fall back to the default locale when the requested one has no rows.
type Content struct {
	database *DB
}

// NewContent wraps the shared database handle.
func NewContent(database *DB) *Content {
	return &Content{database: database}
}

// Profile returns the single profile row, or an empty one when the site has
// not been set up yet.
func (content *Content) Profile(ctx context.Context) (ProfileRecord, error) {
	var record ProfileRecord
	err := content.database.gorm.WithContext(ctx).Where("id = ?", 1).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProfileRecord{ID: 1}, nil
		}
		return ProfileRecord{}, fmt.Errorf("store.content.profile: %w", err)
	}
	return record, nil
}

// SaveProfile upserts the single profile row.
func (content *Content) SaveProfile(ctx context.Context, record ProfileRecord) error {
	record.ID = 1
	record.UpdatedAtUnix = time.Now().UTC().Unix()
	if err := content.database.gorm.WithContext(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("store.content.save_profile: %w", err)
	}
	return nil
}

// ListExperience returns work experience, newest first within sort order.
func (content *Content) ListExperience(ctx context.Context) ([]ExperienceRecord, error) {
	var rows []ExperienceRecord
	err := content.database.gorm.WithContext(ctx).
		Order("sort_order asc, started_at_unix desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store.content.list_experience: %w", err)
	}
	return rows, nil
}

// SaveExperience inserts or updates an entry.
func (content *Content) SaveExperience(ctx context.Context, record *ExperienceRecord) error {
	if err := content.database.gorm.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("store.content.save_experience: %w", err)
	}
	return nil
}

// DeleteExperience removes an entry by id.
func (content *Content) DeleteExperience(ctx context.Context, id uint) error {
	return content.deleteByID(ctx, &ExperienceRecord{}, id, "store.content.delete_experience")
}

// ListEducation returns education entries, newest first within sort order.
func (content *Content) ListEducation(ctx context.Context) ([]EducationRecord, error) {
	var rows []EducationRecord
	err := content.database.gorm.WithContext(ctx).
		Order("sort_order asc, started_at_unix desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store.content.list_education: %w", err)
	}
	return rows, nil
}

// SaveEducation inserts or updates an entry.
func (content *Content) SaveEducation(ctx context.Context, record *EducationRecord) error {
	if err := content.database.gorm.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("store.content.save_education: %w", err)
	}
	return nil
}

// DeleteEducation removes an entry by id.
func (content *Content) DeleteEducation(ctx context.Context, id uint) error {
	return content.deleteByID(ctx, &EducationRecord{}, id, "store.content.delete_education")
}

// ListProjects returns projects for the locale, falling back to the default
// locale when the requested one has none.
func (content *Content) ListProjects(ctx context.Context, locale string, defaultLocale string) ([]ProjectRecord, error) {
	var rows []ProjectRecord
	err := content.database.gorm.WithContext(ctx).
		Where("locale = ?", locale).
		Order("featured desc, sort_order asc, id desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store.content.list_projects: %w", err)
	}
	if len(rows) == 0 && locale != defaultLocale {
		return content.ListProjects(ctx, defaultLocale, defaultLocale)
	}
	return rows, nil
}

// SaveProject inserts or updates a project.
func (content *Content) SaveProject(ctx context.Context, record *ProjectRecord) error {
	now := time.Now().UTC().Unix()
	if record.CreatedAtUnix == 0 {
		record.CreatedAtUnix = now
	}
	record.UpdatedAtUnix = now
	if err := content.database.gorm.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("store.content.save_project: %w", err)
	}
	return nil
}

// DeleteProject removes a project by id.
func (content *Content) DeleteProject(ctx context.Context, id uint) error {
	return content.deleteByID(ctx, &ProjectRecord{}, id, "store.content.delete_project")
}

// ListPosts returns blog posts for the locale with the same fallback rule
// as projects. Unpublished posts are only included when requested.
func (content *Content) ListPosts(ctx context.Context, locale string, defaultLocale string, includeUnpublished bool) ([]PostRecord, error) {
	query := content.database.gorm.WithContext(ctx).Where("locale = ?", locale)
	if !includeUnpublished {
		query = query.Where("published = ?", true)
	}
	var rows []PostRecord
	if err := query.Order("published_at_unix desc, id desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store.content.list_posts: %w", err)
	}
	if len(rows) == 0 && locale != defaultLocale {
		return content.ListPosts(ctx, defaultLocale, defaultLocale, includeUnpublished)
	}
	return rows, nil
}

// PostBySlug returns one published post, preferring the requested locale
// and falling back to the default locale for the same slug.
func (content *Content) PostBySlug(ctx context.Context, slug string, locale string, defaultLocale string) (PostRecord, error) {
	var record PostRecord
	err := content.database.gorm.WithContext(ctx).
		Where("slug = ? AND locale = ? AND published = ?", slug, locale, true).
		Take(&record).Error
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return PostRecord{}, fmt.Errorf("store.content.post_by_slug: %w", err)
	}
	if locale == defaultLocale {
		return PostRecord{}, fmt.Errorf("store.content.post_by_slug: %w", ErrNotFound)
	}
	return content.PostBySlug(ctx, slug, defaultLocale, defaultLocale)
}

// SavePost inserts or updates a post. Publishing stamps the publish time
// once; republishing keeps the original timestamp.
func (content *Content) SavePost(ctx context.Context, record *PostRecord) error {
	now := time.Now().UTC().Unix()
	if record.CreatedAtUnix == 0 {
		record.CreatedAtUnix = now
	}
	if record.Published && record.PublishedAtUnix == 0 {
		record.PublishedAtUnix = now
	}
	record.UpdatedAtUnix = now
	if err := content.database.gorm.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("store.content.save_post: %w", err)
	}
	return nil
}

// DeletePost removes a post by id.
func (content *Content) DeletePost(ctx context.Context, id uint) error {
	return content.deleteByID(ctx, &PostRecord{}, id, "store.content.delete_post")
}

// ListReviews returns testimonials in display order.
func (content *Content) ListReviews(ctx context.Context) ([]ReviewRecord, error) {
	var rows []ReviewRecord
	err := content.database.gorm.WithContext(ctx).
		Order("sort_order asc, id desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store.content.list_reviews: %w", err)
	}
	return rows, nil
}

// SaveReview inserts or updates a testimonial.
func (content *Content) SaveReview(ctx context.Context, record *ReviewRecord) error {
	if record.CreatedAtUnix == 0 {
		record.CreatedAtUnix = time.Now().UTC().Unix()
	}
	if err := content.database.gorm.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("store.content.save_review: %w", err)
	}
	return nil
}

// DeleteReview removes a testimonial by id.
func (content *Content) DeleteReview(ctx context.Context, id uint) error {
	return content.deleteByID(ctx, &ReviewRecord{}, id, "store.content.delete_review")
}

func (content *Content) deleteByID(ctx context.Context, model interface{}, id uint, code string) error {
	result := content.database.gorm.WithContext(ctx).Where("id = ?", id).Delete(model)
	if result.Error != nil {
		return fmt.Errorf("%s: %w", code, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", code, ErrNotFound)
	}
	return nil
}
