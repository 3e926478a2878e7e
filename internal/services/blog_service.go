// internal/services/blog_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/gvoiceus/gvoiceus-backend/internal/models"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

var (
	ErrPostNotFound  = errors.New("blog post not found")
	ErrDuplicatePost = errors.New("a post with this title or slug already exists")
)

// BlogService runs the storefront's small CMS.
type BlogService struct {
	db  *gorm.DB
	log *logrus.Entry
}

type CreateBlogPostRequest struct {
	Title     string   `json:"title" validate:"required,min=3,max=255"`
	Slug      string   `json:"slug,omitempty" validate:"omitempty,slug"`
	Excerpt   string   `json:"excerpt,omitempty" validate:"omitempty,max=500"`
	Content   string   `json:"content" validate:"required"`
	Tags      []string `json:"tags,omitempty"`
	Published bool     `json:"published"`
}

type UpdateBlogPostRequest struct {
	Title     *string  `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Slug      *string  `json:"slug,omitempty" validate:"omitempty,slug"`
	Excerpt   *string  `json:"excerpt,omitempty" validate:"omitempty,max=500"`
	Content   *string  `json:"content,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Published *bool    `json:"published,omitempty"`
}

func NewBlogService(db *gorm.DB) *BlogService {
	return &BlogService{
		db:  db,
		log: logrus.WithField("service", "blog"),
	}
}

// ListPublished returns published posts, newest first, with an
// optional free-text search over title, excerpt, content and tags.
func (s *BlogService) ListPublished(params utils.PaginationParams) ([]models.BlogPost, int64, error) {
	query := s.db.Model(&models.BlogPost{}).Preload("Author").
		Where("published = ?", true)
	query = applyBlogSearch(query, params.Search)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	query = query.Order("published_at DESC")
	query = utils.ApplyPagination(query, params)

	var posts []models.BlogPost
	if err := query.Find(&posts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch posts: %w", err)
	}
	return posts, total, nil
}

// ListAll is the staff view: drafts included, newest edits first.
func (s *BlogService) ListAll(params utils.PaginationParams) ([]models.BlogPost, int64, error) {
	query := s.db.Model(&models.BlogPost{}).Preload("Author")
	query = applyBlogSearch(query, params.Search)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	query = query.Order("updated_at DESC")
	query = utils.ApplyPagination(query, params)

	var posts []models.BlogPost
	if err := query.Find(&posts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch posts: %w", err)
	}
	return posts, total, nil
}

// GetPost returns one post by slug. Drafts exist only for staff.
func (s *BlogService) GetPost(slug string, staff bool) (*models.BlogPost, error) {
	var post models.BlogPost
	err := s.db.Preload("Author").
		First(&post, "slug = ?", strings.ToLower(strings.TrimSpace(slug))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !post.Published && !staff {
		return nil, ErrPostNotFound
	}
	return &post, nil
}

func (s *BlogService) Create(authorID uuid.UUID, req *CreateBlogPostRequest) (*models.BlogPost, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	post := &models.BlogPost{
		AuthorID:  authorID,
		Title:     strings.TrimSpace(req.Title),
		Slug:      req.Slug,
		Excerpt:   req.Excerpt,
		Content:   req.Content,
		Tags:      req.Tags,
		Published: req.Published,
	}
	if err := s.db.Create(post).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicatePost
		}
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.db.Preload("Author").First(post, post.ID)
	s.log.WithFields(logrus.Fields{
		"slug":      post.Slug,
		"published": post.Published,
	}).Info("Blog post created")
	return post, nil
}

func (s *BlogService) Update(id uuid.UUID, req *UpdateBlogPostRequest) (*models.BlogPost, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var post models.BlogPost
	if err := s.db.First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if req.Title != nil {
		post.Title = strings.TrimSpace(*req.Title)
	}
	if req.Slug != nil {
		post.Slug = *req.Slug
	}
	if req.Excerpt != nil {
		post.Excerpt = *req.Excerpt
	}
	if req.Content != nil {
		post.Content = *req.Content
	}
	if req.Tags != nil {
		post.Tags = req.Tags
	}
	if req.Published != nil {
		post.Published = *req.Published
		if !post.Published {
			post.PublishedAt = nil
		}
	}

	if err := s.db.Save(&post).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicatePost
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	s.db.Preload("Author").First(&post, post.ID)
	return &post, nil
}

// Delete removes the post for good so its title and slug become
// reusable.
func (s *BlogService) Delete(id uuid.UUID) error {
	result := s.db.Unscoped().Delete(&models.BlogPost{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	s.log.WithField("post_id", id).Info("Blog post deleted")
	return nil
}

// applyBlogSearch matches q against the text columns. The tags array
// is cast to text so the same expression works on both postgres and
// the sqlite test databases.
func applyBlogSearch(query *gorm.DB, search string) *gorm.DB {
	if search == "" {
		return query
	}
	term := "%" + strings.ToLower(search) + "%"
	return query.Where(
		"LOWER(title) LIKE ? OR LOWER(excerpt) LIKE ? OR LOWER(content) LIKE ? OR LOWER(CAST(tags AS TEXT)) LIKE ?",
		term, term, term, term,
	)
}
