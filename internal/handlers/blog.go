// internal/handlers/blog.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gvoiceus/gvoiceus-backend/internal/i18n"
	"github.com/gvoiceus/gvoiceus-backend/internal/services"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

const blogPageSize = 9

type BlogHandler struct {
	blogService *services.BlogService
}

func NewBlogHandler(blogService *services.BlogService) *BlogHandler {
	return &BlogHandler{
		blogService: blogService,
	}
}

// GET /blog
func (h *BlogHandler) ListPosts(c *gin.Context) {
	params := utils.GetPaginationParams(c, blogPageSize, 50)
	posts, total, err := h.blogService.ListPublished(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(posts, total, params))
}

// GET /blog/:slug
func (h *BlogHandler) GetPost(c *gin.Context) {
	post, err := h.blogService.GetPost(c.Param("slug"), isStaffRequest(c))
	if err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			utils.NotFoundResponse(c, "blog")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"post": post})
}

// GET /staff/blog
func (h *BlogHandler) ListAllPosts(c *gin.Context) {
	params := utils.GetPaginationParams(c, blogPageSize, 50)
	posts, total, err := h.blogService.ListAll(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(posts, total, params))
}

// POST /staff/blog
func (h *BlogHandler) CreatePost(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateBlogPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	post, err := h.blogService.Create(userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrDuplicatePost) {
			utils.ConflictResponse(c, err.Error())
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyBlogCreated),
		"post":    post,
	})
}

// PATCH /staff/blog/:id
func (h *BlogHandler) UpdatePost(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "id"), nil)
		return
	}

	var req services.UpdateBlogPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	post, err := h.blogService.Update(postID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPostNotFound):
			utils.NotFoundResponse(c, "blog")
		case errors.Is(err, services.ErrDuplicatePost):
			utils.ConflictResponse(c, err.Error())
		default:
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyBlogUpdated),
		"post":    post,
	})
}

// DELETE /staff/blog/:id
func (h *BlogHandler) DeletePost(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "id"), nil)
		return
	}

	if err := h.blogService.Delete(postID); err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			utils.NotFoundResponse(c, "blog")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyBlogDeleted),
	})
}
