package documents

import (
	"errors"
	"fmt"
	"investtrack/internal/utils"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxUploadSize = 10 << 20

type Handler struct {
	db     *gorm.DB
	blobs  BlobStore
	logger *slog.Logger
}

// NewHandler accepts a nil blobs when no store is configured: uploads are
// refused and deletes only touch the database.
func NewHandler(db *gorm.DB, blobs BlobStore, logger *slog.Logger) *Handler {
	return &Handler{db: db, blobs: blobs, logger: logger}
}

// CreateRequest records a file the client already uploaded.
type CreateRequest struct {
	URL         string `json:"url" binding:"required"`
	Key         string `json:"key"`
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

func (h *Handler) List(ctx *gin.Context) {
	userID, _ := utils.CurrentUser(ctx)
	docs := []utils.Document{}
	err := h.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&docs).Error
	if err != nil {
		h.logger.Error("Failed to list documents", "userId", userID, "error", err)
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to load documents")
		return
	}
	utils.OK(ctx, http.StatusOK, docs)
}

func (h *Handler) Create(ctx *gin.Context) {
	userID, _ := utils.CurrentUser(ctx)
	var req CreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, http.StatusBadRequest, "Invalid request")
		return
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		utils.Fail(ctx, http.StatusBadRequest, "Invalid document url")
		return
	}
	if req.Size < 0 {
		utils.Fail(ctx, http.StatusBadRequest, "Invalid document size")
		return
	}
	key := req.Key
	if key != "" && !ownsKey(userID, key) {
		utils.Fail(ctx, http.StatusBadRequest, "Invalid document key")
		return
	}
	if key == "" {
		// only a key under the user's own prefix may later be deleted
		if k := strings.TrimPrefix(u.Path, "/"); ownsKey(userID, k) {
			key = k
		}
	}

	doc := utils.Document{
		ID:          uuid.NewString(),
		UserID:      userID,
		URL:         req.URL,
		BlobKey:     key,
		Filename:    path.Base(req.Filename),
		ContentType: req.ContentType,
		Size:        req.Size,
	}
	if err := h.db.WithContext(ctx).Create(&doc).Error; err != nil {
		h.logger.Error("Failed to save document", "userId", userID, "error", err)
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to save document")
		return
	}
	utils.OK(ctx, http.StatusCreated, doc)
}

// Upload stores a multipart "file" in the blob store, then records it.
func (h *Handler) Upload(ctx *gin.Context) {
	userID, _ := utils.CurrentUser(ctx)
	if h.blobs == nil {
		utils.Fail(ctx, http.StatusServiceUnavailable, "File storage not configured")
		return
	}
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxUploadSize)
	fh, err := ctx.FormFile("file")
	if err != nil {
		utils.Fail(ctx, http.StatusBadRequest, "Missing file")
		return
	}
	f, err := fh.Open()
	if err != nil {
		utils.Fail(ctx, http.StatusBadRequest, "Unreadable file")
		return
	}
	defer f.Close()

	suffix, err := utils.RandomString(8)
	if err != nil {
		h.logger.Error("Failed to generate blob key", "error", err)
		utils.Fail(ctx, http.StatusInternalServerError, "Server error")
		return
	}
	name := path.Base(fh.Filename)
	key := fmt.Sprintf("%s%s-%s", keyPrefix(userID), suffix, keyName(name))
	contentType := fh.Header.Get("Content-Type")

	blobURL, err := h.blobs.Put(ctx, key, f, contentType)
	if err != nil {
		h.logger.Error("Failed to upload document", "userId", userID, "key", key, "error", err)
		utils.Fail(ctx, http.StatusBadGateway, "Upload failed")
		return
	}

	doc := utils.Document{
		ID:          uuid.NewString(),
		UserID:      userID,
		URL:         blobURL,
		BlobKey:     key,
		Filename:    name,
		ContentType: contentType,
		Size:        fh.Size,
	}
	if err := h.db.WithContext(ctx).Create(&doc).Error; err != nil {
		h.logger.Error("Failed to save document", "userId", userID, "error", err)
		if derr := h.blobs.Delete(ctx, key); derr != nil {
			h.logger.Warn("Failed to remove orphaned blob", "key", key, "error", derr)
		}
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to save document")
		return
	}
	utils.OK(ctx, http.StatusCreated, doc)
}

// Delete removes the blob then the row. A blob that cannot be deleted
// (already gone, store down) does not block removing the row.
func (h *Handler) Delete(ctx *gin.Context) {
	userID, _ := utils.CurrentUser(ctx)
	var doc utils.Document
	err := h.db.WithContext(ctx).Where("id = ? AND user_id = ?", ctx.Param("id"), userID).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, http.StatusNotFound, "Document not found")
			return
		}
		h.logger.Error("Failed to load document", "userId", userID, "error", err)
		utils.Fail(ctx, http.StatusInternalServerError, "Internal server error")
		return
	}

	if h.blobs != nil && doc.BlobKey != "" {
		if !ownsKey(userID, doc.BlobKey) {
			h.logger.Warn("Refusing to delete blob outside the user prefix", "documentId", doc.ID, "key", doc.BlobKey)
		} else if err := h.blobs.Delete(ctx, doc.BlobKey); err != nil {
			h.logger.Warn("Failed to delete blob, removing record anyway", "documentId", doc.ID, "key", doc.BlobKey, "error", err)
		}
	}

	if err := h.db.WithContext(ctx).Delete(&doc).Error; err != nil {
		h.logger.Error("Failed to delete document", "documentId", doc.ID, "error", err)
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to delete document")
		return
	}
	utils.OK(ctx, http.StatusOK, gin.H{"id": doc.ID})
}

func keyPrefix(userID string) string {
	return "documents/" + userID + "/"
}

// ownsKey reports whether key is a clean object key under the user's prefix.
func ownsKey(userID, key string) bool {
	if userID == "" || path.Clean(key) != key {
		return false
	}
	rest, ok := strings.CutPrefix(key, keyPrefix(userID))
	return ok && rest != "" && !strings.Contains(rest, "/")
}

// keyName keeps letters, digits, dot, dash and underscore of a filename.
func keyName(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if strings.Trim(clean, "._") == "" {
		return "file"
	}
	return clean
}
