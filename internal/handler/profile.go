package handlers

import (
	"EcoWatch/internal/models"
	apperrors "EcoWatch/pkg/errors"
	"EcoWatch/pkg/logger"
	"EcoWatch/pkg/response"
	"EcoWatch/pkg/storage"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxAvatarSize = 5 << 20

func (h *Handlers) handleGetProfile(c *gin.Context) {
	user, err := models.GetUserByID(h.db.WithContext(c.Request.Context()), models.CurrentUser(c).ID)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, "success", user)
}

func (h *Handlers) handleUpdateProfile(c *gin.Context) {
	var upd models.ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		response.Fail(c, "invalid request", gin.H{"error": err.Error()})
		return
	}
	user, err := models.UpdateProfile(h.db.WithContext(c.Request.Context()), models.CurrentUser(c).ID, upd)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, "profile updated", user)
}

// handleUploadAvatar 上传头像到配置的存储，并把地址写回资料
func (h *Handlers) handleUploadAvatar(c *gin.Context) {
	if h.opts.Store == nil {
		response.AbortWithError(c, apperrors.New("avatar storage is not configured"))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarSize+1<<20)
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.AbortWithError(c, apperrors.Validation("avatar file is required"))
		return
	}
	if fh.Size > maxAvatarSize {
		response.AbortWithError(c, apperrors.Validation("avatar must be at most 5MB"))
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.AbortWithError(c, apperrors.Validation("avatar must be an image"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	defer f.Close()

	user := models.CurrentUser(c)
	key := storage.NewObjectKey("avatars", fh.Filename, time.Now())
	ctx := c.Request.Context()
	if err := h.opts.Store.Put(ctx, key, f, fh.Size, contentType); err != nil {
		response.AbortWithError(c, apperrors.Wrap(err, "store avatar failed"))
		return
	}
	profile, err := models.SetProfilePicture(h.db.WithContext(ctx), user.ID, h.opts.Store.PublicURL(key))
	if err != nil {
		_ = h.opts.Store.Delete(ctx, key)
		response.AbortWithError(c, err)
		return
	}
	logger.Info("avatar uploaded", zap.Uint("user_id", user.ID), zap.String("key", key))
	response.Success(c, "avatar uploaded", profile)
}
