package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cas-gradtrack/gradtrack/db"
	"github.com/cas-gradtrack/gradtrack/internal/logger"
	"github.com/cas-gradtrack/gradtrack/internal/utils"
	"github.com/gin-gonic/gin"
)

// uploadPhoto tries the generated name, the same name with upsert, then a
// fallback name that never overwrites an existing object.
func uploadPhoto(ctx *gin.Context, original, contentType string, data []byte) (string, error) {
	now := time.Now()
	name := utils.ProfilePhotoName(original, now)

	url, err := Storage.Upload(ctx.Request.Context(), name, contentType, data, false)
	if err == nil {
		return url, nil
	}
	logger.LogWarn("Profile photo upload failed, retrying with upsert: " + err.Error())

	url, err = Storage.Upload(ctx.Request.Context(), name, contentType, data, true)
	if err == nil {
		return url, nil
	}
	logger.LogWarn("Profile photo upsert failed, retrying with fallback name: " + err.Error())

	return Storage.Upload(ctx.Request.Context(), utils.FallbackPhotoName(original, now), contentType, data, false)
}

func UploadProfilePhoto(ctx *gin.Context) {
	if Storage == nil {
		internalError(ctx, "Profile photo upload", errNoStorage)
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, MaxUploadBytes+1<<20)

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	if fileHeader.Size > MaxUploadBytes {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "File must be " + formatMB(MaxUploadBytes) + " or smaller"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		internalError(ctx, "Failed to open uploaded file", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		internalError(ctx, "Failed to read uploaded file", err)
		return
	}

	if int64(len(data)) > MaxUploadBytes {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "File must be " + formatMB(MaxUploadBytes) + " or smaller"})
		return
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "File must be an image"})
		return
	}

	profile, ok := loadOwnProfile(ctx)
	if !ok {
		return
	}

	url, err := uploadPhoto(ctx, fileHeader.Filename, contentType, data)
	if err != nil {
		internalError(ctx, "Failed to upload profile photo", err)
		return
	}

	if err := db.DB.Model(&profile).Update("photo_url", url).Error; err != nil {
		internalError(ctx, "Failed to save photo url", err)
		return
	}

	auditProfile(ctx, profile.ID, "profile.upload_photo")

	ctx.JSON(http.StatusOK, gin.H{
		"message":   "Profile photo uploaded",
		"photo_url": url,
	})
}
