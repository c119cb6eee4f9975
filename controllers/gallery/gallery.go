package gallery

import (
	"errors"
	"strings"
	"time"

	"eventpilot/config"
	"eventpilot/logger"
	galleryModel "eventpilot/models/gallery"
	"eventpilot/models/registration"
	"eventpilot/models/session"
	"eventpilot/models/user"
	galleryService "eventpilot/services/gallery"
	"eventpilot/services/mailer"
	"eventpilot/services/storage"
	"eventpilot/types"
	galleryTypes "eventpilot/types/gallery"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type GalleryController struct {
	DB        *gorm.DB
	Logger    *logger.AsyncLogger
	Store     storage.Store
	Processor *galleryService.Processor
	Mailer    *mailer.Mailer
	Config    *config.Config
}

// NewGalleryController accepts a nil store and processor when the gallery
// bucket is not configured; every handler but IsConfigured then returns 503.
func NewGalleryController(db *gorm.DB, asyncLogger *logger.AsyncLogger, store storage.Store, processor *galleryService.Processor, m *mailer.Mailer, cfg *config.Config) *GalleryController {
	return &GalleryController{DB: db, Logger: asyncLogger, Store: store, Processor: processor, Mailer: m, Config: cfg}
}

func (gc *GalleryController) logAPIRequest(c *fiber.Ctx) {
	logEntry := utils.CreateSanitizedLogEntry(c)
	gc.Logger.Log(logEntry)
}

func (gc *GalleryController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	gc.logAPIRequest(c)
	return result
}

func (gc *GalleryController) ok(c *fiber.Ctx, data interface{}) error {
	return gc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{Message: "OK", Status: fiber.StatusOK, Data: data})
}

func (gc *GalleryController) fail(c *fiber.Ctx, status int, message string) error {
	return gc.sendResponseWithLog(c, status, types.ApiResponse{Message: message, Status: status})
}

func (gc *GalleryController) dbError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return gc.fail(c, fiber.StatusNotFound, "غير موجود")
	case errors.Is(err, galleryService.ErrBusy):
		return gc.fail(c, fiber.StatusConflict, "المعرض قيد المعالجة حالياً")
	}
	logger.Error(message, err)
	return gc.fail(c, fiber.StatusInternalServerError, message)
}

func (gc *GalleryController) configured() bool {
	return gc.Store != nil && gc.Processor != nil
}

// RequireConfigured guards every gallery route that touches storage or faces.
func (gc *GalleryController) RequireConfigured(c *fiber.Ctx) error {
	if !gc.configured() {
		return gc.fail(c, fiber.StatusServiceUnavailable, "خدمة معرض الصور غير مفعلة")
	}
	return c.Next()
}

func (gc *GalleryController) IsConfigured(c *fiber.Ctx) error {
	return gc.ok(c, fiber.Map{"configured": gc.configured()})
}

func (gc *GalleryController) loadGallery(id string) (*galleryModel.PhotoGallery, error) {
	var g galleryModel.PhotoGallery
	if err := gc.DB.Where("id = ?", id).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

/*===== | Galleries =====*/

func (gc *GalleryController) Create(c *fiber.Ctx) error {
	var req galleryTypes.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return gc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return gc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	var s session.Session
	if err := gc.DB.Where("id = ?", req.SessionID).First(&s).Error; err != nil {
		return gc.dbError(c, err, "Error fetching session")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "معرض صور " + s.Title
	}
	g := galleryModel.PhotoGallery{SessionID: s.ID, Title: title}
	if err := gc.DB.Create(&g).Error; err != nil {
		return gc.dbError(c, err, "Failed to create gallery")
	}
	return gc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم إنشاء المعرض",
		Status:  fiber.StatusCreated,
		Data:    g,
	})
}

// Delete removes stored photos and the face collection, then the rows.
func (gc *GalleryController) Delete(c *fiber.Ctx) error {
	g, err := gc.loadGallery(c.Params("id"))
	if err != nil {
		return gc.dbError(c, err, "Error fetching gallery")
	}
	if gc.Processor.Running(g.ID) || g.Status.Busy() {
		return gc.dbError(c, galleryService.ErrBusy, "")
	}
	if err := gc.Processor.Remove(c.UserContext(), g.ID); err != nil {
		logger.Warning("Failed to remove gallery collection", zap.String("gallery", g.ID), zap.Error(err))
	}

	err = gc.DB.Transaction(func(tx *gorm.DB) error {
		images := tx.Model(&galleryModel.Image{}).Select("id").Where("gallery_id = ?", g.ID)
		if err := tx.Where("image_id IN (?)", images).Delete(&galleryModel.DetectedFace{}).Error; err != nil {
			return err
		}
		if err := tx.Where("gallery_id = ?", g.ID).Delete(&galleryModel.FaceCluster{}).Error; err != nil {
			return err
		}
		if err := tx.Where("gallery_id = ?", g.ID).Delete(&galleryModel.Image{}).Error; err != nil {
			return err
		}
		return tx.Delete(g).Error
	})
	if err != nil {
		return gc.dbError(c, err, "Failed to delete gallery")
	}
	logger.Success("Gallery deleted", zap.String("gallery", g.ID))
	return gc.ok(c, types.SuccessResult{Success: true})
}

func (gc *GalleryController) ListBySession(c *fiber.Ctx) error {
	var galleries []galleryModel.PhotoGallery
	if err := gc.DB.Where("session_id = ?", c.Params("id")).Order("created_at DESC").Find(&galleries).Error; err != nil {
		return gc.dbError(c, err, "Error fetching galleries")
	}
	return gc.ok(c, galleries)
}

func (gc *GalleryController) GetByID(c *fiber.Ctx) error {
	var g galleryModel.PhotoGallery
	if err := gc.DB.Preload("Session").Where("id = ?", c.Params("id")).First(&g).Error; err != nil {
		return gc.dbError(c, err, "Error fetching gallery")
	}
	return gc.ok(c, g)
}

func (gc *GalleryController) GetImages(c *fiber.Ctx) error {
	cur := utils.ParseCursor(c)
	query := gc.DB.Model(&galleryModel.Image{}).Where("gallery_id = ?", c.Params("id"))
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var images []galleryModel.Image
	if err := query.Scopes(utils.CursorScope("gallery_images", "created_at", false, cur)).Find(&images).Error; err != nil {
		return gc.dbError(c, err, "Error fetching images")
	}
	images, next := utils.NextCursor(images, cur.Limit, func(i galleryModel.Image) string { return i.ID })
	return gc.ok(c, types.CursorPage{Items: images, NextCursor: next})
}

/*===== | Uploads =====*/

func (gc *GalleryController) GenerateUploadURL(c *fiber.Ctx) error {
	var req galleryTypes.UploadURLRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return gc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return gc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	g, err := gc.loadGallery(c.Params("id"))
	if err != nil {
		return gc.dbError(c, err, "Error fetching gallery")
	}

	key := storage.GalleryKey(g.ID, req.Filename, time.Now())
	url, err := gc.Store.PresignPut(c.UserContext(), key, req.ContentType, storage.UploadTTL)
	if err != nil {
		return gc.dbError(c, err, "Failed to generate upload URL")
	}
	return gc.ok(c, fiber.Map{
		"uploadUrl": url,
		"s3Key":     key,
		"imageUrl":  gc.Store.URL(key),
		"expiresIn": int(storage.UploadTTL.Seconds()),
	})
}

func (gc *GalleryController) ConfirmUpload(c *fiber.Ctx) error {
	var req galleryTypes.ConfirmUploadRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return gc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	g, err := gc.loadGallery(c.Params("id"))
	if err != nil {
		return gc.dbError(c, err, "Error fetching gallery")
	}
	if err := req.Validate(g.ID); err != nil {
		return gc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	var img galleryModel.Image
	err = gc.DB.Transaction(func(tx *gorm.DB) error {
		var dup int64
		if err := tx.Model(&galleryModel.Image{}).Where("gallery_id = ? AND filename = ?", g.ID, req.Filename).Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return errDuplicateFile
		}
		img = galleryModel.Image{
			GalleryID:   g.ID,
			Filename:    req.Filename,
			S3Key:       req.S3Key,
			S3Bucket:    gc.Store.Bucket(),
			ImageURL:    gc.Store.URL(req.S3Key),
			FileSize:    req.FileSize,
			ContentType: req.ContentType,
		}
		if err := tx.Create(&img).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{"total_images": gorm.Expr("total_images + ?", 1)}
		if !g.Status.Busy() {
			updates["status"] = galleryModel.StatusUploading
		}
		return tx.Model(g).Updates(updates).Error
	})
	if errors.Is(err, errDuplicateFile) {
		return gc.fail(c, fiber.StatusConflict, "الملف موجود مسبقاً في المعرض")
	}
	if err != nil {
		return gc.dbError(c, err, "Failed to confirm upload")
	}
	return gc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم رفع الصورة",
		Status:  fiber.StatusCreated,
		Data:    img,
	})
}

var errDuplicateFile = errors.New("duplicate filename")

/*===== | Processing =====*/

func (gc *GalleryController) StartProcessing(c *fiber.Ctx) error {
	if err := gc.Processor.Start(c.Params("id")); err != nil {
		return gc.dbError(c, err, "Failed to start processing")
	}
	return gc.ok(c, fiber.Map{"started": true})
}

func (gc *GalleryController) Reprocess(c *fiber.Ctx) error {
	if err := gc.Processor.Reprocess(c.UserContext(), c.Params("id")); err != nil {
		return gc.dbError(c, err, "Failed to reprocess gallery")
	}
	return gc.ok(c, fiber.Map{"started": true})
}

func (gc *GalleryController) GetProcessingStatus(c *fiber.Ctx) error {
	g, err := gc.loadGallery(c.Params("id"))
	if err != nil {
		return gc.dbError(c, err, "Error fetching gallery")
	}
	return gc.ok(c, fiber.Map{
		"status":                g.Status,
		"totalImages":           g.TotalImages,
		"processedImages":       g.ProcessedImages,
		"totalFaces":            g.TotalFaces,
		"totalClusters":         g.TotalClusters,
		"percent":               g.Percent(),
		"running":               gc.Processor.Running(g.ID),
		"processingStartedAt":   g.ProcessingStartedAt,
		"processingCompletedAt": g.ProcessingCompletedAt,
		"lastError":             g.LastError,
	})
}

/*===== | Clusters =====*/

func (gc *GalleryController) GetClusters(c *fiber.Ctx) error {
	query := gc.DB.Model(&galleryModel.FaceCluster{}).Where("gallery_id = ?", c.Params("id"))
	switch c.Query("filter", galleryTypes.ClusterFilterAll) {
	case galleryTypes.ClusterFilterAll:
	case galleryTypes.ClusterFilterAssigned:
		query = query.Where("user_id IS NOT NULL OR manual_name IS NOT NULL")
	case galleryTypes.ClusterFilterUnassigned:
		query = query.Where("user_id IS NULL AND manual_name IS NULL")
	default:
		return gc.fail(c, fiber.StatusBadRequest, "الفلتر غير صالح")
	}
	var clusters []galleryModel.FaceCluster
	if err := query.Preload("User").Order("face_count DESC").Find(&clusters).Error; err != nil {
		return gc.dbError(c, err, "Error fetching clusters")
	}
	return gc.ok(c, clusters)
}

func (gc *GalleryController) loadCluster(id string) (*galleryModel.FaceCluster, error) {
	var fc galleryModel.FaceCluster
	if err := gc.DB.Preload("User").Preload("Gallery.Session").Where("id = ?", id).First(&fc).Error; err != nil {
		return nil, err
	}
	return &fc, nil
}

func (gc *GalleryController) AssignClusterToUser(c *fiber.Ctx) error {
	var req galleryTypes.AssignUserRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return gc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.UserID == "" {
		return gc.fail(c, fiber.StatusBadRequest, "معرف المستخدم مطلوب")
	}
	if err := gc.DB.Where("id = ?", req.UserID).First(&user.User{}).Error; err != nil {
		return gc.dbError(c, err, "Error fetching user")
	}
	fc, err := gc.loadCluster(c.Params("id"))
	if err != nil {
		return gc.dbError(c, err, "Error fetching cluster")
	}
	err = gc.DB.Model(fc).Updates(map[string]interface{}{
		"user_id":      req.UserID,
		"is_verified":  true,
		"manual_name":  nil,
		"manual_email": nil,
		"manual_phone": nil,
	}).Error
	if err != nil {
		return gc.dbError(c, err, "Failed to assign cluster")
	}
	fc, err = gc.loadCluster(fc.ID)
	if err != nil {
		return gc.dbError(c, err, "Error fetching cluster")
	}
	return gc.ok(c, fc)
}

func (gc *GalleryController) AssignClusterManually(c *fiber.Ctx) error {
	var req galleryTypes.AssignManualRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return gc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return gc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	fc, err := gc.loadCluster(c.Params("id"))
	if err != nil {
		return gc.dbError(c, err, "Error fetching cluster")
	}
	cols := map[string]interface{}{
		"user_id":          nil,
		"match_confidence": nil,
		"is_verified":      true,
		"manual_name":      strings.TrimSpace(req.Name),
		"manual_email":     nil,
		"manual_phone":     nil,
	}
	if req.Email != "" {
		cols["manual_email"] = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if req.Phone != "" {
		cols["manual_phone"] = utils.FormatPhoneNumber(req.Phone)
	}
	if err := gc.DB.Model(fc).Updates(cols).Error; err != nil {
		return gc.dbError(c, err, "Failed to assign cluster")
	}
	fc, err = gc.loadCluster(fc.ID)
	if err != nil {
		return gc.dbError(c, err, "Error fetching cluster")
	}
	return gc.ok(c, fc)
}

type recipient struct {
	Name  string
	Email string
	Phone string
}

func recipientOf(fc *galleryModel.FaceCluster) recipient {
	if fc.User != nil {
		return recipient{Name: fc.User.Name, Email: fc.User.Email, Phone: fc.User.Phone}
	}
	r := recipient{}
	if fc.ManualName != nil {
		r.Name = *fc.ManualName
	}
	if fc.ManualEmail != nil {
		r.Email = *fc.ManualEmail
	}
	if fc.ManualPhone != nil {
		r.Phone = *fc.ManualPhone
	}
	return r
}

func (gc *GalleryController) photosURL(token string) string {
	return strings.TrimRight(gc.Config.BaseURL, "/") + "/photos/" + token
}

// ShareCluster sends the photos link by email or returns a WhatsApp link.
func (gc *GalleryController) ShareCluster(c *fiber.Ctx) error {
	var req galleryTypes.ShareRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return gc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return gc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	fc, err := gc.loadCluster(c.Params("id"))
	if err != nil {
		return gc.dbError(c, err, "Error fetching cluster")
	}

	to := recipientOf(fc)
	link := gc.photosURL(fc.ShareToken)
	eventName := ""
	if fc.Gallery != nil && fc.Gallery.Session != nil {
		eventName = fc.Gallery.Session.Title
	}
	out := fiber.Map{"photosUrl": link}

	switch req.Channel {
	case galleryTypes.ChannelWhatsApp:
		if to.Phone == "" {
			return gc.fail(c, fiber.StatusBadRequest, "لا يوجد رقم هاتف لهذا الشخص")
		}
		out["whatsappUrl"] = utils.WhatsAppLink(to.Phone, "مرحباً "+to.Name+"، صورك من "+eventName+":\n"+link)
	case galleryTypes.ChannelEmail:
		if to.Email == "" {
			return gc.fail(c, fiber.StatusBadRequest, "لا يوجد بريد إلكتروني لهذا الشخص")
		}
		if !gc.Mailer.Configured() {
			return gc.fail(c, fiber.StatusServiceUnavailable, "خدمة البريد غير مفعلة")
		}
		refs := mailer.Refs{}
		if fc.Gallery != nil {
			refs.SessionID = &fc.Gallery.SessionID
		}
		if err := gc.Mailer.SendGalleryShare(c.UserContext(), to.Email, to.Name, eventName, link, refs); err != nil {
			logger.Error("Failed to send gallery share", err)
			return gc.fail(c, fiber.StatusBadGateway, "فشل إرسال البريد")
		}
	}

	err = gc.DB.Model(fc).Updates(map[string]interface{}{
		"share_status": galleryModel.ShareShared,
		"shared_at":    time.Now(),
		"shared_via":   req.Channel,
	}).Error
	if err != nil {
		return gc.dbError(c, err, "Failed to update share status")
	}
	return gc.ok(c, out)
}

func (gc *GalleryController) GetShareStatus(c *fiber.Ctx) error {
	var fc galleryModel.FaceCluster
	if err := gc.DB.Where("id = ?", c.Params("id")).First(&fc).Error; err != nil {
		return gc.dbError(c, err, "Error fetching cluster")
	}
	return gc.ok(c, fiber.Map{
		"shareStatus":  fc.ShareStatus,
		"sharedAt":     fc.SharedAt,
		"sharedVia":    fc.SharedVia,
		"viewCount":    fc.ViewCount,
		"lastViewedAt": fc.LastViewedAt,
		"photosUrl":    gc.photosURL(fc.ShareToken),
	})
}

// GetSessionAttendees lists approved registrants of the gallery's session
// as candidates for manual cluster assignment.
func (gc *GalleryController) GetSessionAttendees(c *fiber.Ctx) error {
	g, err := gc.loadGallery(c.Params("id"))
	if err != nil {
		return gc.dbError(c, err, "Error fetching gallery")
	}
	var regs []registration.Registration
	err = gc.DB.Preload("User").
		Where("session_id = ? AND is_approved = ?", g.SessionID, true).
		Order("registered_at ASC").
		Find(&regs).Error
	if err != nil {
		return gc.dbError(c, err, "Error fetching attendees")
	}

	type attendee struct {
		RegistrationID string  `json:"registrationId"`
		UserID         *string `json:"userId"`
		Name           string  `json:"name"`
		Email          string  `json:"email"`
		Phone          string  `json:"phone"`
		AvatarURL      *string `json:"avatarUrl"`
	}
	out := make([]attendee, 0, len(regs))
	for i := range regs {
		r := &regs[i]
		a := attendee{RegistrationID: r.ID, UserID: r.UserID, Name: r.DisplayName(), Email: r.ContactEmail(), Phone: r.ContactPhone()}
		if r.User != nil {
			a.AvatarURL = r.User.AvatarURL
		}
		out = append(out, a)
	}
	return gc.ok(c, out)
}

/*===== | Public Photos =====*/

// GetPhotosByToken is public. Each call counts as a view.
func (gc *GalleryController) GetPhotosByToken(c *fiber.Ctx) error {
	var fc galleryModel.FaceCluster
	err := gc.DB.Preload("User").Preload("Gallery.Session").Where("share_token = ?", c.Params("token")).First(&fc).Error
	if err != nil {
		return gc.dbError(c, err, "Error fetching photos")
	}

	err = gc.DB.Model(&fc).Updates(map[string]interface{}{
		"share_status":   galleryModel.ShareViewed,
		"view_count":     gorm.Expr("view_count + ?", 1),
		"last_viewed_at": time.Now(),
	}).Error
	if err != nil {
		return gc.dbError(c, err, "Failed to record view")
	}

	var images []galleryModel.Image
	err = gc.DB.Where("id IN (?)", gc.DB.Model(&galleryModel.DetectedFace{}).
		Select("image_id").
		Where("cluster_id = ?", fc.ID)).
		Order("created_at ASC").
		Find(&images).Error
	if err != nil {
		return gc.dbError(c, err, "Error fetching photos")
	}

	out := fiber.Map{
		"name":       recipientOf(&fc).Name,
		"images":     images,
		"totalCount": len(images),
	}
	if fc.Gallery != nil {
		out["galleryTitle"] = fc.Gallery.Title
		if fc.Gallery.Session != nil {
			out["sessionTitle"] = fc.Gallery.Session.Title
			out["sessionDate"] = fc.Gallery.Session.Date
		}
	}
	return gc.ok(c, out)
}
