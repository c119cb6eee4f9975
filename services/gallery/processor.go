// Package gallery runs face indexing, clustering and attendee matching over
// the photos of a gallery.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"eventpilot/logger"
	galleryModel "eventpilot/models/gallery"
	"eventpilot/models/registration"
	"eventpilot/services/faces"
	"eventpilot/services/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var ErrBusy = errors.New("gallery is already processing")

// AvatarFetcher downloads a profile picture for matching.
type AvatarFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads avatars with fiber's client.
type HTTPFetcher struct {
	Timeout time.Duration
}

func (f HTTPFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	code, body, errs := fiber.Get(url).Timeout(f.Timeout).Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("fetch %s: %w", url, errs[0])
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, code)
	}
	return body, nil
}

type Options struct {
	Workers          int
	ClusterThreshold float32
	MatchThreshold   float32
}

// Processor runs the pipeline in the background on its own context so
// requests that start processing can return immediately.
type Processor struct {
	db      *gorm.DB
	store   storage.Store
	faces   faces.Indexer
	avatars AvatarFetcher
	opts    Options
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running map[string]struct{}
}

func NewProcessor(db *gorm.DB, store storage.Store, indexer faces.Indexer, avatars AvatarFetcher, opts Options) *Processor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		db:      db,
		store:   store,
		faces:   indexer,
		avatars: avatars,
		opts:    opts,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		running: map[string]struct{}{},
	}
}

func (p *Processor) Running(galleryID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.running[galleryID]
	return ok
}

func (p *Processor) claim(galleryID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.running[galleryID]; ok {
		return false
	}
	p.running[galleryID] = struct{}{}
	return true
}

func (p *Processor) release(galleryID string) {
	p.mu.Lock()
	delete(p.running, galleryID)
	p.mu.Unlock()
}

// acquire claims a gallery and loads it. The claim is released again when
// the gallery cannot be processed.
func (p *Processor) acquire(galleryID string) (*galleryModel.PhotoGallery, error) {
	if !p.claim(galleryID) {
		return nil, ErrBusy
	}
	var g galleryModel.PhotoGallery
	if err := p.db.Where("id = ?", galleryID).First(&g).Error; err != nil {
		p.release(galleryID)
		return nil, err
	}
	if g.Status.Busy() {
		p.release(galleryID)
		return nil, ErrBusy
	}
	return &g, nil
}

// launch runs the pipeline in the background for a claimed gallery.
func (p *Processor) launch(galleryID string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.release(galleryID)
		if err := p.run(p.ctx, galleryID); err != nil {
			logger.Error("Gallery processing failed", err, zap.String("gallery", galleryID))
		}
	}()
}

// Start launches the pipeline for a gallery in the background.
func (p *Processor) Start(galleryID string) error {
	if _, err := p.acquire(galleryID); err != nil {
		return err
	}
	p.launch(galleryID)
	return nil
}

// Reprocess clears previous results and starts over. The reset happens
// while the gallery is claimed.
func (p *Processor) Reprocess(ctx context.Context, galleryID string) error {
	g, err := p.acquire(galleryID)
	if err != nil {
		return err
	}
	if err := p.reset(ctx, g); err != nil {
		p.release(galleryID)
		return err
	}
	p.launch(galleryID)
	return nil
}

// Run executes the pipeline synchronously.
func (p *Processor) Run(ctx context.Context, galleryID string) error {
	if !p.claim(galleryID) {
		return ErrBusy
	}
	defer p.release(galleryID)
	return p.run(ctx, galleryID)
}

// Shutdown cancels running pipelines and waits for them to stop.
func (p *Processor) Shutdown(ctx context.Context) error {
	p.cancel()
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Processor) run(ctx context.Context, galleryID string) error {
	g, err := p.initialize(ctx, galleryID)
	if err != nil {
		return p.fail(galleryID, err)
	}
	if err := p.indexImages(ctx, g); err != nil {
		return p.fail(galleryID, err)
	}
	if _, err := p.cluster(ctx, g); err != nil {
		return p.fail(galleryID, err)
	}
	if _, err := p.match(ctx, g); err != nil {
		return p.fail(galleryID, err)
	}

	now := p.now()
	err = p.db.Model(&galleryModel.PhotoGallery{}).Where("id = ?", g.ID).Updates(map[string]interface{}{
		"status":                  galleryModel.StatusReady,
		"processing_completed_at": now,
	}).Error
	if err != nil {
		return err
	}
	logger.Success(fmt.Sprintf("Gallery %s processed", g.ID))
	return nil
}

func (p *Processor) fail(galleryID string, cause error) error {
	msg := cause.Error()
	err := p.db.Model(&galleryModel.PhotoGallery{}).Where("id = ?", galleryID).Updates(map[string]interface{}{
		"status":     galleryModel.StatusError,
		"last_error": msg,
	}).Error
	if err != nil {
		logger.Error("Failed to record gallery error", err, zap.String("gallery", galleryID))
	}
	return cause
}

func (p *Processor) setStatus(galleryID string, status galleryModel.Status) error {
	return p.db.Model(&galleryModel.PhotoGallery{}).Where("id = ?", galleryID).Update("status", status).Error
}

func (p *Processor) initialize(ctx context.Context, galleryID string) (*galleryModel.PhotoGallery, error) {
	var g galleryModel.PhotoGallery
	if err := p.db.Where("id = ?", galleryID).First(&g).Error; err != nil {
		return nil, err
	}
	collection := galleryModel.CollectionID(g.ID)
	if err := p.faces.CreateCollection(ctx, collection); err != nil {
		return nil, err
	}

	var total int64
	if err := p.db.Model(&galleryModel.Image{}).Where("gallery_id = ?", g.ID).Count(&total).Error; err != nil {
		return nil, err
	}

	now := p.now()
	err := p.db.Model(&g).Updates(map[string]interface{}{
		"status":                  galleryModel.StatusProcessing,
		"total_images":            total,
		"collection_id":           collection,
		"processing_started_at":   now,
		"processing_completed_at": nil,
		"last_error":              nil,
	}).Error
	if err != nil {
		return nil, err
	}
	g.CollectionID = &collection
	g.TotalImages = int(total)
	return &g, nil
}

// indexImages indexes pending images with a bounded worker pool. A failed
// image is marked failed and still counts as processed.
func (p *Processor) indexImages(ctx context.Context, g *galleryModel.PhotoGallery) error {
	var images []galleryModel.Image
	if err := p.db.Where("gallery_id = ? AND status = ?", g.ID, galleryModel.ImagePending).Find(&images).Error; err != nil {
		return err
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(p.opts.Workers)
	for i := range images {
		img := &images[i]
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			found, err := p.indexImage(gctx, g, img)
			if err != nil {
				logger.Warning("Gallery image failed", zap.String("image", img.ID), zap.Error(err))
				msg := err.Error()
				uerr := p.db.Model(img).Updates(map[string]interface{}{
					"status":        galleryModel.ImageFailed,
					"error_message": msg,
					"processed_at":  p.now(),
				}).Error
				if uerr != nil {
					logger.Error("Failed to mark gallery image failed", uerr, zap.String("image", img.ID))
				}
			}
			return p.db.Model(&galleryModel.PhotoGallery{}).Where("id = ?", g.ID).Updates(map[string]interface{}{
				"processed_images": gorm.Expr("processed_images + ?", 1),
				"total_faces":      gorm.Expr("total_faces + ?", found),
			}).Error
		})
	}
	return group.Wait()
}

func (p *Processor) indexImage(ctx context.Context, g *galleryModel.PhotoGallery, img *galleryModel.Image) (int, error) {
	if err := p.db.Model(img).Update("status", galleryModel.ImageProcessing).Error; err != nil {
		return 0, err
	}
	indexed, err := p.faces.IndexFaces(ctx, *g.CollectionID, img.S3Bucket, img.S3Key, img.ID)
	if err != nil {
		return 0, err
	}

	var original []byte
	if len(indexed) > 0 {
		if original, err = p.store.Get(ctx, img.S3Key); err != nil {
			logger.Warning("Face thumbnails skipped", zap.String("image", img.ID), zap.Error(err))
		}
	}

	rows := make([]galleryModel.DetectedFace, 0, len(indexed))
	for i, f := range indexed {
		faceID := f.FaceID
		row := galleryModel.DetectedFace{
			ImageID:        img.ID,
			ExternalFaceID: &faceID,
			Box:            galleryModel.BoundingBox{Top: f.Box.Top, Left: f.Box.Left, Width: f.Box.Width, Height: f.Box.Height},
			Confidence:     f.Confidence,
		}
		if original != nil {
			p.attachThumbnail(ctx, g.ID, img.ID, i, original, f.Box, &row)
		}
		rows = append(rows, row)
	}

	status := galleryModel.ImageSkipped
	if len(rows) > 0 {
		status = galleryModel.ImageCompleted
	}
	err = p.db.Transaction(func(tx *gorm.DB) error {
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		return tx.Model(img).Updates(map[string]interface{}{
			"status":        status,
			"face_count":    len(rows),
			"error_message": nil,
			"processed_at":  p.now(),
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (p *Processor) attachThumbnail(ctx context.Context, galleryID, imageID string, index int, original []byte, box faces.Box, row *galleryModel.DetectedFace) {
	thumb, err := Thumbnail(original, box)
	if err != nil {
		logger.Warning("Face thumbnail failed", zap.String("image", imageID), zap.Error(err))
		return
	}
	key := storage.FaceThumbnailKey(galleryID, imageID, index)
	if err := p.store.Put(ctx, key, thumb, "image/jpeg"); err != nil {
		logger.Warning("Face thumbnail upload failed", zap.String("key", key), zap.Error(err))
		return
	}
	url := p.store.URL(key)
	row.ThumbnailS3Key = &key
	row.ThumbnailURL = &url
}

// cluster walks the unclustered faces and gives every match not yet seen
// the seed face's cluster.
func (p *Processor) cluster(ctx context.Context, g *galleryModel.PhotoGallery) (int, error) {
	if err := p.setStatus(g.ID, galleryModel.StatusClustering); err != nil {
		return 0, err
	}

	var pending []galleryModel.DetectedFace
	err := p.db.Preload("Image").
		Joins("JOIN gallery_images ON gallery_images.id = detected_faces.image_id").
		Where("gallery_images.gallery_id = ? AND detected_faces.cluster_id IS NULL AND detected_faces.external_face_id IS NOT NULL", g.ID).
		Order("detected_faces.created_at ASC").
		Find(&pending).Error
	if err != nil {
		return 0, err
	}

	byExternal := make(map[string]*galleryModel.DetectedFace, len(pending))
	for i := range pending {
		byExternal[*pending[i].ExternalFaceID] = &pending[i]
	}

	var existing int64
	if err := p.db.Model(&galleryModel.FaceCluster{}).Where("gallery_id = ?", g.ID).Count(&existing).Error; err != nil {
		return 0, err
	}

	seen := map[string]bool{}
	created := 0
	for i := range pending {
		seed := &pending[i]
		if seen[*seed.ExternalFaceID] {
			continue
		}
		seen[*seed.ExternalFaceID] = true

		members := map[string]float64{seed.ID: 100}
		similar, err := p.faces.SearchByFaceID(ctx, *g.CollectionID, *seed.ExternalFaceID, p.opts.ClusterThreshold)
		if err != nil {
			logger.Warning("Face search failed", zap.String("face", seed.ID), zap.Error(err))
		}
		for _, m := range similar {
			face, ok := byExternal[m.FaceID]
			if !ok || seen[m.FaceID] {
				continue
			}
			seen[m.FaceID] = true
			members[face.ID] = m.Similarity
		}

		created++
		cluster := galleryModel.FaceCluster{
			GalleryID: g.ID,
			AutoLabel: fmt.Sprintf("شخص %d", int(existing)+created),
			FaceCount: len(members),
		}
		if seed.ThumbnailURL != nil {
			cluster.RepresentativeFaceURL = seed.ThumbnailURL
		} else if seed.Image != nil {
			cluster.RepresentativeFaceURL = &seed.Image.ImageURL
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&cluster).Error; err != nil {
				return err
			}
			for faceID, similarity := range members {
				err := tx.Model(&galleryModel.DetectedFace{}).Where("id = ?", faceID).Updates(map[string]interface{}{
					"cluster_id":         cluster.ID,
					"cluster_similarity": similarity,
				}).Error
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return created, err
		}
	}

	total := int(existing) + created
	if err := p.db.Model(&galleryModel.PhotoGallery{}).Where("id = ?", g.ID).Update("total_clusters", total).Error; err != nil {
		return created, err
	}
	return created, nil
}

type bestMatch struct {
	userID     string
	similarity float64
}

// match searches the collection with each attendee's avatar and assigns
// every unassigned cluster to the attendee with the best similarity.
func (p *Processor) match(ctx context.Context, g *galleryModel.PhotoGallery) (int, error) {
	if err := p.setStatus(g.ID, galleryModel.StatusMatching); err != nil {
		return 0, err
	}
	if p.avatars == nil {
		return 0, nil
	}

	var regs []registration.Registration
	err := p.db.Preload("User").
		Joins("JOIN attendances ON attendances.registration_id = registrations.id").
		Where("registrations.session_id = ? AND attendances.attended = ? AND registrations.user_id IS NOT NULL", g.SessionID, true).
		Find(&regs).Error
	if err != nil {
		return 0, err
	}

	var assigned []struct {
		ExternalFaceID string
		ClusterID      string
	}
	err = p.db.Model(&galleryModel.DetectedFace{}).
		Select("detected_faces.external_face_id, detected_faces.cluster_id").
		Joins("JOIN face_clusters ON face_clusters.id = detected_faces.cluster_id").
		Where("face_clusters.gallery_id = ? AND face_clusters.user_id IS NULL AND detected_faces.external_face_id IS NOT NULL", g.ID).
		Scan(&assigned).Error
	if err != nil {
		return 0, err
	}
	clusterOf := make(map[string]string, len(assigned))
	for _, a := range assigned {
		clusterOf[a.ExternalFaceID] = a.ClusterID
	}

	best := map[string]bestMatch{}
	for _, reg := range regs {
		if reg.User == nil || reg.User.AvatarURL == nil || *reg.User.AvatarURL == "" {
			continue
		}
		avatar, err := p.avatars.Fetch(ctx, *reg.User.AvatarURL)
		if err != nil {
			logger.Warning("Avatar download failed", zap.String("user", reg.User.ID), zap.Error(err))
			continue
		}
		matches, err := p.faces.SearchByImage(ctx, *g.CollectionID, avatar, p.opts.MatchThreshold)
		if err != nil {
			logger.Warning("Avatar search failed", zap.String("user", reg.User.ID), zap.Error(err))
			continue
		}
		for _, m := range matches {
			clusterID, ok := clusterOf[m.FaceID]
			if !ok {
				continue
			}
			if cur, ok := best[clusterID]; !ok || m.Similarity > cur.similarity {
				best[clusterID] = bestMatch{userID: reg.User.ID, similarity: m.Similarity}
			}
		}
	}

	for clusterID, m := range best {
		err := p.db.Model(&galleryModel.FaceCluster{}).Where("id = ?", clusterID).Updates(map[string]interface{}{
			"user_id":          m.userID,
			"match_confidence": m.similarity,
		}).Error
		if err != nil {
			return 0, err
		}
	}
	return len(best), nil
}

// reset drops faces, clusters and the collection and puts every image back
// to pending.
func (p *Processor) reset(ctx context.Context, g *galleryModel.PhotoGallery) error {
	var thumbs []string
	err := p.db.Model(&galleryModel.DetectedFace{}).
		Joins("JOIN gallery_images ON gallery_images.id = detected_faces.image_id").
		Where("gallery_images.gallery_id = ? AND detected_faces.thumbnail_s3_key IS NOT NULL", g.ID).
		Pluck("detected_faces.thumbnail_s3_key", &thumbs).Error
	if err != nil {
		return err
	}

	err = p.db.Transaction(func(tx *gorm.DB) error {
		images := tx.Model(&galleryModel.Image{}).Select("id").Where("gallery_id = ?", g.ID)
		if err := tx.Where("image_id IN (?)", images).Delete(&galleryModel.DetectedFace{}).Error; err != nil {
			return err
		}
		if err := tx.Where("gallery_id = ?", g.ID).Delete(&galleryModel.FaceCluster{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&galleryModel.Image{}).Where("gallery_id = ?", g.ID).Updates(map[string]interface{}{
			"status":        galleryModel.ImagePending,
			"face_count":    0,
			"error_message": nil,
			"processed_at":  nil,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&galleryModel.PhotoGallery{}).Where("id = ?", g.ID).Updates(map[string]interface{}{
			"processed_images": 0,
			"total_faces":      0,
			"total_clusters":   0,
			"last_error":       nil,
		}).Error
	})
	if err != nil {
		return err
	}

	if len(thumbs) > 0 {
		if err := p.store.Delete(ctx, thumbs...); err != nil {
			logger.Warning("Failed to delete face thumbnails", zap.String("gallery", g.ID), zap.Error(err))
		}
	}
	return p.faces.DeleteCollection(ctx, galleryModel.CollectionID(g.ID))
}

// Remove deletes the stored photos and collection of a gallery. Rows are
// deleted by the caller.
func (p *Processor) Remove(ctx context.Context, galleryID string) error {
	var keys []string
	if err := p.db.Model(&galleryModel.Image{}).Where("gallery_id = ?", galleryID).Pluck("s3_key", &keys).Error; err != nil {
		return err
	}
	var thumbs []string
	err := p.db.Model(&galleryModel.DetectedFace{}).
		Joins("JOIN gallery_images ON gallery_images.id = detected_faces.image_id").
		Where("gallery_images.gallery_id = ? AND detected_faces.thumbnail_s3_key IS NOT NULL", galleryID).
		Pluck("detected_faces.thumbnail_s3_key", &thumbs).Error
	if err != nil {
		return err
	}
	if err := p.store.Delete(ctx, append(keys, thumbs...)...); err != nil {
		logger.Warning("Failed to delete gallery objects", zap.String("gallery", galleryID), zap.Error(err))
	}
	return p.faces.DeleteCollection(ctx, galleryModel.CollectionID(galleryID))
}
