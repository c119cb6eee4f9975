package gallery

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"eventpilot/internal/testdb"
	galleryModel "eventpilot/models/gallery"
	"eventpilot/models/registration"
	"eventpilot/models/session"
	"eventpilot/models/user"
	"eventpilot/services/faces"
	"eventpilot/services/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeIndexer returns canned faces per image key. Faces sharing a person
// are reported as matches of each other.
type fakeIndexer struct {
	mu      sync.Mutex
	faces   map[string][]faces.IndexedFace
	person  map[string]string
	avatars map[string]string
	failKey string
	created []string
	deleted []string
}

func (f *fakeIndexer) CreateCollection(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, id)
	return nil
}

func (f *fakeIndexer) DeleteCollection(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndexer) IndexFaces(_ context.Context, _, _, key, _ string) ([]faces.IndexedFace, error) {
	if key == f.failKey {
		return nil, errors.New("bad image")
	}
	return f.faces[key], nil
}

func (f *fakeIndexer) SearchByFaceID(_ context.Context, _, faceID string, _ float32) ([]faces.Match, error) {
	var out []faces.Match
	for id, person := range f.person {
		if id != faceID && person == f.person[faceID] {
			out = append(out, faces.Match{FaceID: id, Similarity: 95})
		}
	}
	return out, nil
}

func (f *fakeIndexer) SearchByImage(_ context.Context, _ string, img []byte, _ float32) ([]faces.Match, error) {
	person := f.avatars[string(img)]
	var out []faces.Match
	for id, p := range f.person {
		if p == person {
			out = append(out, faces.Match{FaceID: id, Similarity: 88})
		}
	}
	return out, nil
}

type fakeAvatars map[string][]byte

func (f fakeAvatars) Fetch(_ context.Context, url string) ([]byte, error) {
	body, ok := f[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return body, nil
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for x := 0; x < 400; x++ {
		for y := 0; y < 300; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

type galleryFixture struct {
	db        *gorm.DB
	store     *storage.Memory
	indexer   *fakeIndexer
	processor *Processor
	gallery   *galleryModel.PhotoGallery
}

func newGalleryFixture(t *testing.T) *galleryFixture {
	t.Helper()
	db := testdb.New(t)
	store := storage.NewMemory("photos")

	sess := &session.Session{SessionNumber: 1, Title: "Meetup", Date: time.Now()}
	require.NoError(t, db.Create(sess).Error)
	g := &galleryModel.PhotoGallery{SessionID: sess.ID, Title: "معرض صور Meetup"}
	require.NoError(t, db.Create(g).Error)

	box := faces.Box{Top: 0.2, Left: 0.2, Width: 0.2, Height: 0.3}
	indexer := &fakeIndexer{
		faces: map[string][]faces.IndexedFace{
			"a.jpg": {{FaceID: "f1", Box: box, Confidence: 99}, {FaceID: "f2", Box: box, Confidence: 98}},
			"b.jpg": {{FaceID: "f3", Box: box, Confidence: 97}},
		},
		person:  map[string]string{"f1": "sara", "f2": "omar", "f3": "sara"},
		avatars: map[string]string{"sara-avatar": "sara"},
		failKey: "broken.jpg",
	}

	photo := testJPEG(t)
	for _, key := range []string{"a.jpg", "b.jpg", "empty.jpg", "broken.jpg"} {
		require.NoError(t, store.Put(context.Background(), key, photo, "image/jpeg"))
		require.NoError(t, db.Create(&galleryModel.Image{
			GalleryID: g.ID, Filename: key, S3Key: key, S3Bucket: "photos", ImageURL: store.URL(key),
		}).Error)
	}

	avatar := "https://cdn.example.com/sara.jpg"
	sara := &user.User{Name: "Sara", Username: "sara", Email: "sara@example.com", AvatarURL: &avatar}
	require.NoError(t, db.Create(sara).Error)
	reg := &registration.Registration{SessionID: sess.ID, UserID: &sara.ID, IsApproved: true}
	require.NoError(t, db.Create(reg).Error)
	require.NoError(t, db.Create(&registration.Attendance{RegistrationID: reg.ID, SessionID: sess.ID, Attended: true}).Error)

	p := NewProcessor(db, store, indexer, fakeAvatars{avatar: []byte("sara-avatar")}, Options{Workers: 2, ClusterThreshold: 90, MatchThreshold: 80})
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return &galleryFixture{db: db, store: store, indexer: indexer, processor: p, gallery: g}
}

func TestRun_Pipeline(t *testing.T) {
	f := newGalleryFixture(t)
	require.NoError(t, f.processor.Run(context.Background(), f.gallery.ID))

	var g galleryModel.PhotoGallery
	require.NoError(t, f.db.First(&g, "id = ?", f.gallery.ID).Error)
	assert.Equal(t, galleryModel.StatusReady, g.Status)
	assert.Equal(t, 4, g.ProcessedImages)
	assert.Equal(t, 3, g.TotalFaces)
	assert.Equal(t, 2, g.TotalClusters)
	assert.Equal(t, 100, g.Percent())
	require.NotNil(t, g.CollectionID)
	assert.Equal(t, galleryModel.CollectionID(g.ID), *g.CollectionID)
	assert.NotNil(t, g.ProcessingCompletedAt)

	byName := map[string]galleryModel.Image{}
	var images []galleryModel.Image
	require.NoError(t, f.db.Where("gallery_id = ?", g.ID).Find(&images).Error)
	for _, img := range images {
		byName[img.Filename] = img
	}
	assert.Equal(t, galleryModel.ImageCompleted, byName["a.jpg"].Status)
	assert.Equal(t, 2, byName["a.jpg"].FaceCount)
	assert.Equal(t, galleryModel.ImageSkipped, byName["empty.jpg"].Status)
	assert.Equal(t, galleryModel.ImageFailed, byName["broken.jpg"].Status)
	require.NotNil(t, byName["broken.jpg"].ErrorMessage)
	assert.Equal(t, "bad image", *byName["broken.jpg"].ErrorMessage)
	assert.NotNil(t, byName["broken.jpg"].ProcessedAt)

	assert.True(t, f.store.Has(storage.FaceThumbnailKey(g.ID, byName["a.jpg"].ID, 1)))
	assert.True(t, f.store.Has(storage.FaceThumbnailKey(g.ID, byName["b.jpg"].ID, 0)))

	var clusters []galleryModel.FaceCluster
	require.NoError(t, f.db.Where("gallery_id = ?", g.ID).Order("auto_label").Find(&clusters).Error)
	require.Len(t, clusters, 2)
	labels := []string{clusters[0].AutoLabel, clusters[1].AutoLabel}
	assert.ElementsMatch(t, []string{"شخص 1", "شخص 2"}, labels)

	var saraCluster *galleryModel.FaceCluster
	for i := range clusters {
		if clusters[i].FaceCount == 2 {
			saraCluster = &clusters[i]
		}
	}
	require.NotNil(t, saraCluster)
	require.NotNil(t, saraCluster.UserID)
	assert.Equal(t, 88.0, *saraCluster.MatchConfidence)
	assert.NotEmpty(t, saraCluster.ShareToken)
}

func TestStart_RejectsBusy(t *testing.T) {
	f := newGalleryFixture(t)
	require.NoError(t, f.db.Model(f.gallery).Update("status", galleryModel.StatusClustering).Error)

	assert.ErrorIs(t, f.processor.Start(f.gallery.ID), ErrBusy)
	assert.ErrorIs(t, f.processor.Reprocess(context.Background(), f.gallery.ID), ErrBusy)
}

func TestReprocess_ClearsResults(t *testing.T) {
	f := newGalleryFixture(t)
	require.NoError(t, f.processor.Run(context.Background(), f.gallery.ID))

	var g galleryModel.PhotoGallery
	require.NoError(t, f.db.First(&g, "id = ?", f.gallery.ID).Error)
	require.NoError(t, f.processor.reset(context.Background(), &g))

	var faceCount, clusterCount int64
	f.db.Model(&galleryModel.DetectedFace{}).Count(&faceCount)
	f.db.Model(&galleryModel.FaceCluster{}).Count(&clusterCount)
	assert.Zero(t, faceCount)
	assert.Zero(t, clusterCount)

	var pending int64
	f.db.Model(&galleryModel.Image{}).Where("status = ?", galleryModel.ImagePending).Count(&pending)
	assert.Equal(t, int64(4), pending)
	assert.Contains(t, f.indexer.deleted, galleryModel.CollectionID(g.ID))

	require.NoError(t, f.processor.Run(context.Background(), f.gallery.ID))
	require.NoError(t, f.db.First(&g, "id = ?", f.gallery.ID).Error)
	assert.Equal(t, 2, g.TotalClusters)
	assert.Equal(t, 4, g.ProcessedImages)
}

func TestReprocess_KeepsResultsWhileClaimed(t *testing.T) {
	f := newGalleryFixture(t)
	require.NoError(t, f.processor.Run(context.Background(), f.gallery.ID))

	var before int64
	f.db.Model(&galleryModel.DetectedFace{}).Count(&before)
	require.NotZero(t, before)

	// Another pipeline holds the gallery.
	require.True(t, f.processor.claim(f.gallery.ID))
	assert.ErrorIs(t, f.processor.Reprocess(context.Background(), f.gallery.ID), ErrBusy)
	assert.ErrorIs(t, f.processor.Start(f.gallery.ID), ErrBusy)

	var after int64
	f.db.Model(&galleryModel.DetectedFace{}).Count(&after)
	assert.Equal(t, before, after)
	assert.Empty(t, f.indexer.deleted)
	f.processor.release(f.gallery.ID)

	require.NoError(t, f.processor.Reprocess(context.Background(), f.gallery.ID))
	assert.Eventually(t, func() bool {
		var g galleryModel.PhotoGallery
		if err := f.db.First(&g, "id = ?", f.gallery.ID).Error; err != nil {
			return false
		}
		return g.Status == galleryModel.StatusReady && !f.processor.Running(f.gallery.ID)
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, f.indexer.deleted, galleryModel.CollectionID(f.gallery.ID))
}

func TestStart_MissingGalleryReleasesClaim(t *testing.T) {
	f := newGalleryFixture(t)
	assert.ErrorIs(t, f.processor.Start("missing"), gorm.ErrRecordNotFound)
	assert.False(t, f.processor.Running("missing"))
}

func TestStart_RunsInBackground(t *testing.T) {
	f := newGalleryFixture(t)
	require.NoError(t, f.processor.Start(f.gallery.ID))

	assert.Eventually(t, func() bool {
		var g galleryModel.PhotoGallery
		if err := f.db.First(&g, "id = ?", f.gallery.ID).Error; err != nil {
			return false
		}
		return g.Status == galleryModel.StatusReady && !f.processor.Running(f.gallery.ID)
	}, 5*time.Second, 20*time.Millisecond)
}

func TestThumbnail(t *testing.T) {
	thumb, err := Thumbnail(testJPEG(t), faces.Box{Top: 0.9, Left: 0.9, Width: 0.3, Height: 0.3})
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 200), img.Bounds())

	_, err = Thumbnail([]byte("not an image"), faces.Box{})
	assert.Error(t, err)
}
