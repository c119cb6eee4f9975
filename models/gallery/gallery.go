package gallery

import (
	"time"

	"eventpilot/models/common"
	"eventpilot/models/session"
	"eventpilot/models/user"

	"gorm.io/gorm"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusClustering Status = "clustering"
	StatusMatching   Status = "matching"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// Busy reports whether the pipeline is currently running on the gallery.
func (s Status) Busy() bool {
	return s == StatusProcessing || s == StatusClustering || s == StatusMatching
}

type ImageStatus string

const (
	ImagePending    ImageStatus = "pending"
	ImageProcessing ImageStatus = "processing"
	ImageCompleted  ImageStatus = "completed"
	ImageSkipped    ImageStatus = "skipped"
	ImageFailed     ImageStatus = "failed"
)

type ShareStatus string

const (
	ShareNone   ShareStatus = "none"
	ShareShared ShareStatus = "shared"
	ShareViewed ShareStatus = "viewed"
)

// PhotoGallery holds event photos and the face-processing state for them.
type PhotoGallery struct {
	ID                    string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	SessionID             string     `gorm:"type:varchar(36);not null;index" json:"sessionId"`
	Title                 string     `gorm:"type:varchar(255);not null" json:"title"`
	Status                Status     `gorm:"type:varchar(20);not null;default:pending" json:"status"`
	TotalImages           int        `gorm:"not null;default:0" json:"totalImages"`
	ProcessedImages       int        `gorm:"not null;default:0" json:"processedImages"`
	TotalFaces            int        `gorm:"not null;default:0" json:"totalFaces"`
	TotalClusters         int        `gorm:"not null;default:0" json:"totalClusters"`
	CollectionID          *string    `gorm:"type:varchar(255)" json:"collectionId"`
	ProcessingStartedAt   *time.Time `json:"processingStartedAt"`
	ProcessingCompletedAt *time.Time `json:"processingCompletedAt"`
	LastError             *string    `gorm:"type:text" json:"lastError"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`

	Session  *session.Session `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"session,omitempty"`
	Images   []Image          `gorm:"foreignKey:GalleryID" json:"images,omitempty"`
	Clusters []FaceCluster    `gorm:"foreignKey:GalleryID" json:"-"`
}

func (PhotoGallery) TableName() string {
	return "photo_galleries"
}

func (g *PhotoGallery) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = common.NewID()
	}
	if g.Status == "" {
		g.Status = StatusPending
	}
	return nil
}

// Percent is processed over total images, 0 when empty.
func (g *PhotoGallery) Percent() int {
	if g.TotalImages == 0 {
		return 0
	}
	return g.ProcessedImages * 100 / g.TotalImages
}

type Image struct {
	ID           string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	GalleryID    string      `gorm:"type:varchar(36);not null;index" json:"galleryId"`
	Filename     string      `gorm:"type:varchar(500);not null" json:"filename"`
	S3Key        string      `gorm:"type:varchar(1024);not null" json:"s3Key"`
	S3Bucket     string      `gorm:"type:varchar(255);not null" json:"s3Bucket"`
	ImageURL     string      `gorm:"type:varchar(2048);not null" json:"imageUrl"`
	FileSize     int64       `json:"fileSize"`
	ContentType  string      `gorm:"type:varchar(100)" json:"contentType"`
	Status       ImageStatus `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	FaceCount    int         `gorm:"not null;default:0" json:"faceCount"`
	ErrorMessage *string     `gorm:"type:text" json:"errorMessage"`
	ProcessedAt  *time.Time  `json:"processedAt"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"createdAt"`

	Gallery *PhotoGallery  `gorm:"foreignKey:GalleryID;constraint:OnDelete:CASCADE" json:"-"`
	Faces   []DetectedFace `gorm:"foreignKey:ImageID" json:"faces,omitempty"`
}

func (Image) TableName() string {
	return "gallery_images"
}

func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = common.NewID()
	}
	if i.Status == "" {
		i.Status = ImagePending
	}
	return nil
}

// BoundingBox is normalized to the image size, each value in [0,1].
type BoundingBox struct {
	Top    float64 `gorm:"column:bounding_box_top" json:"top"`
	Left   float64 `gorm:"column:bounding_box_left" json:"left"`
	Width  float64 `gorm:"column:bounding_box_width" json:"width"`
	Height float64 `gorm:"column:bounding_box_height" json:"height"`
}

type DetectedFace struct {
	ID                string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	ImageID           string      `gorm:"type:varchar(36);not null;index" json:"imageId"`
	ExternalFaceID    *string     `gorm:"type:varchar(255);index" json:"externalFaceId"`
	Box               BoundingBox `gorm:"embedded" json:"boundingBox"`
	Confidence        float64     `json:"confidence"`
	ThumbnailURL      *string     `gorm:"type:varchar(2048)" json:"faceThumbnailUrl"`
	ThumbnailS3Key    *string     `gorm:"type:varchar(1024)" json:"-"`
	ClusterID         *string     `gorm:"type:varchar(36);index" json:"clusterId"`
	ClusterSimilarity *float64    `json:"clusterSimilarity"`
	CreatedAt         time.Time   `gorm:"autoCreateTime" json:"createdAt"`

	Image   *Image       `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"image,omitempty"`
	Cluster *FaceCluster `gorm:"foreignKey:ClusterID;constraint:OnDelete:SET NULL" json:"-"`
}

func (DetectedFace) TableName() string {
	return "detected_faces"
}

func (f *DetectedFace) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = common.NewID()
	}
	return nil
}

// FaceCluster groups faces believed to be the same person.
type FaceCluster struct {
	ID                    string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	GalleryID             string      `gorm:"type:varchar(36);not null;index" json:"galleryId"`
	AutoLabel             string      `gorm:"type:varchar(100);not null" json:"autoLabel"`
	FaceCount             int         `gorm:"not null;default:0" json:"faceCount"`
	RepresentativeFaceURL *string     `gorm:"type:varchar(2048)" json:"representativeFaceUrl"`
	UserID                *string     `gorm:"type:varchar(36);index" json:"userId"`
	MatchConfidence       *float64    `json:"matchConfidence"`
	IsVerified            bool        `gorm:"not null;default:false" json:"isVerified"`
	ManualName            *string     `gorm:"type:varchar(255)" json:"manualName"`
	ManualEmail           *string     `gorm:"type:varchar(255)" json:"manualEmail"`
	ManualPhone           *string     `gorm:"type:varchar(20)" json:"manualPhone"`
	ShareToken            string      `gorm:"type:varchar(36);not null;uniqueIndex" json:"shareToken"`
	ShareStatus           ShareStatus `gorm:"type:varchar(20);not null;default:none" json:"shareStatus"`
	SharedAt              *time.Time  `json:"sharedAt"`
	SharedVia             *string     `gorm:"type:varchar(20)" json:"sharedVia"`
	ViewCount             int         `gorm:"not null;default:0" json:"viewCount"`
	LastViewedAt          *time.Time  `json:"lastViewedAt"`
	CreatedAt             time.Time   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt             time.Time   `gorm:"autoUpdateTime" json:"updatedAt"`

	Gallery *PhotoGallery  `gorm:"foreignKey:GalleryID;constraint:OnDelete:CASCADE" json:"-"`
	User    *user.User     `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
	Faces   []DetectedFace `gorm:"foreignKey:ClusterID" json:"faces,omitempty"`
}

func (FaceCluster) TableName() string {
	return "face_clusters"
}

func (c *FaceCluster) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = common.NewID()
	}
	if c.ShareToken == "" {
		c.ShareToken = common.NewID()
	}
	if c.ShareStatus == "" {
		c.ShareStatus = ShareNone
	}
	return nil
}

// CollectionID is the face collection name for a gallery.
func CollectionID(galleryID string) string {
	return "eventpilot-gallery-" + galleryID
}
