// Package storage wraps the object store that holds uploaded images.
// Clients upload straight to the store through presigned PUT URLs; the
// server only reads objects back for face thumbnails.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"eventpilot/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// UploadTTL is how long a presigned upload URL stays valid.
const UploadTTL = 10 * time.Minute

const cacheControl = "public, max-age=31536000, immutable"

var ErrContentType = errors.New("content type not allowed")

// Store is the subset of object storage the service uses.
type Store interface {
	Bucket() string
	URL(key string) string
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, keys ...string) error
}

// Options configures an S3 store. Endpoint targets S3-compatible services
// and switches to path-style addressing.
type Options struct {
	Region    string
	Endpoint  string
	Bucket    string
	PublicURL string
}

type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	opts    Options
}

// NewS3 loads AWS credentials from the default chain.
func NewS3(ctx context.Context, opts Options) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, presign: s3.NewPresignClient(client), opts: opts}, nil
}

func (s *S3Store) Bucket() string {
	return s.opts.Bucket
}

// URL is the CDN URL when one is configured, otherwise the bucket URL.
func (s *S3Store) URL(key string) string {
	return PublicURL(s.opts, key)
}

func PublicURL(opts Options, key string) string {
	if opts.PublicURL != "" {
		return strings.TrimRight(opts.PublicURL, "/") + "/" + key
	}
	if opts.Endpoint != "" {
		return strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", opts.Bucket, opts.Region, key)
}

func (s *S3Store) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.opts.Bucket),
		Key:          aws.String(key),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.opts.Bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete removes keys in batches of 1000, the S3 limit per request.
func (s *S3Store) Delete(ctx context.Context, keys ...string) error {
	for start := 0; start < len(keys); start += 1000 {
		end := start + 1000
		if end > len(keys) {
			end = len(keys)
		}
		objects := make([]s3types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, s3types.ObjectIdentifier{Key: aws.String(key)})
		}
		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.opts.Bucket),
			Delete: &s3types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete objects: %w", err)
		}
	}
	return nil
}

// Kind describes an upload category.
type Kind struct {
	Folder       string
	MaxSizeBytes int64
	ContentTypes []string
}

var (
	imageTypes    = []string{"image/jpeg", "image/png", "image/webp"}
	logoTypes     = []string{"image/jpeg", "image/png", "image/webp", "image/svg+xml"}
	documentTypes = []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
	}
)

// Kinds are the upload categories outside the gallery.
var Kinds = map[string]Kind{
	"avatar":            {Folder: "avatars", MaxSizeBytes: 5 << 20, ContentTypes: imageTypes},
	"banner":            {Folder: "sessions/banners", MaxSizeBytes: 10 << 20, ContentTypes: imageTypes},
	"logo":              {Folder: "catering/logos", MaxSizeBytes: 2 << 20, ContentTypes: logoTypes},
	"sponsorLogo":       {Folder: "sponsors/logos", MaxSizeBytes: 2 << 20, ContentTypes: logoTypes},
	"sponsorAttachment": {Folder: "sponsors/attachments", MaxSizeBytes: 10 << 20, ContentTypes: documentTypes},
}

func (k Kind) Allows(contentType string) bool {
	for _, ct := range k.ContentTypes {
		if ct == contentType {
			return true
		}
	}
	return false
}

// GalleryContentTypes are accepted for gallery photos.
var GalleryContentTypes = Kind{ContentTypes: imageTypes}

// UploadKey is <folder>/<entity>/<unixMillis>.<ext>.
func UploadKey(k Kind, entityID, filename string, now time.Time) string {
	ext := "jpg"
	clean := utils.SanitizeFilename(filename)
	if i := strings.LastIndex(clean, "."); i >= 0 && i < len(clean)-1 {
		ext = clean[i+1:]
	}
	return fmt.Sprintf("%s/%s/%d.%s", k.Folder, entityID, now.UnixMilli(), ext)
}

// GalleryKey is galleries/<gallery>/<unixMillis>-<sanitized filename>.
func GalleryKey(galleryID, filename string, now time.Time) string {
	return fmt.Sprintf("galleries/%s/%d-%s", galleryID, now.UnixMilli(), utils.SanitizeFilename(filename))
}

func FaceThumbnailKey(galleryID, imageID string, index int) string {
	return fmt.Sprintf("galleries/%s/faces/%s-face-%d.jpg", galleryID, imageID, index)
}
