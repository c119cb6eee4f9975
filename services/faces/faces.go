// Package faces indexes and searches faces in per-gallery collections.
package faces

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// MaxImageBytes is the largest image accepted by value.
const MaxImageBytes = 5 << 20

// Box is a bounding box normalized to the image size.
type Box struct {
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

type IndexedFace struct {
	FaceID     string
	Box        Box
	Confidence float64
}

type Match struct {
	FaceID     string
	Similarity float64
}

// Indexer is the face recognition backend.
type Indexer interface {
	CreateCollection(ctx context.Context, collectionID string) error
	DeleteCollection(ctx context.Context, collectionID string) error
	IndexFaces(ctx context.Context, collectionID, bucket, key, externalImageID string) ([]IndexedFace, error)
	SearchByFaceID(ctx context.Context, collectionID, faceID string, threshold float32) ([]Match, error)
	SearchByImage(ctx context.Context, collectionID string, image []byte, threshold float32) ([]Match, error)
}

type Rekognition struct {
	client *rekognition.Client
}

func NewRekognition(ctx context.Context, region string) (*Rekognition, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Rekognition{client: rekognition.NewFromConfig(cfg)}, nil
}

// CreateCollection treats an existing collection as success.
func (r *Rekognition) CreateCollection(ctx context.Context, collectionID string) error {
	_, err := r.client.CreateCollection(ctx, &rekognition.CreateCollectionInput{CollectionId: aws.String(collectionID)})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("create collection %s: %w", collectionID, err)
	}
	return nil
}

// DeleteCollection treats a missing collection as success.
func (r *Rekognition) DeleteCollection(ctx context.Context, collectionID string) error {
	_, err := r.client.DeleteCollection(ctx, &rekognition.DeleteCollectionInput{CollectionId: aws.String(collectionID)})
	var missing *types.ResourceNotFoundException
	if err != nil && !errors.As(err, &missing) {
		return fmt.Errorf("delete collection %s: %w", collectionID, err)
	}
	return nil
}

func (r *Rekognition) IndexFaces(ctx context.Context, collectionID, bucket, key, externalImageID string) ([]IndexedFace, error) {
	out, err := r.client.IndexFaces(ctx, &rekognition.IndexFacesInput{
		CollectionId:    aws.String(collectionID),
		Image:           &types.Image{S3Object: &types.S3Object{Bucket: aws.String(bucket), Name: aws.String(key)}},
		ExternalImageId: aws.String(externalImageID),
		MaxFaces:        aws.Int32(100),
		QualityFilter:   types.QualityFilterAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("index faces in %s: %w", key, err)
	}

	faces := make([]IndexedFace, 0, len(out.FaceRecords))
	for _, rec := range out.FaceRecords {
		if rec.Face == nil || rec.Face.FaceId == nil || rec.Face.BoundingBox == nil {
			continue
		}
		box := rec.Face.BoundingBox
		faces = append(faces, IndexedFace{
			FaceID: *rec.Face.FaceId,
			Box: Box{
				Top:    float64(aws.ToFloat32(box.Top)),
				Left:   float64(aws.ToFloat32(box.Left)),
				Width:  float64(aws.ToFloat32(box.Width)),
				Height: float64(aws.ToFloat32(box.Height)),
			},
			Confidence: float64(aws.ToFloat32(rec.Face.Confidence)),
		})
	}
	return faces, nil
}

func (r *Rekognition) SearchByFaceID(ctx context.Context, collectionID, faceID string, threshold float32) ([]Match, error) {
	out, err := r.client.SearchFaces(ctx, &rekognition.SearchFacesInput{
		CollectionId:       aws.String(collectionID),
		FaceId:             aws.String(faceID),
		MaxFaces:           aws.Int32(100),
		FaceMatchThreshold: aws.Float32(threshold),
	})
	if err != nil {
		return nil, fmt.Errorf("search faces: %w", err)
	}
	return matches(out.FaceMatches), nil
}

// SearchByImage returns no matches when the image holds no face.
func (r *Rekognition) SearchByImage(ctx context.Context, collectionID string, image []byte, threshold float32) ([]Match, error) {
	if len(image) > MaxImageBytes {
		return nil, nil
	}
	out, err := r.client.SearchFacesByImage(ctx, &rekognition.SearchFacesByImageInput{
		CollectionId:       aws.String(collectionID),
		Image:              &types.Image{Bytes: image},
		MaxFaces:           aws.Int32(5),
		FaceMatchThreshold: aws.Float32(threshold),
	})
	var invalid *types.InvalidParameterException
	if errors.As(err, &invalid) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search faces by image: %w", err)
	}
	return matches(out.FaceMatches), nil
}

func matches(in []types.FaceMatch) []Match {
	out := make([]Match, 0, len(in))
	for _, m := range in {
		if m.Face == nil || m.Face.FaceId == nil {
			continue
		}
		out = append(out, Match{FaceID: *m.Face.FaceId, Similarity: float64(aws.ToFloat32(m.Similarity))})
	}
	return out
}
