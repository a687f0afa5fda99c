package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const imageBucket = "product-images"

var (
	ErrImageNotFound = errors.New("image not found")
	ErrEmptyImage    = errors.New("image name is empty")

	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// ImageStore keeps product photos in a GridFS bucket and hands out public URLs.
type ImageStore struct {
	db      *mongo.Database
	baseURL string
	now     func() time.Time
}

type Image struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

func NewImageStore(db *mongo.Database, publicBaseURL string) *ImageStore {
	return &ImageStore{
		db:      db,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		now:     time.Now,
	}
}

// Upload stores the payload under a timestamp-prefixed name and returns its public URL.
func (s *ImageStore) Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	clean := SanitizeImageName(name)
	if clean == "" {
		return "", ErrEmptyImage
	}
	stored := fmt.Sprintf("%d-%s", s.now().UnixMilli(), clean)

	bucket, err := s.bucket(ctx)
	if err != nil {
		return "", err
	}

	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "content_type", Value: contentType}})
	if _, err := bucket.UploadFromStream(stored, body, opts); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return s.PublicURL(stored), nil
}

// Open streams a stored image. The caller closes Body.
func (s *ImageStore) Open(ctx context.Context, name string) (*Image, error) {
	bucket, err := s.bucket(ctx)
	if err != nil {
		return nil, err
	}

	stream, err := bucket.OpenDownloadStreamByName(name)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	file := stream.GetFile()
	img := &Image{Name: name, Size: file.Length, Body: stream, ContentType: "application/octet-stream"}
	if ct, ok := file.Metadata.Lookup("content_type").StringValueOK(); ok && ct != "" {
		img.ContentType = ct
	}
	return img, nil
}

func (s *ImageStore) PublicURL(stored string) string {
	return s.baseURL + "/images/" + stored
}

// bucket handles are per call because GridFS deadlines are set on the bucket.
func (s *ImageStore) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(imageBucket))
	if err != nil {
		return nil, fmt.Errorf("failed to open image bucket: %w", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		if err := bucket.SetWriteDeadline(dl); err != nil {
			return nil, err
		}
		if err := bucket.SetReadDeadline(dl); err != nil {
			return nil, err
		}
	}
	return bucket, nil
}

func SanitizeImageName(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.Trim(unsafeChars.ReplaceAllString(base, "-"), "-.")
}
