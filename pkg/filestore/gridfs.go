package filestore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"freight-service/pkg/logger"
)

const (
	gridfsPrefix = "gridfs:"
	bucketName   = "documents"
	opTimeout    = 30 * time.Second
)

// GridFS stores documents in a MongoDB GridFS bucket.
type GridFS struct {
	client *mongo.Client
	bucket *gridfs.Bucket
}

// ConnectGridFS dials MongoDB and opens the documents bucket.
func ConnectGridFS(ctx context.Context, uri, database string, log logger.ILogger) (*GridFS, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	bucket, err := gridfs.NewBucket(client.Database(database), options.GridFSBucket().SetName(bucketName))
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	log.Info("connected to MongoDB GridFS", logger.String("database", database))
	return &GridFS{client: client, bucket: bucket}, nil
}

func deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(opTimeout)
}

func (g *GridFS) Save(ctx context.Context, ownerID, role, filename string, r io.Reader) (string, error) {
	if err := g.bucket.SetWriteDeadline(deadline(ctx)); err != nil {
		return "", err
	}
	opts := options.GridFSUpload().SetMetadata(bson.M{"owner": ownerID, "role": role})
	id, err := g.bucket.UploadFromStream(role+"/"+ownerID+"/"+cleanName(filename), r, opts)
	if err != nil {
		return "", fmt.Errorf("upload document: %w", err)
	}
	return gridfsPrefix + id.Hex(), nil
}

func (g *GridFS) Delete(ctx context.Context, ref string) error {
	if !strings.HasPrefix(ref, gridfsPrefix) {
		return fmt.Errorf("not a gridfs reference: %q", ref)
	}
	id, err := primitive.ObjectIDFromHex(strings.TrimPrefix(ref, gridfsPrefix))
	if err != nil {
		return err
	}
	if err := g.bucket.SetWriteDeadline(deadline(ctx)); err != nil {
		return err
	}
	return g.bucket.Delete(id)
}

// Close disconnects the MongoDB client.
func (g *GridFS) Close(ctx context.Context) error {
	return g.client.Disconnect(ctx)
}
