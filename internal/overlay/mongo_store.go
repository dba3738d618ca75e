package overlay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const mongoConnectTimeout = 10 * time.Second

// mongoOverlay is the document layout in the overlays collection.
type mongoOverlay struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	StreamID string             `bson:"stream_id"`
	Text     string             `bson:"text"`
	Position Position           `bson:"position"`
	Size     Size               `bson:"size"`
	Visible  bool               `bson:"visible"`
}

func (d mongoOverlay) overlay() Overlay {
	return Overlay{
		ID:       d.ID.Hex(),
		StreamID: d.StreamID,
		Text:     d.Text,
		Position: d.Position,
		Size:     d.Size,
		Visible:  d.Visible,
	}
}

// MongoStore stores overlays as documents keyed by ObjectID.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to uri, pings the primary and makes sure the
// stream_id index exists.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "stream_id", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create stream_id index: %w", err)
	}

	return &MongoStore{client: client, collection: coll}, nil
}

// Insert implements Store.Insert.
func (s *MongoStore) Insert(ctx context.Context, o Overlay) (string, error) {
	doc := mongoOverlay{
		ID:       primitive.NewObjectID(),
		StreamID: o.StreamID,
		Text:     o.Text,
		Position: o.Position,
		Size:     o.Size,
		Visible:  o.Visible,
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert overlay: %w", err)
	}
	return doc.ID.Hex(), nil
}

// ListByStream implements Store.ListByStream.
func (s *MongoStore) ListByStream(ctx context.Context, streamID string) ([]Overlay, error) {
	cur, err := s.collection.Find(ctx, bson.M{"stream_id": streamID})
	if err != nil {
		return nil, fmt.Errorf("failed to find overlays: %w", err)
	}

	var docs []mongoOverlay
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode overlays: %w", err)
	}

	out := make([]Overlay, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.overlay())
	}
	return out, nil
}

// Update implements Store.Update.
func (s *MongoStore) Update(ctx context.Context, id string, p Patch) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": patchToSet(p)})
	if err != nil {
		return fmt.Errorf("failed to update overlay: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements Store.Delete.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete overlay: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close implements Store.Close.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// parseObjectID treats an id that is not a valid ObjectID as unknown.
func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errors.Join(ErrNotFound, err)
	}
	return oid, nil
}

// patchToSet builds the $set document for a patch. An empty $set is
// rejected by the server, so callers never pass an empty patch.
func patchToSet(p Patch) bson.M {
	set := bson.M{}
	if p.Text != nil {
		set["text"] = *p.Text
	}
	if p.Position != nil {
		set["position"] = *p.Position
	}
	if p.Size != nil {
		set["size"] = *p.Size
	}
	if p.Visible != nil {
		set["visible"] = *p.Visible
	}
	return set
}
