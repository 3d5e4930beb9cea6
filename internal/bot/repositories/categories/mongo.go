package categories

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filestash/internal/bot/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UsersCollection holds one document per user:
//
//	{"_id": "<user id>", "categories": {"<name>": [{"message_id": 1, "file_type": "photo"}]}}
const UsersCollection = "users"

// MongoRepository stores each user as a single document and mutates
// categories with $push, $set and $unset on "categories.<name>". Field order
// inside "categories" is the insertion order.
type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(UsersCollection)}
}

type mongoUser struct {
	ID         string   `bson:"_id"`
	Categories bson.Raw `bson:"categories,omitempty"`
}

func (u *mongoUser) document() (*models.UserDocument, error) {
	doc := &models.UserDocument{ID: u.ID, Categories: models.Categories{}}
	if len(u.Categories) == 0 {
		return doc, nil
	}

	elems, err := u.Categories.Elements()
	if err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	for _, e := range elems {
		arr, ok := e.Value().ArrayOK()
		if !ok {
			continue
		}
		values, err := arr.Values()
		if err != nil {
			return nil, fmt.Errorf("decode category %q: %w", e.Key(), err)
		}
		files := make([]models.FileRecord, 0, len(values))
		for _, v := range values {
			var rec models.FileRecord
			if err := v.Unmarshal(&rec); err != nil {
				return nil, fmt.Errorf("decode file in %q: %w", e.Key(), err)
			}
			rec.Kind = models.ParseFileKind(string(rec.Kind))
			files = append(files, rec)
		}
		doc.Categories = append(doc.Categories, models.Category{Name: e.Key(), Files: files})
	}
	return doc, nil
}

func categoryPath(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return "categories." + name, nil
}

// provision loads the user's document, inserting an empty one on first use.
func (r *MongoRepository) provision(ctx context.Context, userID string) (*mongoUser, error) {
	var u mongoUser
	err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&u)
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	_, err = r.coll.InsertOne(ctx, bson.D{{Key: "_id", Value: userID}, {Key: "categories", Value: bson.D{}}})
	if err == nil {
		return &mongoUser{ID: userID}, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, err
	}
	// lost the insert race; the other writer's document is authoritative
	if err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *MongoRepository) ListCategories(ctx context.Context, userID string) ([]string, error) {
	doc, err := r.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return doc.Categories.Names(), nil
}

func (r *MongoRepository) CreateCategory(ctx context.Context, userID, name string) (bool, error) {
	path, err := categoryPath(name)
	if err != nil {
		return false, err
	}
	if _, err := r.provision(ctx, userID); err != nil {
		return false, unavailable("create category", err)
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID, path: bson.M{"$exists": false}},
		bson.M{"$set": bson.M{path: bson.A{}}})
	if err != nil {
		return false, unavailable("create category", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoRepository) AddFile(ctx context.Context, userID, category string, rec models.FileRecord) (bool, error) {
	path, err := categoryPath(category)
	if err != nil {
		return false, err
	}
	if _, err := r.provision(ctx, userID); err != nil {
		return false, unavailable("add file", err)
	}

	// $push creates the array when the category is missing; the $ne guard
	// makes a redelivered record a no-op.
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID, path + ".message_id": bson.M{"$ne": rec.MessageID}},
		bson.M{"$push": bson.M{path: rec}})
	if err != nil {
		return false, unavailable("add file", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoRepository) ListFiles(ctx context.Context, userID, category string) ([]models.FileRecord, error) {
	doc, err := r.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	cat, ok := doc.Categories.Find(category)
	if !ok {
		return []models.FileRecord{}, nil
	}
	return cat.Files, nil
}

func (r *MongoRepository) DeleteCategory(ctx context.Context, userID, category string) (bool, error) {
	path, err := categoryPath(category)
	if err != nil {
		return false, nil
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID, path: bson.M{"$exists": true}},
		bson.M{"$unset": bson.M{path: ""}})
	if err != nil {
		return false, unavailable("delete category", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoRepository) GetUser(ctx context.Context, userID string) (*models.UserDocument, error) {
	u, err := r.provision(ctx, userID)
	if err != nil {
		return nil, unavailable("get user", err)
	}
	return u.document()
}

func (r *MongoRepository) ExportUsers(ctx context.Context) ([]models.UserDocument, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, unavailable("export users", err)
	}
	defer cur.Close(ctx)

	var out []models.UserDocument
	for cur.Next(ctx) {
		var u mongoUser
		if err := cur.Decode(&u); err != nil {
			return nil, fmt.Errorf("export users: %w", err)
		}
		doc, err := u.document()
		if err != nil {
			return nil, fmt.Errorf("export users: %w", err)
		}
		out = append(out, *doc)
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable("export users", err)
	}
	return out, nil
}

func (r *MongoRepository) ReplaceUser(ctx context.Context, doc models.UserDocument) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, toBSON(doc), options.Replace().SetUpsert(true))
	if err != nil {
		return unavailable("replace user", err)
	}
	return nil
}

func toBSON(doc models.UserDocument) bson.D {
	cats := make(bson.D, 0, len(doc.Categories))
	for _, c := range doc.Categories {
		files := c.Files
		if files == nil {
			files = []models.FileRecord{}
		}
		cats = append(cats, bson.E{Key: c.Name, Value: files})
	}
	return bson.D{{Key: "_id", Value: doc.ID}, {Key: "categories", Value: cats}}
}
