package database

import (
	"context"
	"regexp"
	"time"

	"github.com/mdouchement/itemtrack/internal/model"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	itemsCollection    = "items"
	sessionsCollection = "sessions"
)

type (
	mgo struct {
		client   *mongo.Client
		users    *mongo.Collection
		items    *mongo.Collection
		sessions *mongo.Collection
	}

	userDocument struct {
		ID        primitive.ObjectID `bson:"_id"`
		Name      string             `bson:"name"`
		Email     string             `bson:"email"`
		Password  string             `bson:"password"`
		Role      string             `bson:"role"`
		CreatedAt time.Time          `bson:"createdAt"`
		UpdatedAt time.Time          `bson:"updatedAt"`
	}

	itemDocument struct {
		ID          primitive.ObjectID `bson:"_id"`
		Title       string             `bson:"title"`
		Description string             `bson:"description"`
		Status      string             `bson:"status"`
		UserID      primitive.ObjectID `bson:"userId"`
		CreatedAt   time.Time          `bson:"createdAt"`
		UpdatedAt   time.Time          `bson:"updatedAt"`
	}

	sessionDocument struct {
		ID        primitive.ObjectID `bson:"_id"`
		UserID    primitive.ObjectID `bson:"userId"`
		UserAgent string             `bson:"userAgent"`
		Token     string             `bson:"token"`
		ExpireAt  time.Time          `bson:"expireAt"`
		CreatedAt time.Time          `bson:"createdAt"`
		UpdatedAt time.Time          `bson:"updatedAt"`
	}
)

// MongoOpen returns a new MongoDB connection.
// The collections share the layout of the documents written by the former Node.js application.
func MongoOpen(url, name string) (Client, error) {
	if url == "" {
		return nil, errors.New("missing mongo url")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}
	if err = client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "could not reach database")
	}

	db := client.Database(name)
	c := &mgo{
		client:   client,
		users:    db.Collection(usersCollection),
		items:    db.Collection(itemsCollection),
		sessions: db.Collection(sessionsCollection),
	}

	if err = c.init(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	return c, nil
}

func (c *mgo) init(ctx context.Context) error {
	_, err := c.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Wrap(err, "could not init user index")
	}

	_, err = c.items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "title", Value: 1}}},
	})
	if err != nil {
		return errors.Wrap(err, "could not init item indexes")
	}

	_, err = c.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	})
	return errors.Wrap(err, "could not init session indexes")
}

// Save inserts or updates the entry in database with the given model.
func (c *mgo) Save(m model.Model) error {
	t := time.Now().UTC()
	m.SetUpdatedAt(t)

	if m.GetID() == "" {
		m.SetID(primitive.NewObjectID().Hex())
		m.SetCreatedAt(t)
	}

	var (
		collection *mongo.Collection
		document   any
	)
	switch v := m.(type) {
	case *model.User:
		collection, document = c.users, toUserDocument(v)
	case *model.Item:
		collection, document = c.items, toItemDocument(v)
	case *model.Session:
		collection, document = c.sessions, toSessionDocument(v)
	default:
		return errors.Errorf("unsupported model %T", m)
	}

	id, err := primitive.ObjectIDFromHex(m.GetID())
	if err != nil {
		return errors.Wrap(err, "invalid model id")
	}

	_, err = collection.ReplaceOne(context.Background(), bson.M{"_id": id}, document, options.Replace().SetUpsert(true))
	return errors.Wrap(err, "could not save the model")
}

// Delete deletes the entry in database with the given model.
func (c *mgo) Delete(m model.Model) error {
	var collection *mongo.Collection
	switch m.(type) {
	case *model.User:
		collection = c.users
	case *model.Item:
		collection = c.items
	case *model.Session:
		collection = c.sessions
	default:
		return errors.Errorf("unsupported model %T", m)
	}

	return errors.Wrap(c.deleteOne(collection, m.GetID()), "could not delete the model")
}

// Close the database.
func (c *mgo) Close() error {
	return c.client.Disconnect(context.Background())
}

// IsNotFound returns true if err is a not found error.
func (c *mgo) IsNotFound(err error) bool {
	return errors.Cause(err) == mongo.ErrNoDocuments
}

// IsAlreadyExists returns true if err is a unique constraint violation.
func (c *mgo) IsAlreadyExists(err error) bool {
	return mongo.IsDuplicateKeyError(errors.Cause(err))
}

// FindUser returns the user for the given id.
func (c *mgo) FindUser(id string) (*model.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, errors.Wrap(err, "find user by id")
	}
	return c.findUser(bson.M{"_id": oid}, "find user by id")
}

// FindUserByMail returns the user for the given email.
func (c *mgo) FindUserByMail(email string) (*model.User, error) {
	return c.findUser(bson.M{"email": model.NormalizeEmail(email)}, "find user by mail")
}

// FindUserByIdentifier returns the user matching the given email or, failing that, name.
func (c *mgo) FindUserByIdentifier(identifier string) (*model.User, error) {
	user, err := c.FindUserByMail(identifier)
	if err == nil || !c.IsNotFound(err) {
		return user, err
	}
	return c.findUser(bson.M{"name": identifier}, "find user by name")
}

func (c *mgo) findUser(filter bson.M, msg string) (*model.User, error) {
	var doc userDocument
	if err := c.users.FindOne(context.Background(), filter).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, msg)
	}
	return doc.model(), nil
}

// FindUsersByIDs returns the users for the given ids.
func (c *mgo) FindUsersByIDs(ids []string) ([]*model.User, error) {
	users := make([]*model.User, 0)

	oids := objectIDs(distinct(ids))
	if len(oids) == 0 {
		return users, nil
	}

	var docs []userDocument
	if err := c.findAll(c.users, bson.M{"_id": bson.M{"$in": oids}}, nil, &docs); err != nil {
		return nil, errors.Wrap(err, "could not find users by ids")
	}

	for _, doc := range docs {
		users = append(users, doc.model())
	}
	return users, nil
}

// FindSession returns the session for the given id.
func (c *mgo) FindSession(id string) (*model.Session, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, errors.Wrap(err, "find session by id")
	}
	return c.findSession(bson.M{"_id": oid}, "find session by id")
}

// FindSessionByUserID returns the session for the given id and user id.
func (c *mgo) FindSessionByUserID(id, userID string) (*model.Session, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, errors.Wrap(err, "find session by id and user id")
	}
	uid, err := objectID(userID)
	if err != nil {
		return nil, errors.Wrap(err, "find session by id and user id")
	}
	return c.findSession(bson.M{"_id": oid, "userId": uid}, "find session by id and user id")
}

func (c *mgo) findSession(filter bson.M, msg string) (*model.Session, error) {
	var doc sessionDocument
	if err := c.sessions.FindOne(context.Background(), filter).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, msg)
	}
	return doc.model(), nil
}

// FindSessionsByUserID returns all active sessions for the given user id.
func (c *mgo) FindSessionsByUserID(userID string) ([]*model.Session, error) {
	sessions := make([]*model.Session, 0)

	uid, err := objectID(userID)
	if err != nil {
		return sessions, nil
	}

	var docs []sessionDocument
	filter := bson.M{"userId": uid, "expireAt": bson.M{"$gt": time.Now()}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if err := c.findAll(c.sessions, filter, opts, &docs); err != nil {
		return nil, errors.Wrap(err, "could not find sessions by user id")
	}

	for _, doc := range docs {
		sessions = append(sessions, doc.model())
	}
	return sessions, nil
}

// RevokeExpiredSessions removes from database all the expired sessions.
func (c *mgo) RevokeExpiredSessions() error {
	_, err := c.sessions.DeleteMany(context.Background(), bson.M{"expireAt": bson.M{"$lte": time.Now()}})
	return errors.Wrap(err, "could not revoke expired sessions")
}

// DeleteSessionsByUserID removes all the sessions of the given user.
func (c *mgo) DeleteSessionsByUserID(userID string) error {
	uid, err := objectID(userID)
	if err != nil {
		return nil
	}

	_, err = c.sessions.DeleteMany(context.Background(), bson.M{"userId": uid})
	return errors.Wrap(err, "could not delete sessions by user id")
}

// FindItem returns the item for the given id.
func (c *mgo) FindItem(id string) (*model.Item, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, errors.Wrap(err, "could not find item")
	}

	var doc itemDocument
	if err := c.items.FindOne(context.Background(), bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "could not find item")
	}
	return doc.model(), nil
}

// FindItems returns a page of the items matching the given filter, newest first.
func (c *mgo) FindItems(filter ItemFilter, page, limit int) ([]*model.Item, int, error) {
	items := make([]*model.Item, 0)
	query := bson.M{}

	if filter.UserID != "" {
		uid, err := objectID(filter.UserID)
		if err != nil {
			// No document can reference a malformed id.
			return items, 0, nil
		}
		query["userId"] = uid
	}

	if filter.Status != "" {
		query["status"] = filter.Status
	}

	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}

	ctx := context.Background()
	total, err := c.items.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, errors.Wrap(err, "could not count items")
	}

	skip := Offset(page, limit)
	if int64(skip) >= total {
		return items, int(total), nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(skip))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	var docs []itemDocument
	if err := c.findAll(c.items, query, opts, &docs); err != nil {
		return nil, 0, errors.Wrap(err, "could not find items")
	}

	for _, doc := range docs {
		items = append(items, doc.model())
	}
	return items, int(total), nil
}

// DeleteItem deletes the item for the given id.
func (c *mgo) DeleteItem(id string) error {
	return errors.Wrap(c.deleteOne(c.items, id), "could not delete item")
}

// DeleteItemsByUserID deletes all the items of the given user.
func (c *mgo) DeleteItemsByUserID(userID string) error {
	uid, err := objectID(userID)
	if err != nil {
		return nil
	}

	_, err = c.items.DeleteMany(context.Background(), bson.M{"userId": uid})
	return errors.Wrap(err, "could not delete items by user id")
}

func (c *mgo) deleteOne(collection *mongo.Collection, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	result, err := collection.DeleteOne(context.Background(), bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (c *mgo) findAll(collection *mongo.Collection, filter any, opts *options.FindOptions, docs any) error {
	ctx := context.Background()

	var findopts []*options.FindOptions
	if opts != nil {
		findopts = append(findopts, opts)
	}

	cursor, err := collection.Find(ctx, filter, findopts...)
	if err != nil {
		return err
	}
	return cursor.All(ctx, docs)
}

//
// Conversions
//

// objectID parses the given hex id. A malformed id can not match any document.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return oid, mongo.ErrNoDocuments
	}
	return oid, nil
}

func objectIDs(ids []string) []primitive.ObjectID {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	return oids
}

func timestamp(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func toBase(id primitive.ObjectID, createdAt, updatedAt time.Time) model.Base {
	var base model.Base
	base.SetID(id.Hex())
	base.SetCreatedAt(createdAt)
	base.SetUpdatedAt(updatedAt)
	return base
}

func toUserDocument(m *model.User) *userDocument {
	id, _ := primitive.ObjectIDFromHex(m.ID)
	return &userDocument{
		ID:        id,
		Name:      m.Name,
		Email:     m.Email,
		Password:  m.Password,
		Role:      m.Role,
		CreatedAt: timestamp(m.CreatedAt),
		UpdatedAt: timestamp(m.UpdatedAt),
	}
}

func (d *userDocument) model() *model.User {
	return &model.User{
		Base:     toBase(d.ID, d.CreatedAt, d.UpdatedAt),
		Name:     d.Name,
		Email:    d.Email,
		Password: d.Password,
		Role:     d.Role,
	}
}

func toItemDocument(m *model.Item) *itemDocument {
	id, _ := primitive.ObjectIDFromHex(m.ID)
	uid, _ := primitive.ObjectIDFromHex(m.UserID)
	return &itemDocument{
		ID:          id,
		Title:       m.Title,
		Description: m.Description,
		Status:      m.Status,
		UserID:      uid,
		CreatedAt:   timestamp(m.CreatedAt),
		UpdatedAt:   timestamp(m.UpdatedAt),
	}
}

func (d *itemDocument) model() *model.Item {
	return &model.Item{
		Base:        toBase(d.ID, d.CreatedAt, d.UpdatedAt),
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		UserID:      d.UserID.Hex(),
	}
}

func toSessionDocument(m *model.Session) *sessionDocument {
	id, _ := primitive.ObjectIDFromHex(m.ID)
	uid, _ := primitive.ObjectIDFromHex(m.UserID)
	return &sessionDocument{
		ID:        id,
		UserID:    uid,
		UserAgent: m.UserAgent,
		Token:     m.Token,
		ExpireAt:  m.ExpireAt,
		CreatedAt: timestamp(m.CreatedAt),
		UpdatedAt: timestamp(m.UpdatedAt),
	}
}

func (d *sessionDocument) model() *model.Session {
	return &model.Session{
		Base:      toBase(d.ID, d.CreatedAt, d.UpdatedAt),
		UserID:    d.UserID.Hex(),
		UserAgent: d.UserAgent,
		Token:     d.Token,
		ExpireAt:  d.ExpireAt,
	}
}
