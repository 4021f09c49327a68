package models

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrUserNotFound = fmt.Errorf("User not found: %w", ErrNotFound)

type UserRepo interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByEmailOrUsername(ctx context.Context, identifier string) (*User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*User, error)
	ListUsers(ctx context.Context, offset, limit int64) ([]*User, int64, error)
	SetOTP(ctx context.Context, id primitive.ObjectID, otp string, expiry time.Time) error
	// ConsumeOTP marks the user verified and clears the OTP, but only while
	// the stored code still equals otp. It reports whether the code matched.
	ConsumeOTP(ctx context.Context, id primitive.ObjectID, otp string) (bool, error)
	// ResetPassword swaps the hash under the same stored-code condition.
	ResetPassword(ctx context.Context, id primitive.ObjectID, otp, passwordHash string) (bool, error)
	// AddFollow records follower -> target on both documents. It reports
	// false when follower already followed target.
	AddFollow(ctx context.Context, followerID, targetID primitive.ObjectID) (bool, error)
	RemoveFromFollowGraph(ctx context.Context, id primitive.ObjectID) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
}

func (mdb *MongodbRepo) CreateUser(ctx context.Context, user *User) error {
	col, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	if _, err := col.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateFromMongo(err)
		}
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}

var dupIndexRe = regexp.MustCompile(`index: (\S+)`)

// indexFields maps unique index names to the field they guard.
var indexFields = map[string]string{
	"username_unique": "username",
	"email_unique":    "email",
}

// duplicateFromMongo names the conflicting field from the server's
// keyValue document, falling back to the index named in the message.
func duplicateFromMongo(err error) error {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if field := keyValueField(e.Raw); field != "" {
				return &DuplicateError{Field: field}
			}
			if field := indexField(e.Message); field != "" {
				return &DuplicateError{Field: field}
			}
		}
	}
	return &DuplicateError{Field: indexField(err.Error())}
}

func keyValueField(raw bson.Raw) string {
	if len(raw) == 0 {
		return ""
	}
	val, err := raw.LookupErr("keyValue")
	if err != nil {
		return ""
	}
	doc, ok := val.DocumentOK()
	if !ok {
		return ""
	}
	elems, err := doc.Elements()
	if err != nil || len(elems) == 0 {
		return ""
	}
	return elems[0].Key()
}

func indexField(msg string) string {
	m := dupIndexRe.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	return indexFields[m[1]]
}

func (mdb *MongodbRepo) findOneUser(ctx context.Context, filter bson.M) (*User, error) {
	col, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var user User
	if err := col.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}
	return &user, nil
}

func (mdb *MongodbRepo) GetUserByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	return mdb.findOneUser(ctx, bson.M{"_id": id})
}

func (mdb *MongodbRepo) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return mdb.findOneUser(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (mdb *MongodbRepo) GetUserByEmailOrUsername(ctx context.Context, identifier string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	return mdb.findOneUser(ctx, bson.M{"$or": bson.A{
		bson.M{"email": strings.ToLower(identifier)},
		bson.M{"username": identifier},
	}})
}

func (mdb *MongodbRepo) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*User, error) {
	if len(ids) == 0 {
		return []*User{}, nil
	}
	col, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	cursor, err := col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("error finding users: %w", err)
	}
	return decodeUsers(ctx, cursor)
}

func (mdb *MongodbRepo) ListUsers(ctx context.Context, offset, limit int64) ([]*User, int64, error) {
	col, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}

	total, err := col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("error counting users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(offset).
		SetLimit(limit)

	cursor, err := col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing users: %w", err)
	}
	users, err := decodeUsers(ctx, cursor)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func decodeUsers(ctx context.Context, cursor *mongo.Cursor) ([]*User, error) {
	defer cursor.Close(ctx)

	users := []*User{}
	for cursor.Next(ctx) {
		var user User
		if err := cursor.Decode(&user); err != nil {
			return nil, fmt.Errorf("error decoding user: %w", err)
		}
		users = append(users, &user)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return users, nil
}

func (mdb *MongodbRepo) SetOTP(ctx context.Context, id primitive.ObjectID, otp string, expiry time.Time) error {
	col, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	res, err := col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"otp":       otp,
			"otpExpiry": expiry,
			"updatedAt": time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("error storing otp: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (mdb *MongodbRepo) ConsumeOTP(ctx context.Context, id primitive.ObjectID, otp string) (bool, error) {
	col, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}

	res, err := col.UpdateOne(ctx, bson.M{"_id": id, "otp": otp}, bson.M{
		"$set":   bson.M{"otpVerified": true, "updatedAt": time.Now()},
		"$unset": bson.M{"otp": "", "otpExpiry": ""},
	})
	if err != nil {
		return false, fmt.Errorf("error consuming otp: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (mdb *MongodbRepo) ResetPassword(ctx context.Context, id primitive.ObjectID, otp, passwordHash string) (bool, error) {
	col, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}

	res, err := col.UpdateOne(ctx, bson.M{"_id": id, "otp": otp}, bson.M{
		"$set":   bson.M{"passwordHash": passwordHash, "updatedAt": time.Now()},
		"$unset": bson.M{"otp": "", "otpExpiry": ""},
	})
	if err != nil {
		return false, fmt.Errorf("error resetting password: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (mdb *MongodbRepo) AddFollow(ctx context.Context, followerID, targetID primitive.ObjectID) (bool, error) {
	if !mdb.transactions {
		return mdb.addFollow(ctx, followerID, targetID)
	}

	session, err := mdb.mongodbClient.StartSession()
	if err != nil {
		return false, fmt.Errorf("error starting session: %w", err)
	}
	defer session.EndSession(ctx)

	added, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return mdb.addFollow(sc, followerID, targetID)
	})
	if err != nil {
		return false, err
	}
	return added.(bool), nil
}

type followWrite struct {
	filter bson.M
	update bson.M
}

// followWrites builds the two guarded updates for follower -> target. Each
// side only matches while its edge is missing, so a repeat follow leaves
// both documents untouched. The followers side still repairs a pair left
// half-written.
func followWrites(followerID, targetID primitive.ObjectID, now time.Time) (following, followers followWrite) {
	following = followWrite{
		filter: bson.M{"_id": followerID, "following": bson.M{"$ne": targetID}},
		update: bson.M{
			"$addToSet": bson.M{"following": targetID},
			"$set":      bson.M{"updatedAt": now},
		},
	}
	followers = followWrite{
		filter: bson.M{"_id": targetID, "followers": bson.M{"$ne": followerID}},
		update: bson.M{
			"$addToSet": bson.M{"followers": followerID},
			"$set":      bson.M{"updatedAt": now},
		},
	}
	return following, followers
}

// addFollow writes the following side first. Only one of two concurrent
// calls matches its guard, so only one reports the edge as new.
func (mdb *MongodbRepo) addFollow(ctx context.Context, followerID, targetID primitive.ObjectID) (bool, error) {
	col, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}
	following, followers := followWrites(followerID, targetID, time.Now())

	res, err := col.UpdateOne(ctx, following.filter, following.update)
	if err != nil {
		return false, fmt.Errorf("error updating following: %w", err)
	}

	if _, err := col.UpdateOne(ctx, followers.filter, followers.update); err != nil {
		return false, fmt.Errorf("error updating followers: %w", err)
	}

	return res.ModifiedCount == 1, nil
}

func (mdb *MongodbRepo) RemoveFromFollowGraph(ctx context.Context, id primitive.ObjectID) error {
	col, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	_, err = col.UpdateMany(ctx,
		bson.M{"$or": bson.A{bson.M{"followers": id}, bson.M{"following": id}}},
		bson.M{"$pull": bson.M{"followers": id, "following": id}},
	)
	if err != nil {
		return fmt.Errorf("error removing user from follow graph: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	col, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
