package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"civicresolve/models"
)

const queryTimeout = 10 * time.Second

// Mongo implements every repository on one database.
type Mongo struct {
	issues      *mongo.Collection
	contractors *mongo.Collection
	feedback    *mongo.Collection
	evidence    *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		issues:      db.Collection("issues"),
		contractors: db.Collection("contractors"),
		feedback:    db.Collection("feedback"),
		evidence:    db.Collection("evidence"),
	}
}

// Repositories returns m in every role.
func (m *Mongo) Repositories() Repositories {
	return Repositories{Issues: m, Contractors: m, Feedback: m, Evidence: m}
}

// EnsureIndexes creates the lookup indexes and the unique constraints: one
// contractor profile per user, one feedback per issue, one image per kind.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{m.issues, mongo.IndexModel{Keys: bson.D{{Key: "reportedBy", Value: 1}}}},
		{m.issues, mongo.IndexModel{Keys: bson.D{{Key: "assignedContractorId", Value: 1}}}},
		{m.issues, mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}}}},
		{m.contractors, mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{m.feedback, mongo.IndexModel{
			Keys:    bson.D{{Key: "issueId", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{m.evidence, mongo.IndexModel{
			Keys:    bson.D{{Key: "issueId", Value: 1}, {Key: "kind", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
	}
	for _, ix := range indexes {
		if _, err := ix.coll.Indexes().CreateOne(ctx, ix.model); err != nil {
			return fmt.Errorf("create index on %s: %w", ix.coll.Name(), err)
		}
	}
	return nil
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func (m *Mongo) FindIssues(ctx context.Context, f IssueFilter) ([]models.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{}
	if f.ReportedBy != "" {
		filter["reportedBy"] = f.ReportedBy
	}
	if f.AssignedTo != "" {
		filter["assignedContractorId"] = f.AssignedTo
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}

	order := 1
	if f.NewestFirst {
		order = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: order}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cursor, err := m.issues.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	issues := []models.Issue{}
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func (m *Mongo) FindIssue(ctx context.Context, id string) (models.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var issue models.Issue
	err := m.issues.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	return issue, notFound(err)
}

func (m *Mongo) InsertIssue(ctx context.Context, issue *models.Issue) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if issue.ID == "" {
		issue.ID = newID()
	}
	_, err := m.issues.InsertOne(ctx, issue)
	return duplicate(err)
}

func (m *Mongo) ReplaceIssue(ctx context.Context, issue models.Issue) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := m.issues.ReplaceOne(ctx, bson.M{"_id": issue.ID}, issue)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) DeleteIssue(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := m.issues.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) CountByCategory(ctx context.Context) (map[models.IssueCategory]int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	pipeline := []bson.M{
		{"$group": bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}},
	}
	cursor, err := m.issues.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Category models.IssueCategory `bson:"_id"`
		Count    int                  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[models.IssueCategory]int, len(rows))
	for _, r := range rows {
		out[r.Category] = r.Count
	}
	return out, nil
}

func (m *Mongo) Locations(ctx context.Context, limit int) ([]models.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{
			"_id": 1, "latitude": 1, "longitude": 1, "address": 1,
			"category": 1, "status": 1, "createdAt": 1,
		})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := m.issues.Find(ctx, bson.M{
		"latitude":  bson.M{"$exists": true},
		"longitude": bson.M{"$exists": true},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []models.Location{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mongo) FindContractors(ctx context.Context, approved *bool) ([]models.Contractor, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{}
	if approved != nil {
		filter["approved"] = *approved
	}
	cursor, err := m.contractors.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "fullName", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []models.Contractor{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mongo) FindContractor(ctx context.Context, id string) (models.Contractor, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c models.Contractor
	err := m.contractors.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	return c, notFound(err)
}

func (m *Mongo) FindContractorByUser(ctx context.Context, userID string) (models.Contractor, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c models.Contractor
	err := m.contractors.FindOne(ctx, bson.M{"userId": userID}).Decode(&c)
	return c, notFound(err)
}

func (m *Mongo) InsertContractor(ctx context.Context, c *models.Contractor) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if c.ID == "" {
		c.ID = newID()
	}
	_, err := m.contractors.InsertOne(ctx, c)
	return duplicate(err)
}

func (m *Mongo) SetApproved(ctx context.Context, id string, approved bool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := m.contractors.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"approved": approved}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) DeleteContractor(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := m.contractors.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) InsertFeedback(ctx context.Context, fb *models.Feedback) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if fb.ID == "" {
		fb.ID = newID()
	}
	_, err := m.feedback.InsertOne(ctx, fb)
	return duplicate(err)
}

func (m *Mongo) FindFeedback(ctx context.Context, submittedBy string) ([]models.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{}
	if submittedBy != "" {
		filter["submittedBy"] = submittedBy
	}
	cursor, err := m.feedback.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []models.Feedback{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mongo) FeedbackForIssue(ctx context.Context, issueID string) (models.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var fb models.Feedback
	err := m.feedback.FindOne(ctx, bson.M{"issueId": issueID}).Decode(&fb)
	return fb, notFound(err)
}

type evidenceDoc struct {
	IssueID     string    `bson:"issueId"`
	Kind        string    `bson:"kind"`
	Name        string    `bson:"name"`
	ContentType string    `bson:"contentType"`
	Data        []byte    `bson:"data"`
	CreatedAt   time.Time `bson:"createdAt"`
}

func (m *Mongo) SaveEvidence(ctx context.Context, issueID, kind string, up models.Upload) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	doc := evidenceDoc{
		IssueID:     issueID,
		Kind:        kind,
		Name:        up.Name,
		ContentType: up.ContentType,
		Data:        up.Data,
		CreatedAt:   time.Now(),
	}
	_, err := m.evidence.ReplaceOne(ctx,
		bson.M{"issueId": issueID, "kind": kind}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return "", err
	}
	return EvidencePath(issueID, kind), nil
}

func (m *Mongo) LoadEvidence(ctx context.Context, issueID, kind string) (models.Upload, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doc evidenceDoc
	if err := m.evidence.FindOne(ctx, bson.M{"issueId": issueID, "kind": kind}).Decode(&doc); err != nil {
		return models.Upload{}, notFound(err)
	}
	return models.Upload{Name: doc.Name, ContentType: doc.ContentType, Data: doc.Data}, nil
}

func (m *Mongo) DeleteEvidence(ctx context.Context, issueID string, kinds ...string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"issueId": issueID}
	if len(kinds) > 0 {
		filter["kind"] = bson.M{"$in": kinds}
	}
	_, err := m.evidence.DeleteMany(ctx, filter)
	return err
}
