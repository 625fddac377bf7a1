package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/address-audit/app/models"
)

// Mongo implements Repository over one MongoDB database, one collection per
// logical table.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongo connects and pings the server. uri is the db_path config value,
// e.g. "mongodb://localhost:27017/address_audit"; the database name comes
// from the URI path and defaults to "address_audit".
func NewMongo(ctx context.Context, uri string, logger *zap.Logger) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	m := &Mongo{client: client, db: client.Database(databaseName(uri)), logger: logger}
	m.ensureIndexes(ctx)
	logger.Info("connected to mongodb", zap.String("database", m.db.Name()))
	return m, nil
}

func databaseName(uri string) string {
	if u, err := url.Parse(uri); err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return "address_audit"
}

// ensureIndexes creates the key indexes. Failures only warn; the store works
// without them, just slower.
func (m *Mongo) ensureIndexes(ctx context.Context) {
	unique := options.Index().SetUnique(true)
	specs := map[string]mongo.IndexModel{
		ColAddressRecords:  {Keys: bson.D{{Key: "rid", Value: 1}}, Options: unique},
		ColParsedAddresses: {Keys: bson.D{{Key: "rid", Value: 1}}, Options: unique},
		ColRoads:           {Keys: bson.D{{Key: "road_id", Value: 1}}, Options: unique},
		ColPOIs:            {Keys: bson.D{{Key: "poi_id", Value: 1}}, Options: unique},
		ColAnchors:         {Keys: bson.D{{Key: "key_text", Value: 1}}},
		ColMatchLogs:       {Keys: bson.D{{Key: "rid_query", Value: 1}}},
		ColPairLabels:      {Keys: bson.D{{Key: "rid1", Value: 1}, {Key: "rid2", Value: 1}}},
	}
	idxCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	for col, spec := range specs {
		if _, err := m.db.Collection(col).Indexes().CreateOne(idxCtx, spec); err != nil {
			m.logger.Warn("create index failed", zap.String("collection", col), zap.Error(err))
		}
	}
}

func (m *Mongo) upsert(ctx context.Context, col string, filter bson.M, doc interface{}) error {
	_, err := m.db.Collection(col).ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", col, err)
	}
	return nil
}

func (m *Mongo) UpsertRecord(ctx context.Context, rec *models.AddressRecord) error {
	r := *rec
	var existing models.AddressRecord
	err := m.db.Collection(ColAddressRecords).
		FindOne(ctx, bson.M{"rid": r.RID}).Decode(&existing)
	switch {
	case err == nil:
		r.CreatedAt = existing.CreatedAt
	case err == mongo.ErrNoDocuments:
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
	default:
		return fmt.Errorf("lookup record %s: %w", r.RID, err)
	}
	return m.upsert(ctx, ColAddressRecords, bson.M{"rid": r.RID}, r)
}

func (m *Mongo) ListRecords(ctx context.Context) ([]models.AddressRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "rid", Value: 1}})
	cur, err := m.db.Collection(ColAddressRecords).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	var out []models.AddressRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return out, nil
}

func (m *Mongo) GetRecord(ctx context.Context, rid string) (*models.AddressRecord, error) {
	var rec models.AddressRecord
	err := m.db.Collection(ColAddressRecords).FindOne(ctx, bson.M{"rid": rid}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", rid, err)
	}
	return &rec, nil
}

// parsedDoc wraps ParsedAddress with its owning rid for storage.
type parsedDoc struct {
	RID                  string `bson:"rid"`
	models.ParsedAddress `bson:",inline"`
}

func (m *Mongo) UpsertParsed(ctx context.Context, rid string, p *models.ParsedAddress) error {
	doc := parsedDoc{RID: rid, ParsedAddress: *p}
	if doc.ParsedAt.IsZero() {
		doc.ParsedAt = time.Now().UTC()
	}
	return m.upsert(ctx, ColParsedAddresses, bson.M{"rid": rid}, doc)
}

func (m *Mongo) GetParsed(ctx context.Context, rid string) (*models.ParsedAddress, error) {
	var doc parsedDoc
	err := m.db.Collection(ColParsedAddresses).FindOne(ctx, bson.M{"rid": rid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get parsed %s: %w", rid, err)
	}
	p := doc.ParsedAddress
	return &p, nil
}

func (m *Mongo) UpsertRoad(ctx context.Context, road *models.Road) error {
	return m.upsert(ctx, ColRoads, bson.M{"road_id": road.RoadID}, road)
}

func (m *Mongo) ListRoads(ctx context.Context) ([]models.Road, error) {
	cur, err := m.db.Collection(ColRoads).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list roads: %w", err)
	}
	var out []models.Road
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode roads: %w", err)
	}
	return out, nil
}

func (m *Mongo) UpsertPOI(ctx context.Context, poi *models.POI) error {
	return m.upsert(ctx, ColPOIs, bson.M{"poi_id": poi.POIID}, poi)
}

func (m *Mongo) ListPOIs(ctx context.Context) ([]models.POI, error) {
	cur, err := m.db.Collection(ColPOIs).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list pois: %w", err)
	}
	var out []models.POI
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode pois: %w", err)
	}
	return out, nil
}

func (m *Mongo) UpsertAnchor(ctx context.Context, anc *models.Anchor) error {
	return m.upsert(ctx, ColAnchors, bson.M{"anchor_id": anc.AnchorID}, anc)
}

func (m *Mongo) FindAnchorByKey(ctx context.Context, keyText string) (*models.Anchor, error) {
	var anc models.Anchor
	err := m.db.Collection(ColAnchors).FindOne(ctx, bson.M{"key_text": keyText}).Decode(&anc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find anchor %q: %w", keyText, err)
	}
	return &anc, nil
}

func (m *Mongo) InsertConflicts(ctx context.Context, conflicts []models.Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(conflicts))
	now := time.Now().UTC()
	for _, c := range conflicts {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		docs = append(docs, c)
	}
	if _, err := m.db.Collection(ColConflicts).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert conflicts: %w", err)
	}
	return nil
}

func (m *Mongo) InsertMatchLog(ctx context.Context, log *models.MatchLog) error {
	l := *log
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if _, err := m.db.Collection(ColMatchLogs).InsertOne(ctx, l); err != nil {
		return fmt.Errorf("insert match log: %w", err)
	}
	return nil
}

func (m *Mongo) WriteClusters(ctx context.Context, clusters map[string][]string) error {
	col := m.db.Collection(ColClusters)
	if _, err := col.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear clusters: %w", err)
	}
	var docs []interface{}
	for cid, rids := range clusters {
		for _, rid := range rids {
			docs = append(docs, ClusterRow{ClusterID: cid, RID: rid})
		}
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := col.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("write clusters: %w", err)
	}
	return nil
}

func (m *Mongo) ListClusters(ctx context.Context) ([]ClusterRow, error) {
	opts := options.Find().SetSort(bson.D{{Key: "cluster_id", Value: 1}, {Key: "rid", Value: 1}})
	cur, err := m.db.Collection(ColClusters).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	var out []ClusterRow
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode clusters: %w", err)
	}
	return out, nil
}

func (m *Mongo) InsertPairLabels(ctx context.Context, labels []models.PairLabel) error {
	if len(labels) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(labels))
	for _, l := range labels {
		docs = append(docs, l)
	}
	if _, err := m.db.Collection(ColPairLabels).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert pair labels: %w", err)
	}
	return nil
}

func (m *Mongo) ListPairLabels(ctx context.Context) ([]models.PairLabel, error) {
	cur, err := m.db.Collection(ColPairLabels).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list pair labels: %w", err)
	}
	var out []models.PairLabel
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode pair labels: %w", err)
	}
	return out, nil
}

func (m *Mongo) Clear(ctx context.Context, collection string) error {
	if _, err := m.db.Collection(collection).DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear %s: %w", collection, err)
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

var _ Repository = (*Mongo)(nil)
