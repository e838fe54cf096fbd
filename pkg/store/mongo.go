package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperr "github.com/DavidWHallberg/iotlab-topologies/pkg/errors"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/selection"
	"github.com/DavidWHallberg/iotlab-topologies/pkg/sweep"
)

// Default MongoDB names.
const (
	DefaultDatabase   = "toposelect"
	DefaultCollection = "runs"
)

// rowDocument is one run record of one sweep.
type rowDocument struct {
	SweepID   string    `bson:"sweep_id"`
	Site      string    `bson:"site"`
	Name      string    `bson:"name"`
	Created   time.Time `bson:"created"`
	Bound     float64   `bson:"bound"`
	Root      int       `bson:"root"`
	Depth     int       `bson:"depth"`
	AllNodes  int       `bson:"allnodes"`
	Nodes     int       `bson:"nodes"`
	MaxWeight float64   `bson:"maxweight"`
	Kappa     string    `bson:"kappa"`
	Margin    float64   `bson:"margin"`
	BackEdges bool      `bson:"backedges"`
	Reduced   bool      `bson:"reduced"`
}

func toDocuments(t *sweep.Table) []any {
	docs := make([]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		docs = append(docs, rowDocument{
			SweepID:   t.ID.String(),
			Site:      t.Site,
			Name:      t.Name,
			Created:   t.Created,
			Bound:     float64(r.Bound),
			Root:      r.Root,
			Depth:     r.Depth,
			AllNodes:  r.AllNodes,
			Nodes:     r.Nodes,
			MaxWeight: r.MaxWeight,
			Kappa:     r.Kappa.String(),
			Margin:    r.Margin,
		})
	}
	return docs
}

func fromDocuments(docs []rowDocument) (*sweep.Table, error) {
	if len(docs) == 0 {
		return nil, sweep.ErrNoTable
	}
	id, err := uuid.Parse(docs[0].SweepID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "sweep id %q", docs[0].SweepID)
	}
	t := &sweep.Table{ID: id, Site: docs[0].Site, Name: docs[0].Name, Created: docs[0].Created}
	for _, d := range docs {
		k, err := selection.ParseKappa(d.Kappa)
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, selection.Record{
			Bound:     selection.Bound(d.Bound),
			Root:      d.Root,
			Depth:     d.Depth,
			AllNodes:  d.AllNodes,
			Nodes:     d.Nodes,
			MaxWeight: d.MaxWeight,
			Kappa:     k,
			Margin:    d.Margin,
			BackEdges: d.BackEdges,
			Reduced:   d.Reduced,
		})
	}
	first := t.Rows[0]
	t.Kappa, t.Margin, t.BackEdges, t.Reduce = first.Kappa, first.Margin, first.BackEdges, first.Reduced
	t.Sort()
	return t, nil
}

// Mongo stores sweeps in a MongoDB collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects to uri and uses database.collection. Empty names fall
// back to DefaultDatabase and DefaultCollection.
func NewMongo(ctx context.Context, uri, database, collection string) (*Mongo, error) {
	if err := apperr.ValidateURL(uri, "mongodb", "mongodb+srv"); err != nil {
		return nil, err
	}
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	m := &Mongo{client: client, coll: client.Database(database).Collection(collection)}

	_, err = m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "site", Value: 1}, {Key: "name", Value: 1}, {Key: "created", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create index: %w", err)
	}
	return m, nil
}

// Save inserts every row of t as a document tagged with the sweep ID.
func (m *Mongo) Save(ctx context.Context, t *sweep.Table) error {
	if err := validate(t.Site, t.Name); err != nil {
		return err
	}
	docs := toDocuments(t)
	if len(docs) == 0 {
		return nil
	}
	if _, err := m.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert sweep %s: %w", t.ID, err)
	}
	return nil
}

// Latest loads the rows of the most recent sweep for site and name.
func (m *Mongo) Latest(ctx context.Context, site, name string) (*sweep.Table, error) {
	if err := validate(site, name); err != nil {
		return nil, err
	}
	filter := bson.D{{Key: "site", Value: site}, {Key: "name", Value: name}}

	var newest rowDocument
	err := m.coll.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "created", Value: -1}})).Decode(&newest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, sweep.ErrNoTable
	}
	if err != nil {
		return nil, fmt.Errorf("find latest sweep: %w", err)
	}

	filter = append(filter, bson.E{Key: "sweep_id", Value: newest.SweepID})
	cur, err := m.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "bound", Value: 1}, {Key: "root", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find sweep %s: %w", newest.SweepID, err)
	}
	var docs []rowDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sweep %s: %w", newest.SweepID, err)
	}
	return fromDocuments(docs)
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error { return m.client.Disconnect(ctx) }

var _ Store = (*Mongo)(nil)
