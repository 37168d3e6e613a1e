package databases

// go generate: mockery --name AmbulanceDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/amberops/ambulance-dispatch-api/models"
)

const ambulanceName = "ambulances"

// AmbulanceDatabase contains the methods to use with the ambulance database
type AmbulanceDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Ambulance, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Ambulance, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

type ambulanceDatabase struct {
	db DatabaseHelper
}

// NewAmbulanceDatabase initializes a new instance of ambulance database with the provided db connection
func NewAmbulanceDatabase(db DatabaseHelper) AmbulanceDatabase {
	return &ambulanceDatabase{
		db: db,
	}
}

func (c *ambulanceDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Ambulance, error) {
	ambulance := &models.Ambulance{}
	err := c.db.Collection(ambulanceName).FindOne(ctx, filter, opts...).Decode(&ambulance)
	if err != nil {
		return nil, err
	}
	return ambulance, nil
}

func (c *ambulanceDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Ambulance, error) {
	var ambulances []models.Ambulance
	curr, err := c.db.Collection(ambulanceName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &ambulances)
	if err != nil {
		return nil, err
	}
	return ambulances, nil
}

func (c *ambulanceDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return c.db.Collection(ambulanceName).InsertOne(ctx, document, opts...)
}

func (c *ambulanceDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	_, err := c.db.Collection(ambulanceName).UpdateOne(ctx, filter, update, opts...)
	return err
}

func (c *ambulanceDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	_, err := c.db.Collection(ambulanceName).DeleteOne(ctx, filter, opts...)
	return err
}

func (c *ambulanceDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return c.db.Collection(ambulanceName).CountDocuments(ctx, filter, opts...)
}
