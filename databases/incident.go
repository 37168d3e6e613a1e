package databases

// go generate: mockery --name IncidentDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/amberops/ambulance-dispatch-api/models"
)

const incidentName = "incidents"

// IncidentDatabase contains the methods to use with the incident database
type IncidentDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Incident, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Incident, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

type incidentDatabase struct {
	db DatabaseHelper
}

// NewIncidentDatabase initializes a new instance of incident database with the provided db connection
func NewIncidentDatabase(db DatabaseHelper) IncidentDatabase {
	return &incidentDatabase{
		db: db,
	}
}

func (c *incidentDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Incident, error) {
	incident := &models.Incident{}
	err := c.db.Collection(incidentName).FindOne(ctx, filter, opts...).Decode(&incident)
	if err != nil {
		return nil, err
	}
	return incident, nil
}

func (c *incidentDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Incident, error) {
	var incidents []models.Incident
	curr, err := c.db.Collection(incidentName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &incidents)
	if err != nil {
		return nil, err
	}
	return incidents, nil
}

func (c *incidentDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return c.db.Collection(incidentName).InsertOne(ctx, document, opts...)
}

func (c *incidentDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	_, err := c.db.Collection(incidentName).UpdateOne(ctx, filter, update, opts...)
	return err
}

func (c *incidentDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	_, err := c.db.Collection(incidentName).DeleteOne(ctx, filter, opts...)
	return err
}

func (c *incidentDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return c.db.Collection(incidentName).CountDocuments(ctx, filter, opts...)
}
