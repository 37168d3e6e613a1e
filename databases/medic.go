package databases

// go generate: mockery --name MedicDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/amberops/ambulance-dispatch-api/models"
)

const medicName = "medics"

// MedicDatabase contains the methods to use with the medic database
type MedicDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Medic, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Medic, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

type medicDatabase struct {
	db DatabaseHelper
}

// NewMedicDatabase initializes a new instance of medic database with the provided db connection
func NewMedicDatabase(db DatabaseHelper) MedicDatabase {
	return &medicDatabase{
		db: db,
	}
}

func (c *medicDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Medic, error) {
	medic := &models.Medic{}
	err := c.db.Collection(medicName).FindOne(ctx, filter, opts...).Decode(&medic)
	if err != nil {
		return nil, err
	}
	return medic, nil
}

func (c *medicDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Medic, error) {
	var medics []models.Medic
	curr, err := c.db.Collection(medicName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &medics)
	if err != nil {
		return nil, err
	}
	return medics, nil
}

func (c *medicDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return c.db.Collection(medicName).InsertOne(ctx, document, opts...)
}

func (c *medicDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	_, err := c.db.Collection(medicName).UpdateOne(ctx, filter, update, opts...)
	return err
}

func (c *medicDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	_, err := c.db.Collection(medicName).DeleteOne(ctx, filter, opts...)
	return err
}

func (c *medicDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return c.db.Collection(medicName).CountDocuments(ctx, filter, opts...)
}
