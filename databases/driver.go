package databases

// go generate: mockery --name DriverDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/amberops/ambulance-dispatch-api/models"
)

const driverName = "drivers"

// DriverDatabase contains the methods to use with the driver database
type DriverDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Driver, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Driver, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

type driverDatabase struct {
	db DatabaseHelper
}

// NewDriverDatabase initializes a new instance of driver database with the provided db connection
func NewDriverDatabase(db DatabaseHelper) DriverDatabase {
	return &driverDatabase{
		db: db,
	}
}

func (c *driverDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Driver, error) {
	driver := &models.Driver{}
	err := c.db.Collection(driverName).FindOne(ctx, filter, opts...).Decode(&driver)
	if err != nil {
		return nil, err
	}
	return driver, nil
}

func (c *driverDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Driver, error) {
	var drivers []models.Driver
	curr, err := c.db.Collection(driverName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &drivers)
	if err != nil {
		return nil, err
	}
	return drivers, nil
}

func (c *driverDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return c.db.Collection(driverName).InsertOne(ctx, document, opts...)
}

func (c *driverDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	_, err := c.db.Collection(driverName).UpdateOne(ctx, filter, update, opts...)
	return err
}

func (c *driverDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	_, err := c.db.Collection(driverName).DeleteOne(ctx, filter, opts...)
	return err
}

func (c *driverDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return c.db.Collection(driverName).CountDocuments(ctx, filter, opts...)
}
