// Command seed inserts approved, online demo drivers around São Paulo's
// city center. Existing accounts with the same email are left alone.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/authutil"
	"github.com/arabeuna/aramove/internal/app/system/indexes"
	"github.com/arabeuna/aramove/internal/domain/geo"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type demoDriver struct {
	name, email, phone string
	vehicle            models.Vehicle
	cpf                string
	rating             float64
	lng, lat           float64
}

var demoDrivers = []demoDriver{
	{
		name: "João Motorista", email: "joao.motorista@aramove.dev", phone: "11999999999",
		vehicle: models.Vehicle{Model: "Toyota Corolla", Color: "Prata", Plate: "ABC1234", Year: "2021"},
		cpf:     "52998224725", rating: 4.8,
		lng: -46.6333, lat: -23.5505,
	},
	{
		name: "Maria Motorista", email: "maria.motorista@aramove.dev", phone: "11988888888",
		vehicle: models.Vehicle{Model: "Honda Civic", Color: "Preto", Plate: "XYZ5678", Year: "2022"},
		cpf:     "16899535009", rating: 4.9,
		lng: -46.6433, lat: -23.5605,
	},
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

type seedConfig struct {
	uri, dbName, password string
}

func main() {
	_ = godotenv.Load()

	var opts seedConfig
	flag.StringVar(&opts.uri, "mongo_uri", getenv("ARAMOVE_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	flag.StringVar(&opts.dbName, "mongo_database", getenv("ARAMOVE_MONGO_DATABASE", "aramove"), "MongoDB database name")
	flag.StringVar(&opts.password, "password", getenv("ARAMOVE_SEED_PASSWORD", "aramove-demo-2024"), "password for every demo driver")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	err := run(opts, logger)
	if err != nil {
		logger.Error("seed failed", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run releases everything it opens before returning.
func run(opts seedConfig, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.uri))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	db := client.Database(opts.dbName)
	if err := indexes.EnsureAll(ctx, db); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return seed(ctx, db, opts.password, logger)
}

func seed(ctx context.Context, db *mongo.Database, password string, logger *zap.Logger) error {
	if err := authutil.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := authutil.HashPassword(password)
	if err != nil {
		return err
	}

	users := userstore.New(db)
	for _, d := range demoDrivers {
		if _, err := users.GetByEmail(ctx, d.email); err == nil {
			logger.Info("driver already present", zap.String("email", d.email))
			continue
		} else if !errors.Is(err, userstore.ErrNotFound) {
			return err
		}

		vehicle := d.vehicle
		u, err := users.Create(ctx, models.User{
			Name:         d.name,
			Email:        d.email,
			Phone:        d.phone,
			PasswordHash: hash,
			Role:         models.RoleDriver,
			Vehicle:      &vehicle,
			Documents:    &models.Documents{License: "CNH-" + d.cpf, CPF: d.cpf},
		})
		if err != nil {
			return err
		}

		if err := users.Approve(ctx, u.ID); err != nil {
			return err
		}
		if err := users.UpdateLocation(ctx, u.ID, geo.Point(d.lng, d.lat)); err != nil {
			return err
		}
		if err := users.SetAvailability(ctx, u.ID, true); err != nil {
			return err
		}
		if err := users.SetRating(ctx, u.ID, d.rating, 1); err != nil {
			return err
		}
		logger.Info("driver created", zap.String("name", d.name), zap.String("id", u.ID.Hex()))
	}
	return nil
}
