package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"insightlens/internal/models"
	"insightlens/internal/repository"
	"insightlens/pkg/auth"
	"insightlens/pkg/config"
	"insightlens/pkg/logger"
	"insightlens/pkg/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const reviewBatchSize = 500

// seedProduct mirrors the dataset file layout: products with their reviews
// nested inline.
type seedProduct struct {
	ID       int64        `json:"id"`
	Name     string       `json:"name"`
	Category string       `json:"category"`
	Reviews  []seedReview `json:"reviews"`
}

type seedReview struct {
	Rating       float64 `json:"rating"`
	ReviewText   string  `json:"review_text"`
	HelpfulVotes int64   `json:"helpful_votes"`
	ReviewDate   string  `json:"review_date"` // YYYY-MM-DD, optional
}

func main() {
	dataPath := flag.String("data", "data/products.json", "path to the product dataset")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	// Connect to database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.InitSchema(ctx, db); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	productRepo := repository.NewProductRepository(db, appLogger)
	reviewRepo := repository.NewReviewRepository(db, appLogger)
	userRepo := repository.NewUserRepository(db, appLogger)

	appLogger.Info("Starting database seeding...", zap.String("data", *dataPath))

	if err := seedAdminUser(ctx, userRepo, appLogger); err != nil {
		appLogger.Fatal("Failed to seed admin user", zap.Error(err))
	}

	if err := seedDataset(ctx, *dataPath, productRepo, reviewRepo, appLogger); err != nil {
		appLogger.Fatal("Failed to seed dataset", zap.Error(err))
	}

	appLogger.Info("Database seeding completed successfully!")
}

// seedAdminUser creates the bootstrap admin account when SEED_ADMIN_EMAIL is
// set and the account does not exist yet.
func seedAdminUser(ctx context.Context, users *repository.UserRepository, logger *zap.Logger) error {
	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		logger.Info("SEED_ADMIN_EMAIL not set, skipping admin bootstrap")
		return nil
	}

	existing, err := users.GetByEmail(ctx, email)
	if err != nil && err != pgx.ErrNoRows {
		return err
	}
	if existing != nil {
		logger.Info("Admin user already exists, skipping", zap.String("email", email))
		return nil
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	now := time.Now()
	admin := &models.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  hashed,
		Role:      models.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}

	logger.Info("Admin user created", zap.String("email", email))
	return nil
}

// seedDataset loads the product dataset and inserts products and reviews.
// Product inserts are idempotent; rerunning the seeder duplicates reviews,
// so it is meant for a fresh database.
func seedDataset(
	ctx context.Context,
	dataPath string,
	products *repository.ProductRepository,
	reviews *repository.ReviewRepository,
	logger *zap.Logger,
) error {
	data, err := os.ReadFile(dataPath)
	if err != nil {
		return err
	}

	var dataset []seedProduct
	if err := json.Unmarshal(data, &dataset); err != nil {
		return err
	}

	productRows := make([]*models.Product, 0, len(dataset))
	var reviewRows []*models.Review
	for _, sp := range dataset {
		productRows = append(productRows, &models.Product{
			ID:       sp.ID,
			Name:     sp.Name,
			Category: sp.Category,
		})

		for _, sr := range sp.Reviews {
			review := &models.Review{
				ProductID:    sp.ID,
				Rating:       sr.Rating,
				ReviewText:   sr.ReviewText,
				Sentiment:    models.SentimentFromRating(sr.Rating),
				HelpfulVotes: sr.HelpfulVotes,
			}
			if sr.ReviewDate != "" {
				if date, err := time.Parse("2006-01-02", sr.ReviewDate); err == nil {
					review.ReviewDate = &date
				} else {
					logger.Warn("Skipping malformed review date",
						zap.Int64("product_id", sp.ID), zap.String("date", sr.ReviewDate))
				}
			}
			reviewRows = append(reviewRows, review)
		}
	}

	if err := products.CreateBatch(ctx, productRows); err != nil {
		return err
	}
	logger.Info("Products inserted", zap.Int("count", len(productRows)))

	for start := 0; start < len(reviewRows); start += reviewBatchSize {
		end := start + reviewBatchSize
		if end > len(reviewRows) {
			end = len(reviewRows)
		}
		if err := reviews.CreateBatch(ctx, reviewRows[start:end]); err != nil {
			return err
		}
	}
	logger.Info("Reviews inserted", zap.Int("count", len(reviewRows)))

	return nil
}
