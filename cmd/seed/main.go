package main

import (
	"context"
	"errors"
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/pageza/recipe-app-api/backend/config"
	"github.com/pageza/recipe-app-api/backend/internal/database"
	"github.com/pageza/recipe-app-api/backend/internal/events"
	"github.com/pageza/recipe-app-api/backend/internal/logging"
	"github.com/pageza/recipe-app-api/backend/internal/models"
	"github.com/pageza/recipe-app-api/backend/internal/service"
	"github.com/pageza/recipe-app-api/backend/internal/types"
)

type sampleRecipe struct {
	title       string
	minutes     int
	price       string
	description string
	link        string
	tags        []string
	ingredients []string
}

var sampleRecipes = []sampleRecipe{
	{
		title:       "Thai Vegetable Curry",
		minutes:     35,
		price:       "8.50",
		description: "Coconut curry with seasonal vegetables.",
		tags:        []string{"Vegan", "Dinner", "Thai"},
		ingredients: []string{"Coconut Milk", "Red Curry Paste", "Aubergine", "Basil"},
	},
	{
		title:       "Aubergine with Tahini",
		minutes:     25,
		price:       "6.00",
		tags:        []string{"Vegetarian", "Lunch"},
		ingredients: []string{"Aubergine", "Tahini", "Feta", "Lemon"},
	},
	{
		title:       "Green Eggs on Toast",
		minutes:     10,
		price:       "3.25",
		tags:        []string{"Breakfast", "Vegetarian"},
		ingredients: []string{"Eggs", "Spinach", "Sourdough"},
	},
	{
		title:       "Fish and Chips",
		minutes:     45,
		price:       "12.00",
		link:        "https://example.com/fish-and-chips",
		tags:        []string{"Dinner"},
		ingredients: []string{"Cod", "Potatoes", "Flour", "Lemon"},
	},
	{
		title:       "Porridge with Berries",
		minutes:     8,
		price:       "2.10",
		tags:        []string{"Breakfast", "Vegan"},
		ingredients: []string{"Oats", "Oat Milk", "Blueberries"},
	},
}

func attributes(names []string) *[]types.AttributeRequest {
	attrs := make([]types.AttributeRequest, 0, len(names))
	for _, n := range names {
		attrs = append(attrs, types.AttributeRequest{Name: n})
	}
	return &attrs
}

func (s sampleRecipe) request() (*types.RecipeRequest, error) {
	price, err := models.ParsePrice(s.price)
	if err != nil {
		return nil, err
	}
	return &types.RecipeRequest{
		Title:       &s.title,
		TimeMinutes: &s.minutes,
		Price:       &price,
		Description: &s.description,
		Link:        &s.link,
		Tags:        attributes(s.tags),
		Ingredients: attributes(s.ingredients),
	}, nil
}

func main() {
	email := flag.String("email", "demo@example.com", "Email of the demo user")
	password := flag.String("password", "demopass123", "Password of the demo user")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logging.New(cfg.Env, cfg.Log)

	db, err := database.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.RunMigrations(db, cfg.MigrationsDir, log); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	ctx := context.Background()
	authService := service.NewAuthService(db, cfg.JWTSecret, cfg.JWTTTL, nil)
	user, err := authService.Register(ctx, *email, *password, "Demo User")
	if errors.Is(err, service.ErrEmailTaken) {
		log.WithField("email", *email).Warn("demo user already exists, skipping seed")
		return
	}
	if err != nil {
		log.WithError(err).Fatal("failed to create demo user")
	}

	// images are not seeded, so the recipe service needs no image store
	recipes := service.NewRecipeService(db, nil, events.NopPublisher{}, log)
	for _, sample := range sampleRecipes {
		req, err := sample.request()
		if err != nil {
			log.WithError(err).WithField("title", sample.title).Fatal("invalid sample recipe")
		}
		recipe, err := recipes.CreateRecipe(ctx, user.ID, req)
		if err != nil {
			log.WithError(err).WithField("title", sample.title).Fatal("failed to create recipe")
		}
		log.WithFields(logrus.Fields{"id": recipe.ID, "title": recipe.Title}).Info("created recipe")
	}

	log.WithFields(logrus.Fields{"email": user.Email, "recipes": len(sampleRecipes)}).Info("seed complete")
}
