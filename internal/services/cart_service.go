package services

import (
	"context"

	"academy/internal/apperrors"
	"academy/internal/models"
	"academy/internal/repositories"

	"github.com/shopspring/decimal"
)

// CartItem is a server-priced cart line.
type CartItem struct {
	CourseID     string          `json:"course_id"`
	Slug         string          `json:"slug"`
	Title        string          `json:"title"`
	ThumbnailURL string          `json:"thumbnail_url"`
	Price        decimal.Decimal `json:"price"`
}

// CartSummary is the validated content of a client-held cart.
type CartSummary struct {
	Items []CartItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// CartService validates carts. The cart itself lives on the client.
type CartService struct {
	courseRepo repositories.CourseRepository
	orderRepo  repositories.OrderRepository
}

func NewCartService(courseRepo repositories.CourseRepository, orderRepo repositories.OrderRepository) *CartService {
	return &CartService{courseRepo: courseRepo, orderRepo: orderRepo}
}

// AddItem checks that courseID can be bought by userID.
func (s *CartService) AddItem(ctx context.Context, userID, courseID string) (*CartItem, error) {
	courses, err := priceCourses(ctx, s.courseRepo, []string{courseID})
	if err != nil {
		return nil, err
	}
	if err := ensureNotOwned(ctx, s.orderRepo, userID, courses); err != nil {
		return nil, err
	}
	item := toCartItem(courses[0])
	return &item, nil
}

// Validate re-prices a cart from the catalog.
func (s *CartService) Validate(ctx context.Context, userID string, courseIDs []string) (*CartSummary, error) {
	courses, err := priceCourses(ctx, s.courseRepo, courseIDs)
	if err != nil {
		return nil, err
	}
	if err := ensureNotOwned(ctx, s.orderRepo, userID, courses); err != nil {
		return nil, err
	}

	summary := &CartSummary{Items: make([]CartItem, 0, len(courses)), Total: decimal.Zero}
	for _, c := range courses {
		summary.Items = append(summary.Items, toCartItem(c))
		summary.Total = summary.Total.Add(c.Price)
	}
	return summary, nil
}

func toCartItem(c models.Course) CartItem {
	return CartItem{CourseID: c.ID, Slug: c.Slug, Title: c.Title, ThumbnailURL: c.ThumbnailURL, Price: c.Price}
}

// priceCourses resolves ids against the catalog, in request order with
// duplicates removed. Every id must name a published course with a
// positive price.
func priceCourses(ctx context.Context, repo repositories.CourseRepository, ids []string) ([]models.Course, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, apperrors.InvalidRequest("cart is empty")
	}

	found, err := repo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Course, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	courses := make([]models.Course, 0, len(unique))
	for _, id := range unique {
		c, ok := byID[id]
		if !ok || !c.IsPublished || !c.Price.IsPositive() {
			return nil, apperrors.InvalidRequest("course %s is not available", id)
		}
		courses = append(courses, c)
	}
	return courses, nil
}

func ensureNotOwned(ctx context.Context, orders repositories.OrderRepository, userID string, courses []models.Course) error {
	for _, c := range courses {
		owned, err := orders.HasCompletedPurchase(ctx, userID, c.ID)
		if err != nil {
			return err
		}
		if owned {
			return apperrors.Conflict("course '" + c.Title + "' is already purchased")
		}
	}
	return nil
}
