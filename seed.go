package main

import (
	"encoding/json"
	"fmt"
	"os"

	"academy/internal/database"
	"academy/internal/models"
	"academy/internal/repositories"
	"academy/internal/services"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// catalogCourse is one entry of the seed file. Module content is part of
// the file even though the API never serializes it.
type catalogCourse struct {
	Slug         string          `json:"slug"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	ThumbnailURL string          `json:"thumbnail_url"`
	Price        decimal.Decimal `json:"price"`
	Published    bool            `json:"published"`
	Modules      []struct {
		Title    string `json:"title"`
		Duration int    `json:"duration"`
		Preview  bool   `json:"preview"`
		Content  string `json:"content"`
	} `json:"modules"`
}

func (c catalogCourse) model() models.Course {
	course := models.Course{
		Slug:         c.Slug,
		Title:        c.Title,
		Description:  c.Description,
		Category:     c.Category,
		ThumbnailURL: c.ThumbnailURL,
		Price:        c.Price,
		IsPublished:  c.Published,
	}
	for i, m := range c.Modules {
		course.Modules = append(course.Modules, models.CourseModule{
			Title:     m.Title,
			Order:     i + 1,
			Duration:  m.Duration,
			IsPreview: m.Preview,
			Content:   m.Content,
		})
	}
	return course
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [catalog.json]",
		Short: "Load courses and modules from a JSON catalog",
		Long: `Load a JSON array of courses, each with its modules, into the catalog.

Existing slugs are not repriced; only modules with new titles are added.
Modules keep file order. Content may be inline markdown or an
s3://bucket/key reference.

Examples:
  academy seed ./catalog.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var entries []catalogCourse
			if err := json.Unmarshal(raw, &entries); err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}
			courses := make([]models.Course, 0, len(entries))
			for _, e := range entries {
				courses = append(courses, e.model())
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg)
			if err != nil {
				return err
			}
			defer database.Close(db)

			catalog := services.NewCatalogService(repositories.NewGORMCourseRepository(db))
			res, err := catalog.Import(cmd.Context(), courses)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "courses created: %d, modules added: %d, unchanged: %d\n",
				res.CoursesCreated, res.ModulesAdded, res.Unchanged)
			return nil
		},
	}
}
