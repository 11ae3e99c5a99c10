package dto

import "github.com/ahmetcoskunkizilkaya/yamdb/internal/models"

type SlugRequest struct {
	Name string `json:"name" validate:"required,max=256"`
	Slug string `json:"slug" validate:"required,max=50,slug"`
}

type SlugResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func NewCategoryResponse(c *models.Category) SlugResponse {
	return SlugResponse{Name: c.Name, Slug: c.Slug}
}

func NewGenreResponse(g *models.Genre) SlugResponse {
	return SlugResponse{Name: g.Name, Slug: g.Slug}
}

type TitleResponse struct {
	ID          uint           `json:"id"`
	Name        string         `json:"name"`
	Year        int            `json:"year"`
	Rating      *float64       `json:"rating"`
	Description string         `json:"description"`
	Genre       []SlugResponse `json:"genre"`
	Category    *SlugResponse  `json:"category"`
}

func NewTitleResponse(t *models.Title) TitleResponse {
	resp := TitleResponse{
		ID:          t.ID,
		Name:        t.Name,
		Year:        t.Year,
		Rating:      t.Rating,
		Description: t.Description,
		Genre:       make([]SlugResponse, 0, len(t.Genres)),
	}
	for i := range t.Genres {
		resp.Genre = append(resp.Genre, NewGenreResponse(&t.Genres[i]))
	}
	if t.Category != nil {
		c := NewCategoryResponse(t.Category)
		resp.Category = &c
	}
	return resp
}

// CreateTitleRequest references category and genres by slug.
type CreateTitleRequest struct {
	Name        string   `json:"name" validate:"required,max=256"`
	Year        *int     `json:"year" validate:"required,pastyear"`
	Description string   `json:"description"`
	Genre       []string `json:"genre" validate:"required,dive,required"`
	Category    string   `json:"category" validate:"required"`
}

type UpdateTitleRequest struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=256"`
	Year        *int      `json:"year" validate:"omitempty,pastyear"`
	Description *string   `json:"description"`
	Genre       *[]string `json:"genre" validate:"omitempty,dive,required"`
	Category    *string   `json:"category" validate:"omitempty"`
}

// TitleFilter narrows the title list. Zero values do not filter.
type TitleFilter struct {
	Category string
	Genre    string
	Name     string
	Year     *int
}
