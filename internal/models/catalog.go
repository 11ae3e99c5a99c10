package models

// Category groups titles ("Movies", "Books", ...). Deleting a category leaves
// its titles uncategorised.
type Category struct {
	ID     uint    `gorm:"primaryKey" json:"-"`
	Name   string  `gorm:"size:256;not null" json:"name"`
	Slug   string  `gorm:"size:50;not null;uniqueIndex" json:"slug"`
	Titles []Title `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"-"`
}

type Genre struct {
	ID   uint   `gorm:"primaryKey" json:"-"`
	Name string `gorm:"size:256;not null" json:"name"`
	Slug string `gorm:"size:50;not null;uniqueIndex" json:"slug"`
}

type Title struct {
	ID          uint      `gorm:"primaryKey"`
	Name        string    `gorm:"size:256;not null"`
	Year        int       `gorm:"not null;index"`
	Description string    `gorm:"type:text"`
	CategoryID  *uint     `gorm:"index"`
	Category    *Category `gorm:"foreignKey:CategoryID"`
	Genres      []Genre   `gorm:"many2many:genre_titles;constraint:OnDelete:CASCADE"`
	Reviews     []Review  `gorm:"foreignKey:TitleID;constraint:OnDelete:CASCADE"`

	// Rating is filled by the rating subquery; it has no column.
	Rating *float64 `gorm:"->;-:migration"`
}
