package models

import "time"

// Review is a user's scored opinion of a title. A user reviews a title at
// most once; idx_reviews_title_author enforces it.
type Review struct {
	ID       uint      `gorm:"primaryKey"`
	TitleID  uint      `gorm:"not null;uniqueIndex:idx_reviews_title_author,priority:1"`
	AuthorID uint      `gorm:"not null;uniqueIndex:idx_reviews_title_author,priority:2;index"`
	Author   User      `gorm:"foreignKey:AuthorID"`
	Text     string    `gorm:"type:text;not null"`
	Score    int       `gorm:"not null"`
	PubDate  time.Time `gorm:"autoCreateTime;index"`
	Comments []Comment `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE"`
}

type Comment struct {
	ID       uint      `gorm:"primaryKey"`
	ReviewID uint      `gorm:"not null;index"`
	AuthorID uint      `gorm:"not null;index"`
	Author   User      `gorm:"foreignKey:AuthorID"`
	Text     string    `gorm:"type:text;not null"`
	PubDate  time.Time `gorm:"autoCreateTime"`
}
